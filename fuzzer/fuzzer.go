package fuzzer

import (
	"context"

	"alma.local/shatb/feedback"
	"alma.local/shatb/tracer"
)

// Fuzzer executes one message against the engine and reports feedback.
type Fuzzer interface {
	// Execute runs msg through the testbench and returns a compact
	// RuntimeSignature, whether a bug was triggered, whether the run
	// reached a message length not seen before, and the signal trace.
	Execute(ctx context.Context, msg []byte) (feedback.RuntimeSignature, bool, bool, []tracer.TraceEntry)

	// Reset clears the coverage counters.
	Reset()

	// TotalCoverage returns the fraction of message lengths exercised.
	TotalCoverage() float64
}
