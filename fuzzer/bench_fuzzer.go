package fuzzer

import (
	"context"
	"errors"

	"alma.local/shatb/feedback"
	"alma.local/shatb/padding"
	"alma.local/shatb/testbench"
	"alma.local/shatb/tracer"
)

// BenchFuzzer runs messages through a testbench.Bench. Coverage is the set
// of message byte lengths that completed a handshake.
type BenchFuzzer struct {
	bench      *testbench.Bench
	seenLength map[int]struct{}
	last       testbench.Result
}

// NewBenchFuzzer wraps b.
func NewBenchFuzzer(b *testbench.Bench) *BenchFuzzer {
	return &BenchFuzzer{
		bench:      b,
		seenLength: make(map[int]struct{}),
	}
}

func (bf *BenchFuzzer) Reset() {
	bf.seenLength = make(map[int]struct{})
}

func (bf *BenchFuzzer) TotalCoverage() float64 {
	return float64(len(bf.seenLength)) / float64(padding.MaxMessageSize+1)
}

// Last returns the result of the most recent Execute.
func (bf *BenchFuzzer) Last() testbench.Result {
	return bf.last
}

// Execute implements Fuzzer. Messages rejected by the padder count as
// non-bug errors, since they never reach the engine.
func (bf *BenchFuzzer) Execute(ctx context.Context, msg []byte) (
	signature feedback.RuntimeSignature,
	bugTriggered bool,
	newCoverageFound bool,
	trace []tracer.TraceEntry,
) {
	res, err := bf.bench.Run(ctx, msg)
	bf.last = res

	signature = feedback.NewRuntimeSignature()
	signature.Observe(err)
	bugTriggered = err != nil && !errors.Is(err, padding.ErrMessageTooLong)

	if res.Answered {
		if _, seen := bf.seenLength[len(msg)]; !seen {
			bf.seenLength[len(msg)] = struct{}{}
			newCoverageFound = true
		}
	}
	return signature, bugTriggered, newCoverageFound, res.Trace
}

var _ Fuzzer = (*BenchFuzzer)(nil)
