package feedback

import (
	"errors"

	"alma.local/shatb/driver"
	"alma.local/shatb/oracle"
	"alma.local/shatb/padding"
)

// Outcome kinds used as BugKinds keys.
const (
	KindMismatch     = "DigestMismatch"
	KindTimeout      = "Timeout"
	KindPrecondition = "MessageTooLong"
	KindProtocol     = "ProtocolViolation"
	KindOther        = "Other"
)

// RuntimeSignature is a compact tally of testbench runs.
type RuntimeSignature struct {
	PassCount         int // runs whose hardware digest matched the reference
	PreconditionCount int // messages rejected before any handshake
	BugFoundCount     int // runs that failed after the handshake started
	// BugKinds counts failures by category (e.g., "DigestMismatch", "Timeout").
	BugKinds map[string]int
}

// NewRuntimeSignature initializes a RuntimeSignature with a non-nil BugKinds map.
func NewRuntimeSignature() RuntimeSignature {
	return RuntimeSignature{
		BugKinds: make(map[string]int),
	}
}

// Kind classifies a run error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, oracle.ErrDigestMismatch):
		return KindMismatch
	case errors.Is(err, driver.ErrTimeout):
		return KindTimeout
	case errors.Is(err, padding.ErrMessageTooLong):
		return KindPrecondition
	case errors.Is(err, driver.ErrProtocol):
		return KindProtocol
	default:
		return KindOther
	}
}

// Observe folds one run outcome into the signature.
func (s *RuntimeSignature) Observe(err error) {
	if s.BugKinds == nil {
		s.BugKinds = make(map[string]int)
	}
	switch kind := Kind(err); kind {
	case "":
		s.PassCount++
	case KindPrecondition:
		s.PreconditionCount++
		s.BugKinds[kind]++
	default:
		s.BugFoundCount++
		s.BugKinds[kind]++
	}
}

// Merge adds other's counts into s.
func (s *RuntimeSignature) Merge(other RuntimeSignature) {
	if s.BugKinds == nil {
		s.BugKinds = make(map[string]int)
	}
	s.PassCount += other.PassCount
	s.PreconditionCount += other.PreconditionCount
	s.BugFoundCount += other.BugFoundCount
	for k, v := range other.BugKinds {
		s.BugKinds[k] += v
	}
}

// Total returns the number of observed runs.
func (s RuntimeSignature) Total() int {
	return s.PassCount + s.PreconditionCount + s.BugFoundCount
}

// Failed reports whether any run failed, including rejected messages.
func (s RuntimeSignature) Failed() bool {
	return s.BugFoundCount > 0 || s.PreconditionCount > 0
}
