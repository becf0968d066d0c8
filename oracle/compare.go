package oracle

import (
	"errors"
	"fmt"
)

// ErrDigestMismatch signals that the engine produced a digest different
// from the reference.
var ErrDigestMismatch = errors.New("oracle: digest mismatch")

// Comparison is the outcome of checking one hardware digest.
type Comparison struct {
	Hardware  Digest
	Reference Digest
	Match     bool
}

// Compare checks the hardware digest against the reference digest of msg.
// A divergence is returned as ErrDigestMismatch alongside the filled-in
// Comparison so callers can still report both values.
func Compare(hw Digest, msg []byte) (Comparison, error) {
	c := Comparison{
		Hardware:  hw,
		Reference: Reference(msg),
	}
	c.Match = c.Hardware == c.Reference
	if !c.Match {
		return c, fmt.Errorf("%w: hardware %s, reference %s (message %d bytes)",
			ErrDigestMismatch, c.Hardware, c.Reference, len(msg))
	}
	return c, nil
}
