package oracle

import (
	"encoding/hex"
	"fmt"

	sha256 "github.com/minio/sha256-simd"
)

// DigestSize is the width of a SHA-256 digest in bytes.
const DigestSize = sha256.Size

// Digest is a 256-bit hash value, first byte most significant.
type Digest [DigestSize]byte

// Hex renders the digest as 64 hex digits.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) String() string {
	return d.Hex()
}

// ParseDigest decodes 64 hex digits into a Digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("oracle: parse digest: %w", err)
	}
	if len(raw) != DigestSize {
		return d, fmt.Errorf("oracle: parse digest: got %d bytes, want %d", len(raw), DigestSize)
	}
	copy(d[:], raw)
	return d, nil
}

// Reference computes the standard SHA-256 digest of msg. It pads the
// message itself (full 64-bit length, any number of blocks) and never
// looks at a testbench-built block.
func Reference(msg []byte) Digest {
	return Digest(sha256.Sum256(msg))
}

// Bytes returns the digest contents, first byte first.
func (d Digest) Bytes() []byte {
	return d[:]
}
