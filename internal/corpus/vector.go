package corpus

import (
	"fmt"

	"alma.local/shatb/oracle"
	"alma.local/shatb/padding"
	ssz "github.com/ferranbt/fastssz"
)

const (
	vectorFixedSize  = 4 + padding.BlockSize + oracle.DigestSize + 1
	maxMessageLength = padding.MaxMessageSize
)

// Vector is one stored test case: the message, the block the padder built
// for it, and the expected reference digest.
type Vector struct {
	Message []byte   `ssz-max:"31"`
	Block   [64]byte `ssz-size:"64"`
	Digest  [32]byte `ssz-size:"32"`
	Layout  uint8
}

// NewVector pads msg with layout and records its reference digest.
func NewVector(msg []byte, layout padding.Layout) (*Vector, error) {
	blk, err := padding.Pad(msg, padding.WithLayout(layout))
	if err != nil {
		return nil, err
	}
	v := &Vector{
		Message: append([]byte(nil), msg...),
		Block:   blk,
		Digest:  oracle.Reference(msg),
		Layout:  uint8(layout),
	}
	return v, nil
}

// PaddingLayout returns the layout the block was built with.
func (v *Vector) PaddingLayout() padding.Layout {
	return padding.Layout(v.Layout)
}

// Verify checks that the stored block and digest still agree with the
// padder and the reference for the stored message.
func (v *Vector) Verify() error {
	blk, err := padding.Pad(v.Message, padding.WithLayout(v.PaddingLayout()))
	if err != nil {
		return fmt.Errorf("corpus: vector message: %w", err)
	}
	if blk != padding.Block(v.Block) {
		return fmt.Errorf("corpus: stored block differs from padder output for %x", v.Message)
	}
	if ref := oracle.Reference(v.Message); ref != oracle.Digest(v.Digest) {
		return fmt.Errorf("%w: stored %x, reference %s", oracle.ErrDigestMismatch, v.Digest, ref)
	}
	return nil
}

// SizeSSZ returns the ssz encoded size in bytes for the Vector object
func (v *Vector) SizeSSZ() (size int) {
	size = vectorFixedSize
	size += len(v.Message)
	return
}

// MarshalSSZ ssz marshals the Vector object
func (v *Vector) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(v)
}

// MarshalSSZTo ssz marshals the Vector object to a target array
func (v *Vector) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf
	offset := int(vectorFixedSize)

	// Offset (0) 'Message'
	dst = ssz.WriteOffset(dst, offset)

	// Field (1) 'Block'
	dst = append(dst, v.Block[:]...)

	// Field (2) 'Digest'
	dst = append(dst, v.Digest[:]...)

	// Field (3) 'Layout'
	dst = append(dst, v.Layout)

	// Field (0) 'Message'
	if size := len(v.Message); size > maxMessageLength {
		err = fmt.Errorf("%w: Vector.Message has %d bytes (max %d)", ssz.ErrSize, size, maxMessageLength)
		return
	}
	dst = append(dst, v.Message...)

	return
}

// UnmarshalSSZ ssz unmarshals the Vector object
func (v *Vector) UnmarshalSSZ(buf []byte) error {
	size := uint64(len(buf))
	if size < vectorFixedSize {
		return ssz.ErrSize
	}

	// Offset (0) 'Message'
	o0 := uint64(ssz.UnmarshallUint32(buf[0:4]))
	if o0 != vectorFixedSize || o0 > size {
		return ssz.ErrOffset
	}

	// Field (1) 'Block'
	copy(v.Block[:], buf[4:68])

	// Field (2) 'Digest'
	copy(v.Digest[:], buf[68:100])

	// Field (3) 'Layout'
	v.Layout = buf[100]

	// Field (0) 'Message'
	tail := buf[o0:]
	if len(tail) > maxMessageLength {
		return ssz.ErrSize
	}
	v.Message = append(v.Message[:0], tail...)
	return nil
}

// HashTreeRoot ssz hashes the Vector object
func (v *Vector) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(v)
}

// HashTreeRootWith ssz hashes the Vector object with a hasher
func (v *Vector) HashTreeRootWith(hh ssz.HashWalker) error {
	indx := hh.Index()

	// Field (0) 'Message'
	{
		elemIndx := hh.Index()
		byteLen := uint64(len(v.Message))
		if byteLen > maxMessageLength {
			return fmt.Errorf("%w: Vector.Message has %d bytes (max %d)", ssz.ErrSize, byteLen, maxMessageLength)
		}
		hh.Append(v.Message)
		hh.MerkleizeWithMixin(elemIndx, byteLen, (maxMessageLength+31)/32)
	}

	// Field (1) 'Block'
	hh.PutBytes(v.Block[:])

	// Field (2) 'Digest'
	hh.PutBytes(v.Digest[:])

	// Field (3) 'Layout'
	hh.PutUint8(v.Layout)

	hh.Merkleize(indx)
	return nil
}

// GetTree ssz hashes the Vector object
func (v *Vector) GetTree() (*ssz.Node, error) {
	return ssz.ProofTree(v)
}
