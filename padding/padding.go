package padding

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// BlockBits is the width of a padded block.
	BlockBits = 512
	// BlockSize is the width of a padded block in bytes.
	BlockSize = BlockBits / 8
	// LengthOffset is the bit offset where the length field starts.
	LengthOffset = 448
	// MaxMessageBits is the exclusive upper bound on message length.
	MaxMessageBits = 256
	// MaxMessageSize is the largest message, in bytes, that fits in one block.
	MaxMessageSize = MaxMessageBits/8 - 1
)

// ErrMessageTooLong signals that the message does not fit in a single block.
var ErrMessageTooLong = errors.New("padding: message does not fit in one block")

// Layout selects how the message length is encoded in bits [448, 512).
type Layout int

const (
	// LayoutCompact writes the bit length as a single byte at bit 448 and
	// leaves bits [456, 512) zero. Valid only while the message stays under
	// 256 bits, where the length fits in eight bits.
	LayoutCompact Layout = iota
	// LayoutStandard writes the bit length as a 64-bit big-endian integer
	// over bits [448, 512), as FIPS 180-4 requires.
	LayoutStandard
)

func (l Layout) String() string {
	switch l {
	case LayoutCompact:
		return "compact"
	case LayoutStandard:
		return "standard"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout maps a config name to a Layout.
func ParseLayout(name string) (Layout, error) {
	switch name {
	case "", "compact":
		return LayoutCompact, nil
	case "standard":
		return LayoutStandard, nil
	default:
		return 0, fmt.Errorf("padding: unknown layout %q", name)
	}
}

// Block is a padded 512-bit message block. Bit i lives in byte i/8 at
// position 7-i%8, so bit 0 is the most significant bit of the first byte.
type Block [BlockSize]byte

// Bit returns bit i of the block (0 or 1).
func (b Block) Bit(i int) uint8 {
	return (b[i/8] >> (7 - uint(i%8))) & 1
}

// LengthField returns the byte stored at bit offset 448.
func (b Block) LengthField() uint8 {
	return b[LengthOffset/8]
}

// Hex renders the block as 128 hex digits, first byte first.
func (b Block) Hex() string {
	return hex.EncodeToString(b[:])
}

func (b Block) String() string {
	return "0x" + b.Hex()
}

type options struct {
	layout Layout
}

// Option configures Pad.
type Option func(*options)

// WithLayout selects the length field layout. The default is LayoutCompact.
func WithLayout(l Layout) Option {
	return func(o *options) { o.layout = l }
}

// Pad builds the single padded block for msg: message bits, a single 1
// bit, zero fill up to bit 448, then the length field.
func Pad(msg []byte, opts ...Option) (Block, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var blk Block
	bitLen := uint64(len(msg)) * 8
	if bitLen >= MaxMessageBits {
		return blk, fmt.Errorf("%w: %d bits (limit %d)", ErrMessageTooLong, bitLen, MaxMessageBits-1)
	}

	n := copy(blk[:], msg)
	// Messages are byte aligned, so the marker is always the top bit of the
	// byte that follows the message.
	blk[n] = 0x80

	switch o.layout {
	case LayoutCompact:
		blk[LengthOffset/8] = byte(bitLen)
	case LayoutStandard:
		binary.BigEndian.PutUint64(blk[LengthOffset/8:], bitLen)
	default:
		return Block{}, fmt.Errorf("padding: unknown layout %d", int(o.layout))
	}
	return blk, nil
}

// ZeroFill returns k, the number of zero bits between the marker bit and
// the length field for a message of bitLen bits.
func ZeroFill(bitLen int) int {
	return LengthOffset - bitLen - 1
}

// Bytes returns the block contents, first byte first.
func (b Block) Bytes() []byte {
	return b[:]
}
