package domains

import (
	"fmt"
	"math"
	"math/rand"

	"alma.local/shatb/padding"
)

// BucketID uniquely identifies a bucket within an aspect's domain.
type BucketID string

// Range defines the numeric bounds of a bucket (inclusive).
type Range struct {
	Min uint64
	Max uint64
}

// Bucket represents a specific abstract value or range.
type Bucket struct {
	ID          BucketID
	Description string
	Range       Range
	Tag         string // e.g., "boundary", "random", "length"
}

// AspectID identifies a particular property of a message (e.g., "Length", "ByteValue").
type AspectID string

const (
	AspectLength    AspectID = "Length"
	AspectByteValue AspectID = "ByteValue"
)

// FieldAspect groups buckets that relate to a specific property of a message.
type FieldAspect struct {
	ID          AspectID
	Description string
	Buckets     []Bucket
}

// Domain represents all configurable aspects of the generated messages.
type Domain struct {
	FieldName string
	Type      string
	Aspects   []FieldAspect
}

// Aspect returns the aspect with the given id.
func (d Domain) Aspect(id AspectID) (FieldAspect, bool) {
	for _, a := range d.Aspects {
		if a.ID == id {
			return a, true
		}
	}
	return FieldAspect{}, false
}

// Validate checks that every bucket range is well formed and that length
// buckets stay within one block.
func (d Domain) Validate() error {
	for _, a := range d.Aspects {
		if len(a.Buckets) == 0 {
			return fmt.Errorf("domains: aspect %s has no buckets", a.ID)
		}
		for _, b := range a.Buckets {
			if b.Range.Min > b.Range.Max {
				return fmt.Errorf("domains: bucket %s has min %d > max %d", b.ID, b.Range.Min, b.Range.Max)
			}
			if a.ID == AspectLength && b.Range.Max > padding.MaxMessageSize {
				return fmt.Errorf("domains: bucket %s allows %d bytes, limit is %d", b.ID, b.Range.Max, padding.MaxMessageSize)
			}
			if a.ID == AspectByteValue && b.Range.Max > 0xFF {
				return fmt.Errorf("domains: bucket %s exceeds a byte", b.ID)
			}
		}
	}
	return nil
}

// MessageDomain describes single-block messages: boundary and interior
// lengths, and byte values that stress the high bit next to the marker.
func MessageDomain() Domain {
	return Domain{
		FieldName: "Message",
		Type:      "List[byte, 31]",
		Aspects: []FieldAspect{
			{
				ID:          AspectLength,
				Description: "message length in bytes",
				Buckets: []Bucket{
					{ID: "Empty", Range: Range{Min: 0, Max: 0}, Tag: "boundary"},
					{ID: "Short", Range: Range{Min: 1, Max: 3}, Tag: "length"},
					{ID: "WordAligned", Range: Range{Min: 4, Max: 4}, Tag: "boundary"},
					{ID: "Interior", Range: Range{Min: 5, Max: 27}, Tag: "random"},
					{ID: "NearFull", Range: Range{Min: 28, Max: 30}, Tag: "length"},
					{ID: "Full", Range: Range{Min: padding.MaxMessageSize, Max: padding.MaxMessageSize}, Tag: "boundary"},
				},
			},
			{
				ID:          AspectByteValue,
				Description: "value of each message byte",
				Buckets: []Bucket{
					{ID: "Zero", Range: Range{Min: 0x00, Max: 0x00}, Tag: "boundary"},
					{ID: "Ones", Range: Range{Min: 0xFF, Max: 0xFF}, Tag: "boundary"},
					{ID: "Marker", Range: Range{Min: 0x80, Max: 0x80}, Tag: "boundary"},
					{ID: "Any", Range: Range{Min: 0x00, Max: 0xFF}, Tag: "random"},
				},
			},
		},
	}
}

// Draw returns a value in [Min, Max]. Any width up to the full uint64
// range is accepted.
func (rg Range) Draw(r *rand.Rand) uint64 {
	width := rg.Max - rg.Min
	switch {
	case width == math.MaxUint64:
		return r.Uint64()
	case width >= math.MaxInt64:
		return rg.Min + r.Uint64()%(width+1)
	default:
		return rg.Min + uint64(r.Int63n(int64(width)+1))
	}
}

// Pick selects a bucket of the aspect uniformly, then a value inside it.
func Pick(r *rand.Rand, a FieldAspect) (BucketID, uint64) {
	b := a.Buckets[r.Intn(len(a.Buckets))]
	return b.ID, b.Range.Draw(r)
}

// Generate builds one message from d: a length from the Length aspect and
// a byte-value bucket chosen once per message.
func Generate(r *rand.Rand, d Domain) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	lengths, ok := d.Aspect(AspectLength)
	if !ok {
		return nil, fmt.Errorf("domains: %s has no %s aspect", d.FieldName, AspectLength)
	}
	values, ok := d.Aspect(AspectByteValue)
	if !ok {
		return nil, fmt.Errorf("domains: %s has no %s aspect", d.FieldName, AspectByteValue)
	}
	_, n := Pick(r, lengths)
	vb := values.Buckets[r.Intn(len(values.Buckets))]
	msg := make([]byte, n)
	for i := range msg {
		msg[i] = byte(vb.Range.Draw(r))
	}
	return msg, nil
}
