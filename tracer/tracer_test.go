package tracer

import (
	"testing"
)

func TestRecordAndSnapshot(t *testing.T) {
	r := New(8)

	// Record some dummy data
	r.Record(1, 0, 100)
	r.Record(2, 1, 200)
	r.Record(3, 2, 300)

	snapshot := r.Snapshot()
	if len(snapshot) != 3 {
		t.Errorf("Expected snapshot length of 3, but got %d", len(snapshot))
	}

	expected := []TraceEntry{
		{CID: 1, Cycle: 0, Value: 100},
		{CID: 2, Cycle: 1, Value: 200},
		{CID: 3, Cycle: 2, Value: 300},
	}

	for i, entry := range snapshot {
		if entry != expected[i] {
			t.Errorf("Snapshot entry %d is incorrect. Expected %+v, but got %+v", i, expected[i], entry)
		}
	}
}

func TestReset(t *testing.T) {
	r := New(8)
	r.Record(1, 0, 100)
	r.Reset()

	if snapshot := r.Snapshot(); len(snapshot) != 0 {
		t.Errorf("Expected empty snapshot after reset, but got length %d", len(snapshot))
	}
}

func TestRingBufferWrapping(t *testing.T) {
	r := New(5)
	if r.Cap() != 8 {
		t.Fatalf("Expected capacity rounded up to 8, got %d", r.Cap())
	}

	// Record more entries than the buffer size to test wrapping
	for i := 0; i < r.Cap()+3; i++ {
		r.Record(uint64(i), uint64(i), int64(i*10))
	}

	snapshot := r.Snapshot()
	if len(snapshot) != r.Cap() {
		t.Fatalf("Expected snapshot length of %d, but got %d", r.Cap(), len(snapshot))
	}
	if snapshot[0].CID != 3 || snapshot[len(snapshot)-1].CID != 10 {
		t.Errorf("Expected oldest-first order 3..10, got %d..%d", snapshot[0].CID, snapshot[len(snapshot)-1].CID)
	}
}

func TestToScalar(t *testing.T) {
	if ToScalar(true) != 1 || ToScalar(false) != 0 {
		t.Errorf("bool conversion broken")
	}
	if ToScalar([]byte{1, 2, 3}) == ToScalar([]byte{1, 2, 4}) {
		t.Errorf("byte hashing collides on a trivial change")
	}
	if SignalID("hash_valid") == SignalID("block_valid") {
		t.Errorf("signal ids collide")
	}
}

type block [64]byte

func (b block) Bytes() []byte { return b[:] }

func TestToScalarHashesWholeBlock(t *testing.T) {
	var a, b block
	for i := range a {
		a[i] = byte(i)
	}
	b = a
	for i := 13; i <= 25; i++ {
		b[i] ^= 0xA5
	}
	if ToScalar(a) == ToScalar(b) {
		t.Errorf("blocks differing in bytes 13..25 traced to the same value")
	}
	b = a
	b[40] ^= 0x01
	if ToScalar(a) == ToScalar(b) {
		t.Errorf("blocks differing in byte 40 traced to the same value")
	}
	c := a
	if ToScalar(a) != ToScalar(c) {
		t.Errorf("equal blocks traced to different values")
	}
}
