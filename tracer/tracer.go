package tracer

import (
	"hash/fnv"
	"sync"
)

// TraceEntry is one recorded signal transition.
type TraceEntry struct {
	CID   uint64 // signal id, see SignalID
	Cycle uint64 // clock cycle in which the transition happened
	Value int64
}

// DefaultSize is the ring capacity used by New when size <= 0.
// We use a power of 2 size for bitwise masking.
const DefaultSize = 1 << 16

// Recorder is a circular buffer of signal transitions. Once full, the
// oldest entries are overwritten.
type Recorder struct {
	mu    sync.Mutex
	buf   []TraceEntry
	mask  uint64
	index uint64
}

// New returns a recorder holding the last size transitions, rounded up to
// a power of two.
func New(size int) *Recorder {
	if size <= 0 {
		size = DefaultSize
	}
	n := 1
	for n < size {
		n <<= 1
	}
	return &Recorder{buf: make([]TraceEntry, n), mask: uint64(n - 1)}
}

// Cap returns the ring capacity.
func (r *Recorder) Cap() int {
	return len(r.buf)
}

// Record captures a single transition.
func (r *Recorder) Record(cid, cycle uint64, val int64) {
	r.mu.Lock()
	r.buf[r.index&r.mask] = TraceEntry{CID: cid, Cycle: cycle, Value: val}
	r.index++
	r.mu.Unlock()
}

// Reset clears the trace index.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.index = 0
	r.mu.Unlock()
}

// Snapshot returns a copy of the recorded entries, oldest first.
func (r *Recorder) Snapshot() []TraceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == 0 {
		return nil
	}
	size := uint64(len(r.buf))
	if r.index <= size {
		out := make([]TraceEntry, r.index)
		copy(out, r.buf[:r.index])
		return out
	}
	out := make([]TraceEntry, 0, size)
	start := r.index & r.mask
	out = append(out, r.buf[start:]...)
	out = append(out, r.buf[:start]...)
	return out
}

// SignalID derives a stable trace id from a signal name.
func SignalID(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// ToScalar converts a signal value to an int64 for the trace. Wide values
// are reduced to an FNV hash over every byte.
func ToScalar(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case bool:
		if val {
			return 1
		}
		return 0
	case int:
		return int64(val)
	case int64:
		return val
	case uint64:
		return int64(val) // bitwise cast essentially
	case uint32:
		return int64(val)
	case uint8:
		return int64(val)
	case []byte:
		return hashBytes(val)
	case interface{ Bytes() []byte }:
		return hashBytes(val.Bytes())
	}
	return 0
}

func hashBytes(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	h.Write(b)
	return int64(h.Sum64())
}
