package analyzer

import (
	"sort"
	"sync"

	"alma.local/shatb/tracer"
)

// Histogram represents the distribution of handshake latencies.
type Histogram struct {
	Counts map[uint64]uint64
	Total  uint64
	sum    uint64
}

func NewHistogram() *Histogram {
	return &Histogram{
		Counts: make(map[uint64]uint64),
	}
}

// Add updates the histogram with a new value.
func (h *Histogram) Add(val uint64) {
	h.Counts[val]++
	h.Total++
	h.sum += val
}

// Probability calculates P(val) given the history.
func (h *Histogram) Probability(val uint64) float64 {
	if h.Total == 0 {
		return 0.0
	}
	return float64(h.Counts[val]) / float64(h.Total)
}

// Mean returns the average value, or zero for an empty histogram.
func (h *Histogram) Mean() float64 {
	if h.Total == 0 {
		return 0.0
	}
	return float64(h.sum) / float64(h.Total)
}

// Analyzer keeps one latency histogram per message bit length.
type Analyzer struct {
	Model map[uint64]*Histogram
	mu    sync.RWMutex
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Model: make(map[uint64]*Histogram),
	}
}

// Observe records that a message of bitLen bits took cycles to hash.
func (a *Analyzer) Observe(bitLen, cycles uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.Model[bitLen]
	if !ok {
		h = NewHistogram()
		a.Model[bitLen] = h
	}
	h.Add(cycles)
}

// Histogram returns the histogram for bitLen, or nil if none was observed.
func (a *Analyzer) Histogram(bitLen uint64) *Histogram {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Model[bitLen]
}

// GetDimensions returns the observed bit lengths in ascending order.
func (a *Analyzer) GetDimensions() []uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]uint64, 0, len(a.Model))
	for k := range a.Model {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// HandshakeLatency finds the first rising edge of the submit signal and
// the first rising edge of the result signal after it, and returns the
// number of cycles between them.
func HandshakeLatency(trace []tracer.TraceEntry, submitCID, resultCID uint64) (uint64, bool) {
	var (
		start     uint64
		submitted bool
	)
	for _, e := range trace {
		switch {
		case !submitted && e.CID == submitCID && e.Value == 1:
			start = e.Cycle
			submitted = true
		case submitted && e.CID == resultCID && e.Value == 1:
			return e.Cycle - start, true
		}
	}
	return 0, false
}
