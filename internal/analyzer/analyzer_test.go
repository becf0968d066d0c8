package analyzer

import (
	"testing"

	"alma.local/shatb/tracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistogram(t *testing.T) {
	h := NewHistogram()
	assert.Zero(t, h.Mean())
	h.Add(64)
	h.Add(64)
	h.Add(128)

	assert.Equal(t, uint64(3), h.Total)
	assert.InDelta(t, 2.0/3.0, h.Probability(64), 1e-9)
	assert.InDelta(t, 256.0/3.0, h.Mean(), 1e-9)
}

func TestAnalyzerObserve(t *testing.T) {
	a := NewAnalyzer()
	a.Observe(96, 64)
	a.Observe(0, 64)
	a.Observe(96, 64)

	assert.Equal(t, []uint64{0, 96}, a.GetDimensions())
	require.NotNil(t, a.Histogram(96))
	assert.Equal(t, uint64(2), a.Histogram(96).Total)
	assert.Nil(t, a.Histogram(8))
}

func TestHandshakeLatency(t *testing.T) {
	submit := tracer.SignalID("block_valid")
	result := tracer.SignalID("hash_valid")
	trace := []tracer.TraceEntry{
		{CID: result, Cycle: 1, Value: 0},
		{CID: submit, Cycle: 3, Value: 1},
		{CID: submit, Cycle: 4, Value: 0},
		{CID: result, Cycle: 67, Value: 1},
	}

	cycles, ok := HandshakeLatency(trace, submit, result)
	require.True(t, ok)
	assert.Equal(t, uint64(64), cycles)

	_, ok = HandshakeLatency(trace[:3], submit, result)
	assert.False(t, ok)
}
