package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	c := New()
	c.Observe("", 64, true)
	c.Observe("", 64, true)
	c.Observe("Timeout", 1000, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Runs.WithLabelValues(OutcomePass)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues(OutcomeFail)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Failures.WithLabelValues("Timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.Latency))
}

func TestWriteText(t *testing.T) {
	c := New()
	c.Observe("", 64, true)

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))
	assert.Contains(t, buf.String(), `shatb_runs_total{outcome="pass"} 1`)
	assert.Contains(t, buf.String(), "shatb_handshake_latency_cycles_count 1")
}

func TestGathererExposesAllFamilies(t *testing.T) {
	c := New()
	c.Observe("", 64, true)
	c.Observe("DigestMismatch", 64, true)

	n, err := testutil.GatherAndCount(c.Gatherer(),
		"shatb_runs_total", "shatb_failures_total", "shatb_handshake_latency_cycles")
	require.NoError(t, err)
	// two outcome series, one failure kind, one histogram
	assert.Equal(t, 4, n)
}
