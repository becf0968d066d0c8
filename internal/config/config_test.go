package config

import (
	"os"
	"path/filepath"
	"testing"

	"alma.local/shatb/engine"
	"alma.local/shatb/padding"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shatb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	l, err := cfg.Layout()
	require.NoError(t, err)
	assert.Equal(t, padding.LayoutCompact, l)
	assert.Equal(t, uint64(10), cfg.Clock.Period)
	assert.Equal(t, "ps", cfg.Clock.Unit)
	assert.Equal(t, uint64(1000), cfg.Driver.CycleBudget)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
clock:
  period: 4
  unit: ns
driver:
  cycle_budget: 500
padding:
  layout: standard
engine:
  cycles_per_round: 2
  fault: stall
log:
  level: debug
  format: json
messages:
  - abc
  - ""
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), cfg.Clock.Period)
	assert.Equal(t, "ns", cfg.Clock.Unit)
	assert.Equal(t, uint64(500), cfg.Driver.CycleBudget)
	assert.Equal(t, []string{"abc", ""}, cfg.Messages)

	l, err := cfg.Layout()
	require.NoError(t, err)
	assert.Equal(t, padding.LayoutStandard, l)
	f, err := cfg.Fault()
	require.NoError(t, err)
	assert.Equal(t, engine.FaultStall, f)

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown field": "bogus: 1\n",
		"bad layout":    "padding:\n  layout: fips\n",
		"zero budget":   "driver:\n  cycle_budget: 0\n",
		"bad fault":     "engine:\n  fault: melt\n",
		"short clock":   "clock:\n  period: 1\n",
		"bad level":     "log:\n  level: loud\n",
		"bad format":    "log:\n  format: xml\n",
		"long message":  "messages:\n  - \"0123456789abcdef0123456789abcdef\"\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
