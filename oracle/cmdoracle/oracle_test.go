package cmdoracle

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"alma.local/shatb/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOracle(t *testing.T) *Oracle {
	t.Helper()
	if _, err := exec.LookPath(DefaultCommand); err != nil {
		t.Skipf("%s not available: %v", DefaultCommand, err)
	}
	o, err := New("")
	require.NoError(t, err)
	return o
}

func TestDigestMatchesReference(t *testing.T) {
	o := newOracle(t)
	for _, msg := range []string{"", "abc", "Hello, World"} {
		got, err := o.Digest(context.Background(), []byte(msg))
		require.NoError(t, err)
		assert.Equal(t, oracle.Reference([]byte(msg)), got)
		assert.NoError(t, o.CrossCheck(context.Background(), []byte(msg)))
	}
}

func TestCrossCheckDetectsDisagreement(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}
	o, err := New("echo", "0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	err = o.CrossCheck(context.Background(), []byte("abc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, oracle.ErrDigestMismatch))
}

func TestNewUnknownCommand(t *testing.T) {
	_, err := New("definitely-not-a-hasher-binary")
	assert.Error(t, err)
}
