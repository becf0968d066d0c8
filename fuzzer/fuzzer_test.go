package fuzzer

import (
	"context"
	"math/rand"
	"testing"

	"alma.local/shatb/domains"
	"alma.local/shatb/engine"
	"alma.local/shatb/feedback"
	"alma.local/shatb/padding"
	"alma.local/shatb/testbench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFuzzer(t *testing.T, cfg testbench.Config) *BenchFuzzer {
	t.Helper()
	b, err := testbench.New(cfg)
	require.NoError(t, err)
	return NewBenchFuzzer(b)
}

func TestRandomMessageFitsOneBlock(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		assert.LessOrEqual(t, len(RandomMessage(r)), padding.MaxMessageSize)
	}
}

func TestExecuteTracksCoverage(t *testing.T) {
	bf := newFuzzer(t, testbench.Config{Layout: padding.LayoutStandard})
	ctx := context.Background()

	sig, bug, newCov, _ := bf.Execute(ctx, []byte("abc"))
	assert.Equal(t, 1, sig.PassCount)
	assert.False(t, bug)
	assert.True(t, newCov)

	_, _, newCov, _ = bf.Execute(ctx, []byte("xyz"))
	assert.False(t, newCov)
	assert.InDelta(t, 1.0/32.0, bf.TotalCoverage(), 1e-9)

	_, bug, newCov, _ = bf.Execute(ctx, make([]byte, 40))
	assert.False(t, bug)
	assert.False(t, newCov)

	bf.Reset()
	assert.Zero(t, bf.TotalCoverage())
}

func TestCampaignPassesOnStandardLayout(t *testing.T) {
	c := Campaign{
		Fuzzer:     newFuzzer(t, testbench.Config{Layout: padding.LayoutStandard}),
		Rand:       rand.New(rand.NewSource(7)),
		Iterations: 40,
	}
	rep, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, rep.Executed)
	assert.Equal(t, 40, rep.Signature.PassCount)
	assert.Nil(t, rep.FirstFailure)
	assert.Greater(t, rep.Coverage, 0.0)
}

func TestCampaignStopsOnFailure(t *testing.T) {
	c := Campaign{
		Fuzzer: newFuzzer(t, testbench.Config{
			Layout:    padding.LayoutStandard,
			TraceSize: 64,
			Engine:    func() engine.Engine { return engine.NewSoft(engine.WithFault(engine.FaultCorrupt)) },
		}),
		Rand:          rand.New(rand.NewSource(3)),
		Iterations:    10,
		StopOnFailure: true,
	}
	rep, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Executed)
	assert.NotNil(t, rep.FirstFailure)
	assert.NotEmpty(t, rep.FirstFailureTrace)
	assert.Equal(t, 1, rep.Signature.BugKinds[feedback.KindMismatch])
}

func TestCampaignHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := Campaign{
		Fuzzer:     newFuzzer(t, testbench.Config{}),
		Rand:       rand.New(rand.NewSource(1)),
		Iterations: 5,
	}
	rep, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rep.Executed)
}

func TestCampaignWithDomainReachesBoundaries(t *testing.T) {
	d := domains.MessageDomain()
	bf := newFuzzer(t, testbench.Config{Layout: padding.LayoutStandard})
	c := Campaign{
		Fuzzer:     bf,
		Rand:       rand.New(rand.NewSource(5)),
		Iterations: 60,
		Domain:     &d,
	}
	rep, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, rep.Signature.PassCount)
	assert.Greater(t, rep.Coverage, 0.0)
}

func TestCampaignRejectsDomainWithoutAspects(t *testing.T) {
	c := Campaign{
		Fuzzer:     newFuzzer(t, testbench.Config{}),
		Rand:       rand.New(rand.NewSource(1)),
		Iterations: 3,
		Domain:     &domains.Domain{FieldName: "Broken"},
	}
	rep, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, rep.Executed)
}
