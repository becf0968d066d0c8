package driver

import (
	"context"
	"errors"
	"testing"

	"alma.local/shatb/engine"
	"alma.local/shatb/oracle"
	"alma.local/shatb/padding"
	"alma.local/shatb/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T, dut engine.Engine, opts ...Option) (*Driver, *sim.Sim) {
	t.Helper()
	s, err := sim.New(dut)
	require.NoError(t, err)
	s.Start(context.Background())
	t.Cleanup(func() { require.NoError(t, s.Stop()) })
	return New(s, opts...), s
}

func helloBlock(t *testing.T) padding.Block {
	t.Helper()
	blk, err := padding.Pad([]byte("Hello, World"), padding.WithLayout(padding.LayoutStandard))
	require.NoError(t, err)
	return blk
}

func TestRunSequence(t *testing.T) {
	d, s := newDriver(t, engine.NewSoft())
	ctx := context.Background()
	assert.Equal(t, StateNotReset, d.State())

	require.NoError(t, d.Reset(ctx))
	assert.Equal(t, StateIdle, d.State())
	assert.Equal(t, uint64(2), s.Cycle())
	assert.True(t, s.ResetN.Value())

	require.NoError(t, d.Submit(ctx, helloBlock(t)))
	assert.Equal(t, StateSubmitted, d.State())
	assert.False(t, s.BlockValid.Value())
	assert.Equal(t, uint64(1), s.BlockValid.Edges())

	edgesBefore := s.HashValid.Edges()
	digest, err := d.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateResultAvailable, d.State())
	assert.Equal(t, edgesBefore+1, s.HashValid.Edges())
	assert.Equal(t, uint64(engine.Rounds), d.Latency())
	assert.Equal(t, oracle.Reference([]byte("Hello, World")), digest)
}

func TestAwaitWithinBudget(t *testing.T) {
	d, s := newDriver(t, engine.NewSoft(engine.WithCyclesPerRound(10)), WithCycleBudget(1000))

	_, err := d.Run(context.Background(), helloBlock(t))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.HashValid.Edges())
	assert.LessOrEqual(t, d.Latency(), uint64(1000))
}

func TestAwaitTimeout(t *testing.T) {
	d, _ := newDriver(t, engine.NewSoft(engine.WithFault(engine.FaultStall)), WithCycleBudget(1000))

	_, err := d.Run(context.Background(), helloBlock(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, uint64(1000), te.Budget)
	assert.Equal(t, "driver: engine did not respond within 1000 cycles", err.Error())
	assert.Equal(t, StateAwaiting, d.State())
}

func TestTimeoutWhenLatencyExceedsBudget(t *testing.T) {
	d, _ := newDriver(t, engine.NewSoft(engine.WithCyclesPerRound(20)), WithCycleBudget(1000))

	_, err := d.Run(context.Background(), helloBlock(t))
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestProtocolOrder(t *testing.T) {
	d, _ := newDriver(t, engine.NewSoft())
	ctx := context.Background()

	err := d.Submit(ctx, helloBlock(t))
	assert.True(t, errors.Is(err, ErrProtocol))

	_, err = d.Await(ctx)
	assert.True(t, errors.Is(err, ErrProtocol))

	require.NoError(t, d.Reset(ctx))
	require.NoError(t, d.Submit(ctx, helloBlock(t)))
	err = d.Submit(ctx, helloBlock(t))
	assert.True(t, errors.Is(err, ErrProtocol))
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	d, s := newDriver(t, engine.NewSoft())
	ctx := context.Background()
	blk := helloBlock(t)

	first, err := d.Run(ctx, blk)
	require.NoError(t, err)
	second, err := d.Run(ctx, blk)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, uint64(2), s.HashValid.Edges())
}

func TestAwaitCancelled(t *testing.T) {
	d, _ := newDriver(t, engine.NewSoft(engine.WithFault(engine.FaultStall)), WithCycleBudget(1<<30))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, d.Reset(ctx))
	require.NoError(t, d.Submit(ctx, helloBlock(t)))
	cancel()
	_, err := d.Await(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-result", StateAwaiting.String())
	assert.Equal(t, "State(42)", State(42).String())
}
