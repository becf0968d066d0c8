package driver

import (
	"context"
	"errors"
	"fmt"

	"alma.local/shatb/oracle"
	"alma.local/shatb/padding"
	"alma.local/shatb/sim"
	"github.com/sirupsen/logrus"
)

// DefaultCycleBudget bounds the wait for hash_valid.
const DefaultCycleBudget = 1000

var (
	// ErrTimeout signals that the engine never raised hash_valid.
	ErrTimeout = errors.New("driver: engine did not respond")
	// ErrProtocol signals a handshake step issued out of order.
	ErrProtocol = errors.New("driver: protocol violation")
)

// TimeoutError reports the cycle budget that ran out. It matches
// ErrTimeout under errors.Is.
type TimeoutError struct {
	Budget uint64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("driver: engine did not respond within %d cycles", e.Budget)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// State is the handshake state of a Driver.
type State int

const (
	StateNotReset State = iota
	StateReset
	StateIdle
	StateSubmitted
	StateAwaiting
	StateResultAvailable
)

var stateNames = [...]string{
	StateNotReset:        "not-reset",
	StateReset:           "reset",
	StateIdle:            "idle",
	StateSubmitted:       "block-submitted",
	StateAwaiting:        "awaiting-result",
	StateResultAvailable: "result-available",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Driver sequences the engine's input handshake: reset, submit one block,
// wait for hash_valid, read hash_data.
type Driver struct {
	sim    *sim.Sim
	budget uint64
	log    logrus.FieldLogger

	state   State
	latency uint64
}

// Option configures a Driver.
type Option func(*Driver)

// WithCycleBudget bounds the wait for hash_valid. Zero restores the
// default.
func WithCycleBudget(n uint64) Option {
	return func(d *Driver) {
		if n > 0 {
			d.budget = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Driver) { d.log = l }
}

// New returns a driver for the engine behind s. The simulator's clock must
// be started before any handshake step.
func New(s *sim.Sim, opts ...Option) *Driver {
	d := &Driver{
		sim:    s,
		budget: DefaultCycleBudget,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current handshake state.
func (d *Driver) State() State {
	return d.state
}

// Latency returns the cycles the last Await spent waiting.
func (d *Driver) Latency() uint64 {
	return d.latency
}

// Reset holds reset low for one rising clock edge, then releases it and
// waits one more edge. It may be issued from any state.
func (d *Driver) Reset(ctx context.Context) error {
	d.sim.BlockValid.Set(false)
	d.sim.ResetN.Set(false)
	d.state = StateReset
	if err := d.sim.RisingEdge(ctx); err != nil {
		return fmt.Errorf("driver: reset: %w", err)
	}
	d.sim.ResetN.Set(true)
	if err := d.sim.RisingEdge(ctx); err != nil {
		return fmt.Errorf("driver: reset release: %w", err)
	}
	d.state = StateIdle
	d.log.WithField("cycle", d.sim.Cycle()).Debug("reset complete")
	return nil
}

// Submit pulses block_valid for one clock cycle with blk on block_data.
func (d *Driver) Submit(ctx context.Context, blk padding.Block) error {
	if d.state != StateIdle {
		return fmt.Errorf("%w: submit in state %s", ErrProtocol, d.state)
	}
	d.sim.BlockData.Set(blk)
	d.sim.BlockValid.Set(true)
	if err := d.sim.RisingEdge(ctx); err != nil {
		return fmt.Errorf("driver: submit: %w", err)
	}
	d.sim.BlockValid.Set(false)
	d.state = StateSubmitted
	d.log.WithFields(logrus.Fields{
		"cycle": d.sim.Cycle(),
		"block": blk.Hex(),
	}).Debug("block submitted")
	return nil
}

// Await waits for the rising edge of hash_valid and returns hash_data.
// It gives up after the cycle budget with a *TimeoutError.
func (d *Driver) Await(ctx context.Context) (oracle.Digest, error) {
	if d.state != StateSubmitted {
		return oracle.Digest{}, fmt.Errorf("%w: await in state %s", ErrProtocol, d.state)
	}
	d.state = StateAwaiting
	cycles, err := d.sim.Await(ctx, d.sim.HashValid, d.budget)
	d.latency = cycles
	if errors.Is(err, sim.ErrBudgetExhausted) {
		d.log.WithField("budget", d.budget).Warn("engine did not raise hash_valid")
		return oracle.Digest{}, &TimeoutError{Budget: d.budget}
	}
	if err != nil {
		return oracle.Digest{}, fmt.Errorf("driver: await: %w", err)
	}
	d.state = StateResultAvailable
	digest := d.sim.HashData.Value()
	d.log.WithFields(logrus.Fields{
		"cycles": cycles,
		"digest": digest.Hex(),
	}).Debug("hash_valid observed")
	return digest, nil
}

// Run performs Reset, Submit and Await for one block.
func (d *Driver) Run(ctx context.Context, blk padding.Block) (oracle.Digest, error) {
	if err := d.Reset(ctx); err != nil {
		return oracle.Digest{}, err
	}
	if err := d.Submit(ctx, blk); err != nil {
		return oracle.Digest{}, err
	}
	return d.Await(ctx)
}
