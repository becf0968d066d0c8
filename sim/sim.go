package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"alma.local/shatb/engine"
	"alma.local/shatb/oracle"
	"alma.local/shatb/padding"
	"alma.local/shatb/tracer"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrBudgetExhausted signals that a wait ran out of clock cycles.
	ErrBudgetExhausted = errors.New("sim: cycle budget exhausted")
	// ErrNotStarted signals a wait on a simulator whose clock is not running.
	ErrNotStarted = errors.New("sim: clock not started")
	// ErrStopped signals a wait on a simulator that has been stopped.
	ErrStopped = errors.New("sim: stopped")
)

// Config holds the clock settings. The period only sets the simulated
// timestamps; it has no effect on behaviour.
type Config struct {
	Period uint64 `yaml:"period"`
	Unit   string `yaml:"unit"`
}

// DefaultConfig is a 10 ps clock.
func DefaultConfig() Config {
	return Config{Period: 10, Unit: "ps"}
}

// Validate checks the clock settings.
func (c Config) Validate() error {
	if c.Period < 2 {
		return fmt.Errorf("sim: clock period %d too short (minimum 2)", c.Period)
	}
	if c.Unit == "" {
		return fmt.Errorf("sim: clock unit is empty")
	}
	return nil
}

type request struct {
	ctx    context.Context
	fired  <-chan struct{}
	budget uint64
	reply  chan result
}

type result struct {
	cycles uint64
	err    error
}

// Sim is a single clock domain around one engine. The clock is
// free-running: it advances whenever the testbench is suspended in a wait
// and stops as soon as the awaited edge occurs, so testbench actions and
// clock edges never interleave.
type Sim struct {
	cfg Config
	dut engine.Engine
	log logrus.FieldLogger
	rec *tracer.Recorder

	Clock      *Signal[bool]
	ResetN     *Signal[bool]
	BlockValid *Signal[bool]
	BlockData  *Signal[padding.Block]
	HashValid  *Signal[bool]
	HashData   *Signal[oracle.Digest]

	now   uint64
	cycle uint64

	requests chan request
	done     chan struct{}
	cancel   context.CancelFunc
	group    *errgroup.Group
	stopOnce sync.Once
}

// Option configures a Sim.
type Option func(*Sim)

// WithConfig sets the clock settings.
func WithConfig(c Config) Option {
	return func(s *Sim) { s.cfg = c }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Sim) { s.log = l }
}

// WithRecorder records every signal transition into rec.
func WithRecorder(rec *tracer.Recorder) Option {
	return func(s *Sim) { s.rec = rec }
}

// New builds a simulator around dut. Call Start to run the clock.
func New(dut engine.Engine, opts ...Option) (*Sim, error) {
	s := &Sim{
		cfg:      DefaultConfig(),
		dut:      dut,
		log:      logrus.StandardLogger(),
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	s.Clock = newSignal[bool](s, "clock")
	s.ResetN = newSignal[bool](s, "reset")
	s.BlockValid = newSignal[bool](s, "block_valid")
	s.BlockData = newSignal[padding.Block](s, "block_data")
	s.HashValid = newSignal[bool](s, "hash_valid")
	s.HashData = newSignal[oracle.Digest](s, "hash_data")
	return s, nil
}

// Start runs the clock scheduler until ctx is done or Stop is called.
func (s *Sim) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	s.cancel = cancel
	s.group = g
	g.Go(func() error {
		defer close(s.done)
		return s.run(gctx)
	})
	s.log.WithFields(logrus.Fields{
		"period": s.cfg.Period,
		"unit":   s.cfg.Unit,
	}).Debug("clock started")
}

// Stop halts the clock and waits for the scheduler to exit.
func (s *Sim) Stop() error {
	if s.group == nil {
		return nil
	}
	var err error
	s.stopOnce.Do(func() {
		s.cancel()
		err = s.group.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	})
	return err
}

// Now returns the simulated time in configured units.
func (s *Sim) Now() uint64 {
	return s.now
}

// Cycle returns the number of rising clock edges so far.
func (s *Sim) Cycle() uint64 {
	return s.cycle
}

// Unit returns the configured time unit.
func (s *Sim) Unit() string {
	return s.cfg.Unit
}

// RisingEdge suspends until the next rising clock edge.
func (s *Sim) RisingEdge(ctx context.Context) error {
	_, err := s.Await(ctx, s.Clock, 1)
	if errors.Is(err, ErrBudgetExhausted) {
		// The clock rises on every cycle, so this cannot run dry.
		return fmt.Errorf("sim: clock did not rise: %w", err)
	}
	return err
}

// Await suspends until sig has a rising edge and returns how many clock
// cycles elapsed. A budget of zero waits without bound; otherwise the wait
// fails with ErrBudgetExhausted after budget cycles.
func (s *Sim) Await(ctx context.Context, sig *Signal[bool], budget uint64) (uint64, error) {
	if s.group == nil {
		return 0, ErrNotStarted
	}
	req := request{
		ctx:    ctx,
		fired:  sig.watch(),
		budget: budget,
		reply:  make(chan result, 1),
	}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.done:
		return 0, ErrStopped
	}
	select {
	case r := <-req.reply:
		return r.cycles, r.err
	case <-s.done:
		return 0, ErrStopped
	}
}

func (s *Sim) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			req.reply <- s.advance(ctx, req)
		}
	}
}

func (s *Sim) advance(ctx context.Context, req request) result {
	for n := uint64(1); ; n++ {
		if err := req.ctx.Err(); err != nil {
			return result{cycles: n - 1, err: err}
		}
		if err := ctx.Err(); err != nil {
			return result{cycles: n - 1, err: ErrStopped}
		}
		s.step()
		select {
		case <-req.fired:
			return result{cycles: n}
		default:
		}
		if req.budget > 0 && n >= req.budget {
			return result{cycles: n, err: ErrBudgetExhausted}
		}
	}
}

// step runs one full clock period: the low phase, then the rising edge on
// which the engine samples its inputs and updates its outputs.
func (s *Sim) step() {
	half := s.cfg.Period / 2
	s.Clock.Set(false)
	s.now += half

	in := engine.Inputs{
		ResetN:     s.ResetN.Value(),
		BlockValid: s.BlockValid.Value(),
		BlockData:  s.BlockData.Value(),
	}
	out := s.dut.Posedge(in)

	s.now += s.cfg.Period - half
	s.cycle++
	s.Clock.Set(true)
	s.HashData.Set(out.HashData)
	s.HashValid.Set(out.HashValid)
}

// record traces and logs a transition. The clock toggles twice per cycle
// and its edges are implied by the cycle number, so it is left out.
func (s *Sim) record(id uint64, name string, v any) {
	if name == "clock" {
		return
	}
	if s.rec != nil {
		s.rec.Record(id, s.cycle, tracer.ToScalar(v))
	}
	s.log.WithFields(logrus.Fields{
		"sim_time": fmt.Sprintf("%d%s", s.now, s.cfg.Unit),
		"cycle":    s.cycle,
		"signal":   name,
		"value":    tracer.ToScalar(v),
	}).Debug("signal changed")
}
