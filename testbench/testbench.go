package testbench

import (
	"context"
	"fmt"

	"alma.local/shatb/driver"
	"alma.local/shatb/engine"
	"alma.local/shatb/feedback"
	"alma.local/shatb/internal/analyzer"
	"alma.local/shatb/metrics"
	"alma.local/shatb/oracle"
	"alma.local/shatb/padding"
	"alma.local/shatb/sim"
	"alma.local/shatb/tracer"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Factory builds a fresh engine for each run.
type Factory func() engine.Engine

// Config configures a Bench.
type Config struct {
	Clock       sim.Config
	CycleBudget uint64
	Layout      padding.Layout
	Engine      Factory
	// TraceSize, when positive, records the last TraceSize signal
	// transitions of each run into Result.Trace.
	TraceSize int
	Log       logrus.FieldLogger
	Metrics   *metrics.Collector
	Analyzer  *analyzer.Analyzer
}

// Result is the outcome of one run. Err is nil for a matching digest.
type Result struct {
	Message    []byte
	Block      padding.Block
	Comparison oracle.Comparison
	Cycles     uint64
	Answered   bool
	Trace      []tracer.TraceEntry
	// Handshake is the cycle distance between the block_valid and
	// hash_valid rising edges in Trace; HandshakeTraced is false when the
	// trace is off or does not hold both edges.
	Handshake       uint64
	HandshakeTraced bool
	// BlockDigest is the single-block compression of Block, filled in on a
	// mismatch. It equals the hardware digest when the engine is correct
	// and the divergence comes from the padded block itself.
	BlockDigest oracle.Digest
	Err         error
}

var (
	submitCID = tracer.SignalID("block_valid")
	resultCID = tracer.SignalID("hash_valid")
)

// Bench pads a message, drives it through a freshly reset engine and
// checks the digest against the reference.
type Bench struct {
	cfg Config
}

// New fills in defaults and validates cfg.
func New(cfg Config) (*Bench, error) {
	if cfg.Clock == (sim.Config{}) {
		cfg.Clock = sim.DefaultConfig()
	}
	if err := cfg.Clock.Validate(); err != nil {
		return nil, err
	}
	if cfg.CycleBudget == 0 {
		cfg.CycleBudget = driver.DefaultCycleBudget
	}
	if cfg.Engine == nil {
		cfg.Engine = func() engine.Engine { return engine.NewSoft() }
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Bench{cfg: cfg}, nil
}

// Run verifies one message. The returned error is Result.Err; a message
// that does not fit one block fails before any simulation starts.
func (b *Bench) Run(ctx context.Context, msg []byte) (Result, error) {
	res := Result{Message: msg}
	res.Err = b.run(ctx, &res)
	if res.Trace != nil {
		res.Handshake, res.HandshakeTraced = analyzer.HandshakeLatency(res.Trace, submitCID, resultCID)
		b.cfg.Log.WithFields(logrus.Fields{
			"message_bits": len(msg) * 8,
			"entries":      len(res.Trace),
			"handshake":    res.Handshake,
			"complete":     res.HandshakeTraced,
		}).Debug("signal trace captured")
	}
	b.observe(res)
	return res, res.Err
}

func (b *Bench) run(ctx context.Context, res *Result) error {
	blk, err := padding.Pad(res.Message, padding.WithLayout(b.cfg.Layout))
	if err != nil {
		return err
	}
	res.Block = blk

	log := b.cfg.Log.WithField("message_bits", len(res.Message)*8)
	opts := []sim.Option{sim.WithConfig(b.cfg.Clock), sim.WithLogger(log)}
	var rec *tracer.Recorder
	if b.cfg.TraceSize > 0 {
		rec = tracer.New(b.cfg.TraceSize)
		opts = append(opts, sim.WithRecorder(rec))
	}
	s, err := sim.New(b.cfg.Engine(), opts...)
	if err != nil {
		return err
	}
	s.Start(ctx)
	defer func() {
		if err := s.Stop(); err != nil {
			log.WithError(err).Warn("stopping simulator")
		}
		if rec != nil {
			res.Trace = rec.Snapshot()
		}
	}()

	d := driver.New(s, driver.WithCycleBudget(b.cfg.CycleBudget), driver.WithLogger(log))
	hw, err := d.Run(ctx, blk)
	res.Cycles = d.Latency()
	if err != nil {
		return err
	}
	res.Answered = true

	res.Comparison, err = oracle.Compare(hw, res.Message)
	if err != nil {
		res.BlockDigest = engine.Reference(blk).HashData
		log.WithFields(logrus.Fields{
			"hardware":       res.Comparison.Hardware.Hex(),
			"reference":      res.Comparison.Reference.Hex(),
			"block_digest":   res.BlockDigest.Hex(),
			"engine_correct": res.BlockDigest == hw,
			"layout":         b.cfg.Layout,
		}).Error("digest mismatch")
		return err
	}
	log.WithFields(logrus.Fields{
		"digest": hw.Hex(),
		"cycles": res.Cycles,
	}).Info("digest matches reference")
	return nil
}

func (b *Bench) observe(res Result) {
	if b.cfg.Metrics != nil {
		b.cfg.Metrics.Observe(feedback.Kind(res.Err), res.Cycles, res.Answered)
	}
	if b.cfg.Analyzer != nil && res.Answered {
		b.cfg.Analyzer.Observe(uint64(len(res.Message))*8, res.Cycles)
	}
}

// RunAll verifies msgs on independent simulators, at most parallel at a
// time (parallel <= 0 means one per message). Results keep the order of
// msgs. The returned error is only set when ctx ends the campaign early.
func (b *Bench) RunAll(ctx context.Context, msgs [][]byte, parallel int) ([]Result, feedback.RuntimeSignature, error) {
	results := make([]Result, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, msg := range msgs {
		i, msg := i, msg
		g.Go(func() error {
			results[i], _ = b.Run(gctx, msg)
			return nil
		})
	}
	_ = g.Wait()

	sig := feedback.NewRuntimeSignature()
	for _, r := range results {
		sig.Observe(r.Err)
	}
	if err := ctx.Err(); err != nil {
		return results, sig, fmt.Errorf("testbench: run aborted: %w", err)
	}
	return results, sig, nil
}
