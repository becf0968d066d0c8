package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"alma.local/shatb/domains"
	"alma.local/shatb/engine"
	"alma.local/shatb/feedback"
	"alma.local/shatb/fuzzer"
	"alma.local/shatb/internal/analyzer"
	"alma.local/shatb/internal/config"
	"alma.local/shatb/internal/corpus"
	"alma.local/shatb/metrics"
	"alma.local/shatb/oracle/cmdoracle"
	"alma.local/shatb/testbench"
	"alma.local/shatb/tracer"
	"github.com/sirupsen/logrus"
)

type messageList []string

func (m *messageList) String() string { return strings.Join(*m, ",") }

func (m *messageList) Set(v string) error {
	*m = append(*m, v)
	return nil
}

var (
	flagConfig     = flag.String("config", "", "path to YAML testbench config")
	flagLayout     = flag.String("layout", "", "padding layout override: compact or standard")
	flagBudget     = flag.Uint64("budget", 0, "cycle budget override for hash_valid")
	flagFault      = flag.String("fault", "", "engine fault override: none, stall or corrupt")
	flagLogLevel   = flag.String("log-level", "", "log level override")
	flagParallel   = flag.Int("parallel", 4, "messages verified concurrently")
	flagCorpus     = flag.Bool("corpus", false, "verify the vectors under corpus.root instead of messages")
	flagCampaign   = flag.Int("campaign", 0, "run N random messages instead of the configured ones")
	flagSeed       = flag.Int64("seed", 0, "campaign seed (0 uses the clock)")
	flagStop       = flag.Bool("stop-on-failure", false, "end the campaign at the first failure")
	flagBuckets    = flag.Bool("buckets", false, "draw campaign messages from length and byte-value buckets")
	flagCrossCheck = flag.String("cross-check", "", "external hasher to confirm reference digests (e.g. sha256sum)")
	flagMetricsOut = flag.String("metrics-out", "", "write Prometheus text metrics to this file")
	flagTrace      = flag.Int("trace", 0, "record the last N signal transitions of each run and log the traced handshake")
	flagHex        bool
	flagMessages   messageList
)

func main() {
	flag.Var(&flagMessages, "message", "message to verify (repeatable)")
	flag.BoolVar(&flagHex, "hex", false, "messages are hex encoded")
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tbrunner: %v\n", err)
		os.Exit(2)
	}
	log, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tbrunner: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed, err := run(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("testbench aborted")
		os.Exit(2)
	}
	if failed {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*flagConfig)
	if err != nil {
		return cfg, err
	}
	if *flagLayout != "" {
		cfg.Padding.Layout = *flagLayout
	}
	if *flagBudget != 0 {
		cfg.Driver.CycleBudget = *flagBudget
	}
	if *flagFault != "" {
		cfg.Engine.Fault = *flagFault
	}
	if *flagLogLevel != "" {
		cfg.Log.Level = *flagLogLevel
	}
	if len(flagMessages) > 0 {
		cfg.Messages = nil
		for _, m := range flagMessages {
			if flagHex {
				raw, err := hex.DecodeString(m)
				if err != nil {
					return cfg, fmt.Errorf("decode -message %q: %w", m, err)
				}
				m = string(raw)
			}
			cfg.Messages = append(cfg.Messages, m)
		}
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) (bool, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return false, err
	}
	fault, err := cfg.Fault()
	if err != nil {
		return false, err
	}

	col := metrics.New()
	az := analyzer.NewAnalyzer()
	bench, err := testbench.New(testbench.Config{
		Clock:       cfg.Clock,
		CycleBudget: cfg.Driver.CycleBudget,
		Layout:      layout,
		Engine: func() engine.Engine {
			return engine.NewSoft(
				engine.WithCyclesPerRound(cfg.Engine.CyclesPerRound),
				engine.WithFault(fault),
				engine.WithLogger(log),
			)
		},
		TraceSize: *flagTrace,
		Log:       log,
		Metrics:   col,
		Analyzer:  az,
	})
	if err != nil {
		return false, err
	}
	log.WithFields(logrus.Fields{
		"layout": layout,
		"budget": cfg.Driver.CycleBudget,
		"clock":  fmt.Sprintf("%d%s", cfg.Clock.Period, cfg.Clock.Unit),
		"fault":  fault,
	}).Info("testbench configured")

	var sig feedback.RuntimeSignature
	switch {
	case *flagCampaign > 0:
		sig, err = runCampaign(ctx, bench, log)
	case *flagCorpus:
		sig, err = runCorpus(ctx, bench, cfg, log)
	default:
		sig, err = runMessages(ctx, bench, cfg.Messages)
	}
	if err != nil {
		return false, err
	}

	for _, bits := range az.GetDimensions() {
		h := az.Histogram(bits)
		log.WithFields(logrus.Fields{
			"message_bits": bits,
			"runs":         h.Total,
			"mean_cycles":  h.Mean(),
		}).Debug("handshake latency")
	}
	log.WithFields(logrus.Fields{
		"pass":         sig.PassCount,
		"failed":       sig.BugFoundCount,
		"precondition": sig.PreconditionCount,
		"kinds":        sig.BugKinds,
	}).Info("testbench finished")

	if *flagMetricsOut != "" {
		if err := writeMetrics(*flagMetricsOut, col); err != nil {
			return false, err
		}
	}
	return sig.Failed(), nil
}

func runMessages(ctx context.Context, bench *testbench.Bench, messages []string) (feedback.RuntimeSignature, error) {
	msgs := make([][]byte, len(messages))
	for i, m := range messages {
		msgs[i] = []byte(m)
	}
	if *flagCrossCheck != "" {
		if err := crossCheck(ctx, msgs); err != nil {
			return feedback.RuntimeSignature{}, err
		}
	}
	_, sig, err := bench.RunAll(ctx, msgs, *flagParallel)
	return sig, err
}

func runCorpus(ctx context.Context, bench *testbench.Bench, cfg config.Config, log *logrus.Logger) (feedback.RuntimeSignature, error) {
	vectors, err := corpus.NewLoader(cfg.Corpus.Root, cfg.Corpus.Limit).Collect()
	if err != nil {
		return feedback.RuntimeSignature{}, err
	}
	log.WithField("vectors", len(vectors)).Info("corpus loaded")

	sig := feedback.NewRuntimeSignature()
	msgs := make([][]byte, 0, len(vectors))
	for _, v := range vectors {
		if err := v.Verify(); err != nil {
			log.WithError(err).WithField("message", hex.EncodeToString(v.Message)).Error("stale corpus vector")
			sig.Observe(err)
			continue
		}
		msgs = append(msgs, v.Message)
	}
	if *flagCrossCheck != "" {
		if err := crossCheck(ctx, msgs); err != nil {
			return sig, err
		}
	}
	_, runSig, err := bench.RunAll(ctx, msgs, *flagParallel)
	sig.Merge(runSig)
	return sig, err
}

func runCampaign(ctx context.Context, bench *testbench.Bench, log *logrus.Logger) (feedback.RuntimeSignature, error) {
	seed := *flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.WithField("seed", seed).Info("starting random campaign")
	c := fuzzer.Campaign{
		Fuzzer:        fuzzer.NewBenchFuzzer(bench),
		Rand:          rand.New(rand.NewSource(seed)),
		Iterations:    *flagCampaign,
		StopOnFailure: *flagStop,
		Log:           log,
	}
	if *flagBuckets {
		d := domains.MessageDomain()
		if err := d.Validate(); err != nil {
			return feedback.NewRuntimeSignature(), err
		}
		c.Domain = &d
	}
	rep, err := c.Run(ctx)
	if err != nil {
		return rep.Signature, err
	}
	log.WithFields(logrus.Fields{
		"executed": rep.Executed,
		"coverage": rep.Coverage,
	}).Info("campaign done")
	if rep.FirstFailure != nil {
		fields := logrus.Fields{"message": hex.EncodeToString(rep.FirstFailure)}
		if len(rep.FirstFailureTrace) > 0 {
			fields["trace_entries"] = len(rep.FirstFailureTrace)
			if cycles, ok := analyzer.HandshakeLatency(rep.FirstFailureTrace,
				tracer.SignalID("block_valid"), tracer.SignalID("hash_valid")); ok {
				fields["handshake_cycles"] = cycles
			}
		}
		log.WithFields(fields).Warn("first failing message")
	}
	return rep.Signature, nil
}

func crossCheck(ctx context.Context, msgs [][]byte) error {
	ext, err := cmdoracle.New(*flagCrossCheck)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if err := ext.CrossCheck(ctx, m); err != nil {
			return fmt.Errorf("reference cross-check: %w", err)
		}
	}
	return nil
}

func writeMetrics(path string, col *metrics.Collector) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer f.Close()
	return col.WriteText(f)
}
