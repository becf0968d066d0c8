package config

import (
	"fmt"
	"os"
	"strings"

	"alma.local/shatb/driver"
	"alma.local/shatb/engine"
	"alma.local/shatb/padding"
	"alma.local/shatb/sim"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config is the testbench configuration file.
type Config struct {
	Clock    sim.Config `yaml:"clock"`
	Driver   Driver     `yaml:"driver"`
	Padding  Padding    `yaml:"padding"`
	Engine   Engine     `yaml:"engine"`
	Log      Log        `yaml:"log"`
	Corpus   Corpus     `yaml:"corpus"`
	Messages []string   `yaml:"messages"`
}

type Driver struct {
	CycleBudget uint64 `yaml:"cycle_budget"`
}

type Padding struct {
	Layout string `yaml:"layout"`
}

type Engine struct {
	CyclesPerRound int    `yaml:"cycles_per_round"`
	Fault          string `yaml:"fault"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Corpus struct {
	Root  string `yaml:"root"`
	Limit int    `yaml:"limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Clock:   sim.DefaultConfig(),
		Driver:  Driver{CycleBudget: driver.DefaultCycleBudget},
		Padding: Padding{Layout: padding.LayoutCompact.String()},
		Engine:  Engine{CyclesPerRound: 1, Fault: engine.FaultNone.String()},
		Log:     Log{Level: "info", Format: "text"},
		Corpus:  Corpus{Root: "corpus/vectors", Limit: 0},
		Messages: []string{
			"Hello, World",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the testbench cannot run with.
func (c Config) Validate() error {
	if err := c.Clock.Validate(); err != nil {
		return err
	}
	if c.Driver.CycleBudget == 0 {
		return fmt.Errorf("config: driver.cycle_budget must be positive")
	}
	if _, err := c.Layout(); err != nil {
		return err
	}
	if _, err := c.Fault(); err != nil {
		return err
	}
	if c.Engine.CyclesPerRound <= 0 {
		return fmt.Errorf("config: engine.cycles_per_round must be positive")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unsupported log.format %q (expected text or json)", c.Log.Format)
	}
	for i, m := range c.Messages {
		if len(m) > padding.MaxMessageSize {
			return fmt.Errorf("config: messages[%d] is %d bytes, limit is %d", i, len(m), padding.MaxMessageSize)
		}
	}
	return nil
}

// Layout returns the configured padding layout.
func (c Config) Layout() (padding.Layout, error) {
	return padding.ParseLayout(c.Padding.Layout)
}

// Fault returns the configured engine fault.
func (c Config) Fault() (engine.Fault, error) {
	return engine.ParseFault(c.Engine.Fault)
}

// Logger builds a logger from the log section.
func (c Config) Logger() (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	l := logrus.New()
	l.SetLevel(lvl)
	if strings.ToLower(c.Log.Format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}
