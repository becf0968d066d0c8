package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"alma.local/shatb/internal/config"
	"alma.local/shatb/internal/corpus"
	"alma.local/shatb/padding"
)

var (
	flagConfig = flag.String("config", "", "path to YAML testbench config")
	flagOut    = flag.String("out", "", "output directory (default: corpus.root from config)")
	flagLayout = flag.String("layout", "", "padding layout override: compact or standard")
	flagLimit  = flag.Int("limit", 0, "maximum number of vectors to export (<=0 disables the cap)")
	flagFormat = flag.String("format", "dir", "output format: dir or zip")
	flagSweep  = flag.Bool("sweep", true, "add one vector per message length 0..31")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *flagLayout != "" {
		cfg.Padding.Layout = *flagLayout
	}
	layout, err := cfg.Layout()
	if err != nil {
		log.Fatalf("layout: %v", err)
	}

	format := strings.ToLower(*flagFormat)
	if format != "dir" && format != "zip" {
		log.Fatalf("unsupported format %q (expected dir or zip)", format)
	}
	base := *flagOut
	if base == "" {
		base = cfg.Corpus.Root
	}

	vectors, err := buildVectors(cfg.Messages, layout, *flagSweep, *flagLimit)
	if err != nil {
		log.Fatalf("build vectors: %v", err)
	}
	if len(vectors) == 0 {
		log.Fatalf("no vectors selected")
	}

	fmt.Printf("[corpus] exporting %d vectors (%s layout) -> %s (%s)\n", len(vectors), layout, base, format)
	if format == "dir" {
		err = corpus.WriteDir(base, vectors)
	} else {
		err = corpus.WriteZip(base+".zip", vectors)
	}
	if err != nil {
		log.Fatalf("write %s: %v", base, err)
	}
	fmt.Printf("[corpus] done\n")
}

// buildVectors returns the configured messages followed by a length sweep
// of a repeating byte pattern.
func buildVectors(messages []string, layout padding.Layout, sweep bool, limit int) ([]*corpus.Vector, error) {
	var msgs [][]byte
	for _, m := range messages {
		msgs = append(msgs, []byte(m))
	}
	if sweep {
		for n := 0; n <= padding.MaxMessageSize; n++ {
			msg := make([]byte, n)
			for i := range msg {
				msg[i] = byte('a' + i%26)
			}
			msgs = append(msgs, msg)
		}
	}

	var out []*corpus.Vector
	for _, m := range msgs {
		if limit > 0 && len(out) >= limit {
			break
		}
		v, err := corpus.NewVector(m, layout)
		if err != nil {
			return nil, fmt.Errorf("message %q: %w", m, err)
		}
		out = append(out, v)
	}
	return out, nil
}
