// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package main

import (
	cryptorand "crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/bipbap/bipbap/internal/config"
	"github.com/bipbap/bipbap/internal/image"
	"github.com/bipbap/bipbap/internal/pipeline/context"
)

type runFlags struct {
	verbose bool

	low, mid, high bool
	output         string
	mapping        string
	parallelism    int
	seed           seedFlag
}

func (f *runFlags) register(persistent, local *pflag.FlagSet) {
	persistent.BoolVarP(&f.verbose, "verbose", "V", false, "Print debug logs")

	local.BoolVar(&f.low, "low", false, "Use the Low intensity preset")
	local.BoolVar(&f.mid, "mid", false, "Use the Medium intensity preset")
	local.BoolVar(&f.high, "high", false, "Use the High intensity preset")
	local.StringVarP(&f.output, "output", "o", "", "Output archive (default <input>-obf.jar)")
	local.StringVar(&f.mapping, "mapping", "", "Write the rename mapping to this file")
	local.IntVarP(&f.parallelism, "parallelism", "p", 0, "Classes transformed at once (default number of CPUs)")
	local.Var(&f.seed, "seed", "Base64-encoded seed for all randomness, or \"random\"")
	local.Lookup("seed").DefValue = "random"
}

// preset returns the preset selected on the command line. It is ignored
// when a configuration file parses.
func (f *runFlags) preset() (config.Preset, error) {
	preset := config.PresetNone
	var n int
	for p, set := range map[config.Preset]bool{
		config.PresetLow:    f.low,
		config.PresetMedium: f.mid,
		config.PresetHigh:   f.high,
	} {
		if set {
			preset = p
			n++
		}
	}
	if n > 1 {
		return config.PresetNone, fmt.Errorf("only one of --low, --mid and --high may be given")
	}
	return preset, nil
}

type seedFlag struct {
	random bool
	bytes  []byte
}

func (f seedFlag) present() bool { return len(f.bytes) > 0 }

func (f seedFlag) String() string {
	return base64.RawStdEncoding.EncodeToString(f.bytes)
}

func (seedFlag) Type() string { return "seed" }

func (f *seedFlag) Set(s string) error {
	if s == "random" {
		f.random = true
		f.bytes = make([]byte, 8)
		if _, err := cryptorand.Read(f.bytes); err != nil {
			return fmt.Errorf("error generating random seed: %v", err)
		}
		return nil
	}
	// We expect unpadded base64, but to be nice, accept padded
	// strings too.
	s = strings.TrimRight(s, "=")
	seed, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("error decoding seed: %v", err)
	}
	// Only the first 8 bytes are used.
	if len(seed) < 8 {
		return fmt.Errorf("--seed needs at least 8 bytes, have %d", len(seed))
	}
	f.random = false
	f.bytes = seed
	return nil
}

// value returns the seed of the run's random source, picking one at random
// if none was given.
func (f *seedFlag) value() (int64, error) {
	if !f.present() {
		if err := f.Set("random"); err != nil {
			return 0, err
		}
	}
	return int64(binary.BigEndian.Uint64(f.bytes[:8])), nil
}

var (
	colorTitle = color.New(color.Bold, color.FgHiCyan).SprintFunc()
	colorStage = color.New(color.FgHiBlue).SprintFunc()
	colorCount = color.New(color.FgHiGreen).SprintFunc()
	colorFaint = color.New(color.Faint).SprintFunc()
)

// printSummary writes what each stage did, what went into the output
// archive, and the failures that were skipped over.
func printSummary(w io.Writer, ctx *context.Context, written *image.Report, elapsed time.Duration) {
	fmt.Fprintln(w, colorTitle("bipbap summary"))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, st := range ctx.Stats.Stages() {
		fmt.Fprintf(tw, "  %s\t%s\n", colorStage(st.Name), colorFaint(st.Elapsed.Round(time.Millisecond)))
		st.Each(func(key string, n int64) {
			fmt.Fprintf(tw, "    %s\t%s\n", key, colorCount(humanize.Comma(n)))
		})
	}
	tw.Flush()
	fmt.Fprintf(w, "  wrote %s classes and %s resources to %s (%s) in %s\n",
		colorCount(humanize.Comma(int64(written.Classes))),
		colorCount(humanize.Comma(int64(written.Resources))),
		ctx.Config.Settings.Output,
		humanize.Bytes(uint64(written.Bytes)),
		elapsed.Round(time.Millisecond),
	)
	for _, err := range ctx.Report.Errors() {
		log.WithError(err).Warn("skipped")
	}
}
