// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// bipbap obfuscates the classes of a JVM archive.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"

	"github.com/bipbap/bipbap/internal/config"
	"github.com/bipbap/bipbap/internal/image"
	"github.com/bipbap/bipbap/internal/modelcodec"
	"github.com/bipbap/bipbap/internal/pipeline"
	bctx "github.com/bipbap/bipbap/internal/pipeline/context"
)

func main() { os.Exit(main1()) }

func main1() int {
	log.SetHandler(clihandler.New(os.Stderr))
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		var exit errJustExit
		if errors.As(err, &exit) {
			return int(exit)
		}
		log.Error(err.Error())
		return 1
	}
	return 0
}

// errJustExit stops the program with the given status without printing
// anything more.
type errJustExit int

func (e errJustExit) Error() string { return fmt.Sprintf("exit: %d", e) }

// codec encodes and decodes the class entries of archives.
var codec image.Codec = modelcodec.Codec{}

func newRootCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "bipbap [flags] <input.jar> [config.json]",
		Short: "Obfuscate the classes of a JVM archive",
		Long: `bipbap rewrites the classes of a JVM archive to make them harder to read.

The input archive and an optional JSON configuration are given as arguments,
in any order. Without a configuration, the preset given by --low, --mid or
--high is used, Low by default. A configuration that parses takes precedence
over the preset flags; one that cannot be read falls back to the Low preset.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandObfuscate(cmd.Context(), &flags, args)
		},
	}
	flags.register(cmd.PersistentFlags(), cmd.Flags())
	cmd.AddCommand(newReverseCmd(), newSchemaCmd(), newInitCmd())
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Schema().MarshalJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
			return err
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [config.json]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.json"
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			log.WithField("path", path).Info("wrote default configuration")
			return nil
		},
	}
}

// splitArgs tells the configuration document from the input archive.
func splitArgs(args []string) (input, cfgPath string, err error) {
	for _, arg := range args {
		if strings.HasSuffix(strings.ToLower(arg), ".json") {
			if cfgPath != "" {
				return "", "", fmt.Errorf("two configuration files given: %s %s", cfgPath, arg)
			}
			cfgPath = arg
			continue
		}
		if input != "" {
			return "", "", fmt.Errorf("two input archives given: %s %s", input, arg)
		}
		input = arg
	}
	return input, cfgPath, nil
}

// defaultOutput names the output archive after the input one.
func defaultOutput(input string) string {
	return strings.TrimSuffix(input, ".jar") + "-obf.jar"
}

// loadConfig reads the configuration at path, or picks a preset. A document
// that cannot be used is replaced by the Low preset. A good one is written
// back with every option spelled out and wins over preset.
func loadConfig(path string, preset config.Preset) *config.Config {
	if path == "" {
		cfg := config.Default()
		if preset == config.PresetNone {
			preset = config.PresetLow
		}
		preset.Apply(cfg)
		log.Infof("using %s preset", preset)
		return cfg
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).Warnf("falling back to %s preset", config.PresetLow)
		cfg = config.Default()
		config.PresetLow.Apply(cfg)
		return cfg
	}
	if err := cfg.Save(path); err != nil {
		log.WithError(err).Warn("cannot normalize configuration file")
	}
	if preset != config.PresetNone {
		log.WithField("path", path).Warnf("ignoring %s preset in favor of the configuration file", preset)
	}
	return cfg
}

func commandObfuscate(ctx context.Context, flags *runFlags, args []string) error {
	start := time.Now()
	input, cfgPath, err := splitArgs(args)
	if err != nil {
		return err
	}
	preset, err := flags.preset()
	if err != nil {
		return err
	}
	if input == "" {
		return fmt.Errorf("no input archive given")
	}
	cfg := loadConfig(cfgPath, preset)
	cfg.Settings.Input = input
	cfg.Settings.Output = flags.output
	if cfg.Settings.Output == "" {
		cfg.Settings.Output = defaultOutput(input)
	}

	seed, err := flags.seed.value()
	if err != nil {
		return err
	}
	if flags.seed.random {
		log.WithField("seed", flags.seed.String()).Info("seed chosen at random")
	}

	img, report, err := image.ReadFile(cfg.Settings.Input, codec)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"classes":   report.Classes,
		"resources": report.Resources,
	}).Info("read input")

	rctx := bctx.Wrap(ctx, cfg, img, seed)
	rctx.Report = report
	if flags.parallelism > 0 {
		rctx.Parallelism = flags.parallelism
	}
	if err := pipeline.Run(rctx); err != nil {
		return err
	}

	written, err := image.WriteFile(cfg.Settings.Output, rctx.Image, codec, cfg.Settings.ShouldRemove)
	if err != nil {
		return err
	}
	for _, err := range written.Errors() {
		rctx.Report.Add(err)
	}
	if flags.mapping != "" {
		if err := rctx.Mapping.Save(flags.mapping); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"path":    flags.mapping,
			"entries": len(rctx.Mapping),
		}).Info("wrote mapping")
	}
	printSummary(os.Stderr, rctx, written, time.Since(start))
	return nil
}
