// Package main is the entry point for the txt command.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dshills/txt/internal/config"
	"github.com/dshills/txt/internal/engine/sequence"
	"github.com/dshills/txt/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the global flags.
type options struct {
	ConfigPath string
	LogLevel   string
	LineBreak  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("txt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts        options
		showVersion bool
	)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.LineBreak, "linebreak", "", "Fallback line-break standard (LINUX, MSDOS, MAC)")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "txt - piece-table text engine\n\n")
		fmt.Fprintf(stderr, "Usage: txt [options] <command> [arguments]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  stats FILE               Print line-break and word counts\n")
		fmt.Fprintf(stderr, "  cat FILE                 Print the document\n")
		fmt.Fprintf(stderr, "  detect FILE              Print the detected line-break standard\n")
		fmt.Fprintf(stderr, "  run [-save] SCRIPT FILE  Apply a Lua script to FILE\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if showVersion {
		fmt.Fprintf(stdout, "txt %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	a, err := newApp(opts, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.shutdown()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "stats":
		err = a.stats(rest)
	case "cat":
		err = a.cat(rest)
	case "detect":
		err = a.detect(rest)
	case "run":
		err = a.runScript(rest)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
	if err != nil {
		a.report(err)
		return 1
	}
	return 0
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	var cfgOpts []config.Option
	if opts.ConfigPath != "" {
		cfgOpts = append(cfgOpts, config.WithFile(opts.ConfigPath))
	}
	cfg := config.New(cfgOpts...)
	if err := cfg.Load(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.LogLevel != "" {
		if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
			return nil, err
		}
		if err := cfg.Set("log.level", opts.LogLevel); err != nil {
			return nil, err
		}
	}
	if opts.LineBreak != "" {
		if _, err := sequence.ParseLineStd(opts.LineBreak); err != nil {
			return nil, err
		}
		if err := cfg.Set("linebreak.fallback", opts.LineBreak); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
