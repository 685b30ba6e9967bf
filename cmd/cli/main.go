// Command cli reads a RolloutInput JSON from a file argument (or stdin), runs
// the episode, and writes the RolloutLog JSON to stdout.
//
// Environment variables set defaults that flags override:
//
//	MERGE_ENGINE_CONFIG   environment config file (.json, .yaml), replaces the input's config
//	MERGE_ENGINE_DATASET  write the episode's transitions to this .jsonl.zst file, replacing it
//	MERGE_ENGINE_DB       record the episode in this SQLite database
//	MERGE_ENGINE_VERBOSE  enable debug logging
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/cxd309/merge-engine/internal/config"
	"github.com/cxd309/merge-engine/internal/dataset"
	"github.com/cxd309/merge-engine/internal/engine"
	"github.com/cxd309/merge-engine/internal/monitoring"
	"github.com/cxd309/merge-engine/internal/store"
)

type cliConfig struct {
	ConfigPath  string `env:"MERGE_ENGINE_CONFIG"`
	DatasetPath string `env:"MERGE_ENGINE_DATASET"`
	DBPath      string `env:"MERGE_ENGINE_DB"`
	Verbose     bool   `env:"MERGE_ENGINE_VERBOSE"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "environment config file, overrides the input's config")
	fs.StringVar(&cfg.DatasetPath, "dataset", cfg.DatasetPath, "write transitions to this .jsonl.zst file, replacing it")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "record the episode in this SQLite database")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	monitoring.SetVerbose(cfg.Verbose)

	var (
		data []byte
		err  error
	)
	if fs.NArg() > 0 {
		data, err = os.ReadFile(fs.Arg(0))
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	var input engine.RolloutInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("invalid input JSON: %w", err)
	}
	if cfg.ConfigPath != "" {
		envCfg, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return err
		}
		input.Config = envCfg
	}

	log, err := engine.Rollout(input)
	if err != nil {
		return fmt.Errorf("rollout: %w", err)
	}

	if cfg.DatasetPath != "" {
		if err := writeDataset(cfg.DatasetPath, log); err != nil {
			return err
		}
	}
	if cfg.DBPath != "" {
		if err := recordEpisode(cfg.DBPath, log, input.Config); err != nil {
			return err
		}
	}

	out, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(out))
	return err
}

func writeDataset(path string, log engine.RolloutLog) error {
	w, err := dataset.Create(path)
	if err != nil {
		return err
	}
	if err := w.WriteRollout(log); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func recordEpisode(path string, log engine.RolloutLog, cfg *config.EnvironmentConfig) error {
	s, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()
	return s.RecordRollout(log, cfg)
}
