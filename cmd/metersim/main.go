// metersim - invoice simulation CLI
//
// Usage:
//   metersim validate --dir scenarios
//   metersim run --dir scenarios --out results [--record] [--seed s1]
//   metersim report --dir scenarios --results results --format table --fail-on-diff
//   metersim serve
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"metercost/api"
	"metercost/config"
	"metercost/db/postgres"
	"metercost/report"
	"metercost/scenario"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	app := &cli.App{
		Name:    "metersim",
		Usage:   "Run, validate, and report deterministic invoice pricing scenarios",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"METERSIM_LOG_LEVEL"},
			},
		},

		Commands: []*cli.Command{
			validateCommand(),
			runCommand(),
			reportCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func scenarioFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "scenario",
			Aliases: []string{"s"},
			Usage:   "Path to a single scenario file (.sim.json / .sim.yaml)",
		},
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "Directory containing scenario files",
		},
	}
}

func collectTargets(c *cli.Context) ([]string, error) {
	targets, err := scenario.Collect(c.String("scenario"), c.String("dir"))
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no scenario provided: use --scenario <file> or --dir <directory>")
	}
	return targets, nil
}

// =============================================================================
// VALIDATE COMMAND
// =============================================================================

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "Validate scenario files against the scenario schema",
		Flags:  scenarioFlags(),
		Action: runValidate,
	}
}

func runValidate(c *cli.Context) error {
	targets, err := collectTargets(c)
	if err != nil {
		return err
	}

	hadError := false
	for _, file := range targets {
		if _, err := scenario.Load(file); err != nil {
			hadError = true
			fmt.Fprintf(os.Stderr, "Validation failed for %s:\n - %v\n", file, err)
			continue
		}
		fmt.Printf("OK: %s\n", file)
	}

	if hadError {
		return cli.Exit("", 1)
	}
	return nil
}

// =============================================================================
// RUN COMMAND
// =============================================================================

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run scenarios offline and emit result artifacts",
		Flags: append(scenarioFlags(),
			&cli.StringFlag{
				Name:  "seed",
				Usage: "Deterministic seed recorded in run metadata",
			},
			&cli.StringFlag{
				Name:  "out",
				Value: "results",
				Usage: "Output directory for result artifacts",
			},
			&cli.BoolFlag{
				Name:  "record",
				Usage: "Record results as expected artifacts next to scenarios",
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Postgres DSN for run history persistence",
				EnvVars: []string{"DATABASE_URL"},
			},
		),
		Action: runRun,
	}
}

func runRun(c *cli.Context) error {
	log := newLogger(c)

	targets, err := collectTargets(c)
	if err != nil {
		return err
	}

	var store *postgres.Store
	if dsn := c.String("store"); dsn != "" {
		store, err = postgres.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("connect run store: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(c.Context); err != nil {
			return err
		}
	}

	outDir := c.String("out")
	opts := scenario.RunOptions{Seed: c.String("seed")}
	hadError := false

	for _, file := range targets {
		sc, err := scenario.Load(file)
		if err != nil {
			hadError = true
			log.Error().Str("scenario", file).Err(err).Msg("load failed")
			continue
		}

		result, err := scenario.Run(sc, opts)
		if err != nil {
			hadError = true
			log.Error().Str("scenario", sc.Metadata.Name).Err(err).Msg("run failed")
			if store != nil {
				saveRun(c.Context, log, store, result, sc.Metadata.Name, opts.Seed, err)
			}
			continue
		}

		name := scenario.Name(file)
		resultPath := filepath.Join(outDir, name+".result.json")
		if err := writeJSON(resultPath, result.Invoice); err != nil {
			hadError = true
			log.Error().Str("scenario", name).Err(err).Msg("write result")
			continue
		}
		fmt.Printf("Wrote %s\n", resultPath)

		if c.Bool("record") {
			expectedPath := scenario.ExpectedPath(file)
			if err := writeJSON(expectedPath, result.Invoice); err != nil {
				hadError = true
				log.Error().Str("scenario", name).Err(err).Msg("record expected")
				continue
			}
			fmt.Printf("Recorded expected -> %s\n", expectedPath)
		}

		if store != nil {
			saveRun(c.Context, log, store, result, sc.Metadata.Name, opts.Seed, nil)
		}
	}

	if hadError {
		return cli.Exit("", 1)
	}
	return nil
}

func saveRun(ctx context.Context, log zerolog.Logger, store *postgres.Store, result *scenario.RunResult, name, seed string, runErr error) {
	run := postgres.Run{
		Scenario:  name,
		Seed:      seed,
		Status:    postgres.StatusCompleted,
		CreatedAt: time.Now().UTC(),
	}
	if runErr != nil || result == nil {
		run.Status = postgres.StatusFailed
		run.ID = uuid.New()
	} else {
		run.ID = result.RunID
		run.CreatedAt = result.RanAt
		if payload, err := json.Marshal(result.Invoice); err == nil {
			run.Result = payload
		}
	}
	if err := store.SaveRun(ctx, run); err != nil {
		log.Error().Str("scenario", name).Err(err).Msg("persist run")
	}
}

// =============================================================================
// REPORT COMMAND
// =============================================================================

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Diff result artifacts against expected artifacts",
		Flags: append(scenarioFlags(),
			&cli.StringFlag{
				Name:  "results",
				Value: "results",
				Usage: "Directory containing result artifacts",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json, md, html)",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write the report to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "fail-on-diff",
				Usage: "Exit non-zero if any scenario differs",
			},
		),
		Action: runReport,
	}
}

func runReport(c *cli.Context) error {
	targets, err := collectTargets(c)
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	summary := report.Generate(targets, c.String("results"))

	out := os.Stdout
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := report.Render(out, summary, format); err != nil {
		return err
	}

	if summary.HasDiffs() && c.Bool("fail-on-diff") {
		return cli.Exit("", 1)
	}
	return nil
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the invoice projection HTTP server",
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	log := newLogger(c)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var store *postgres.Store
	if cfg.DatabaseURL != "" {
		store, err = postgres.NewStore(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect run store: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(c.Context); err != nil {
			return err
		}
	}

	server := api.NewServer(store, &api.Config{
		Port:           cfg.Port,
		ReadTimeout:    api.DefaultConfig().ReadTimeout,
		WriteTimeout:   api.DefaultConfig().WriteTimeout,
		MaxRequestSize: api.DefaultConfig().MaxRequestSize,
		CORSOrigins:    cfg.CORSOrigins,
	}, log)

	return server.StartWithGracefulShutdown()
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
