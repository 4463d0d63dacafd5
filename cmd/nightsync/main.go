package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/nightsync/internal"
	"github.com/starford/nightsync/internal/evidence"
	"github.com/starford/nightsync/internal/mcpserver"
	"github.com/starford/nightsync/internal/report"
	pkgconfig "github.com/starford/nightsync/pkg/config"
)

const version = "1.0.0"

// loadConfig layers defaults, the optional YAML file and explicit flags, in
// that order, then validates the result.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	if path := cmd.String("config"); path != "" {
		if err := pkgconfig.Load(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cmd.IsSet("memory") {
		cfg.Memory.Export = cmd.String("memory")
	}
	if cmd.IsSet("memory-db") {
		cfg.Memory.DB = cmd.String("memory-db")
	}
	if cmd.IsSet("evidence-root") {
		cfg.Evidence.Root = cmd.String("evidence-root")
	}
	if cmd.IsSet("evidence-prefix") {
		cfg.Evidence.Prefix = cmd.String("evidence-prefix")
	}
	if cmd.IsSet("spec") {
		cfg.Specs = cmd.StringSlice("spec")
	}
	if cmd.IsSet("allowlist") {
		cfg.Allowlist.Path = cmd.String("allowlist")
	}
	if cmd.IsSet("json-out") {
		cfg.Report.JSONOut = cmd.String("json-out")
	}
	if cmd.IsSet("pretty") {
		cfg.Report.Pretty = cmd.Bool("pretty")
	}
	if cmd.IsSet("repo-root") {
		cfg.Repo.Root = cmd.String("repo-root")
	}
	if cmd.IsSet("log-level") {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	if err := pkgconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol; logs stay on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	logger.Info("MCP server starting", slog.String("version", version))
	return mcpserver.New(cfg, logger, version).ServeStdio()
}

// newCommand builds the CLI. Reports go to stdout, and the outcome of the
// drift check is stored in exitCode.
func newCommand(stdout, stderr io.Writer, exitCode *int) *cli.Command {
	return &cli.Command{
		Name:      "nightsync",
		Usage:     "Detect drift between local-memory exports and guardrail evidence",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			r, err := internal.Run(ctx,
				internal.WithConfig(cfg),
				internal.WithStdout(stdout),
				internal.WithStderr(stderr),
			)
			*exitCode = report.ExitCode(r, err)
			return err
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to an optional YAML config file",
				Sources: cli.EnvVars("NIGHTSYNC_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:        "memory",
				Usage:       "Path to the local-memory export JSONL",
				DefaultText: internal.DefaultMemoryExport,
				Sources:     cli.EnvVars("NIGHTSYNC_MEMORY"),
			},
			&cli.StringFlag{
				Name:    "memory-db",
				Usage:   "Read memories from the local-memory SQLite database instead of an export",
				Sources: cli.EnvVars("NIGHTSYNC_MEMORY_DB"),
			},
			&cli.StringFlag{
				Name:    "evidence-root",
				Usage:   "Evidence artifacts root directory",
				Value:   evidence.DefaultRoot,
				Sources: cli.EnvVars("NIGHTSYNC_EVIDENCE_ROOT"),
			},
			&cli.StringFlag{
				Name:    "evidence-prefix",
				Usage:   "Path prefix that marks an evidence citation in memory text",
				Value:   evidence.DefaultRoot,
				Sources: cli.EnvVars("NIGHTSYNC_EVIDENCE_PREFIX"),
			},
			&cli.StringSliceFlag{
				Name:  "spec",
				Usage: "Limit comparison to one or more SPEC IDs (repeatable); GLOBAL selects unscoped paths",
			},
			&cli.StringFlag{
				Name:    "allowlist",
				Usage:   "Optional newline-delimited glob list of paths or spec ids that may drift",
				Sources: cli.EnvVars("NIGHTSYNC_ALLOWLIST"),
			},
			&cli.StringFlag{
				Name:  "json-out",
				Usage: "Optional file path to write the JSON report",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
			&cli.StringFlag{
				Name:    "repo-root",
				Usage:   "Repository root for resolving inputs and rendering relative paths",
				Sources: cli.EnvVars("NIGHTSYNC_REPO_ROOT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("NIGHTSYNC_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the drift check as an MCP tool over stdio",
				Action: serveMCP,
			},
		},
	}
}

// run executes the CLI and returns the process exit status. Any error,
// including a cancelled context, is an operational failure.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	exitCode := report.ExitClean
	if err := newCommand(stdout, stderr, &exitCode).Run(ctx, args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		return report.ExitOperational
	}
	return exitCode
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
