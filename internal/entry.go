// Package internal wires the drift check: configuration, logging, the
// detection pipeline and report output.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/nightsync/internal/checksum"
	"github.com/starford/nightsync/internal/drift"
	"github.com/starford/nightsync/internal/report"
	"github.com/starford/nightsync/internal/storage"
)

// Run performs one drift check and writes the human and JSON reports to
// stdout. The returned report is nil whenever err is non-nil, and nothing
// is printed in that case.
func Run(ctx context.Context, opts ...Option) (*drift.Report, error) {
	app := &application{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		// Structured JSON logs go to stderr; stdout carries the reports.
		logger = slog.New(slog.NewJSONHandler(app.stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}

	logger.Debug("Configuration loaded",
		slog.String("memory_export", cfg.Memory.ExportPath()),
		slog.String("memory_db", cfg.Memory.DB),
		slog.String("evidence_root", cfg.Evidence.Root),
		slog.String("evidence_prefix", cfg.Evidence.Prefix),
		slog.String("allowlist", cfg.Allowlist.Path),
		slog.Any("specs", cfg.Specs),
		slog.String("log_level", cfg.App.LogLevel.String()))

	res, err := Detect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run aborted: %w", err)
	}
	r := res.Report

	payload, err := report.Marshal(r, cfg.Report.Pretty)
	if err != nil {
		return nil, err
	}

	if out := cfg.Report.JSONOut; out != "" {
		out = resolveWithRoot(out, res.RepoRoot)
		body := append(payload, '\n')
		sum := checksum.Sum(body)
		if err := storage.WriteFileAtomic(out, body); err != nil {
			return nil, fmt.Errorf("write json report: %w", err)
		}
		if err := checksum.Verify(out, sum); err != nil {
			return nil, fmt.Errorf("write json report: %w", err)
		}
		logger.Debug("JSON report written",
			slog.String("path", out),
			slog.String("sha256", sum))
	}

	meta := report.Meta{
		MemoryFile:   storage.RelativeTo(res.MemoryFile, res.RepoRoot),
		EvidenceRoot: storage.RelativeTo(res.EvidenceRoot, res.RepoRoot),
	}
	if err := writeReports(app.stdout, r, meta, payload); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	attrs := []any{
		slog.Int("missing_memory", len(r.MissingMemory)),
		slog.Int("missing_evidence", len(r.MissingEvidence)),
		slog.Int("memory_entries_scanned", r.Stats.MemoryEntriesScanned),
		slog.Int("evidence_files_scanned", r.Stats.EvidenceFilesScanned),
	}
	if r.DriftDetected {
		logger.Warn("Drift detected", attrs...)
	} else {
		logger.Info("No drift detected", attrs...)
	}

	return r, nil
}

func writeReports(w io.Writer, r *drift.Report, meta report.Meta, payload []byte) error {
	if err := report.Human(w, r, meta); err != nil {
		return err
	}
	return report.JSONSection(w, payload)
}
