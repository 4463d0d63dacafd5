package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/starford/nightsync/internal/allowlist"
	"github.com/starford/nightsync/internal/drift"
	"github.com/starford/nightsync/internal/evidence"
	"github.com/starford/nightsync/internal/memory"
	"github.com/starford/nightsync/internal/storage"
)

// Result is a finished drift check together with the resolved inputs.
type Result struct {
	Report       *drift.Report
	RepoRoot     string
	MemoryFile   string
	EvidenceRoot string
}

// Detect runs one drift check. The memory extraction and the evidence scan
// are independent and run side by side; the report is assembled once both
// finish, so it depends only on the inputs. Both legs always run to the end
// and a memory error wins over a scan error, keeping failures repeatable.
func Detect(ctx context.Context, cfg *Config, logger *slog.Logger) (*Result, error) {
	repoRoot, err := resolveRepoRoot(cfg.Repo.Root)
	if err != nil {
		return nil, err
	}

	patterns, err := allowlist.Load(resolveWithRoot(cfg.Allowlist.Path, repoRoot))
	if err != nil {
		return nil, err
	}
	matcher, err := allowlist.New(patterns)
	if err != nil {
		return nil, err
	}

	src := memorySource(cfg, repoRoot)
	evidenceRoot := resolveWithRoot(cfg.Evidence.Root, repoRoot)
	filter := evidence.NewFilter(cfg.Specs...)

	var (
		index   memory.Index
		scanned int
		files   storage.PathSet
		memErr  error
		g       errgroup.Group
	)

	g.Go(func() error {
		index, scanned, memErr = memory.Extract(ctx, src, cfg.Evidence.Prefix, filter)
		if memErr != nil {
			return memErr
		}
		logger.Debug("memory scanned",
			slog.String("source", src.Name()),
			slog.Int("records", scanned),
			slog.Int("paths", len(index)))
		return nil
	})

	g.Go(func() error {
		var err error
		files, err = storage.Scan(ctx, evidenceRoot, repoRoot, filter)
		if err != nil {
			return err
		}
		logger.Debug("evidence scanned",
			slog.String("root", evidenceRoot),
			slog.Int("files", len(files)))
		return nil
	})

	// Wait returns whichever leg failed first. When both fail the memory
	// error is reported instead, so the message does not depend on
	// scheduling.
	if err := g.Wait(); err != nil {
		if memErr != nil {
			return nil, memErr
		}
		return nil, err
	}

	r := drift.Reconcile(drift.Input{
		Index:          index,
		RecordsScanned: scanned,
		Evidence:       files,
		Allowlist:      matcher,
		Filter:         filter,
	})

	return &Result{
		Report:       r,
		RepoRoot:     repoRoot,
		MemoryFile:   src.Name(),
		EvidenceRoot: evidenceRoot,
	}, nil
}

func memorySource(cfg *Config, repoRoot string) memory.Source {
	if cfg.Memory.DB != "" {
		return memory.NewSQLiteSource(resolveWithRoot(cfg.Memory.DB, repoRoot))
	}
	return memory.NewJSONLSource(resolveWithRoot(cfg.Memory.ExportPath(), repoRoot))
}

func resolveRepoRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve repo root: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve repo root: %w", err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

// resolveWithRoot anchors a relative path at the repo root. Empty stays
// empty.
func resolveWithRoot(p, repoRoot string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}
