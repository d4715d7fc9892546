package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	m "psfix.dev/pkg/psfix/internal/model"
)

// ProcessAll distributes the files across a bounded worker pool. Files are
// independent: no cross-file ordering is guaranteed, and the content cache
// is the only shared resource. Cancellation is cooperative and checked at
// file boundaries: completed files keep their fixes (and backups), files not
// yet started are reported as skipped.
func (e *Engine) ProcessAll(ctx context.Context, files []m.Path, mode m.Mode, opts m.Options) ([]m.FileReport, m.Session, error) {
	workers := opts.Parallel
	if workers < 1 {
		workers = 1
	}

	reports := make([]m.FileReport, len(files))

	group := errgroup.Group{}
	group.SetLimit(workers)

	started := time.Now()

	for i, path := range files {
		i, path := i, path
		group.Go(func() error {
			// Checkpoint: a cancelled run must not start new files.
			if ctx.Err() != nil {
				reports[i] = m.FileReport{Path: path, Skipped: true}
				return nil
			}

			reports[i] = e.ProcessFile(ctx, path, mode, opts)

			return nil
		})
	}

	// Workers never return errors; per-file failures live in the reports.
	_ = group.Wait()

	var session m.Session
	for _, report := range reports {
		session.Observe(report)
	}

	slog.Info("run finished",
		"mode", mode.String(),
		"files", len(files),
		"processed", session.FilesProcessed,
		"skipped", session.FilesSkipped,
		"failed", session.FilesFailed,
		"diagnostics", session.Diagnostics,
		"fixes", session.FixesApplied,
		"duration", time.Since(started),
	)

	return reports, session, ctx.Err()
}
