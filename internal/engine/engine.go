package engine

import (
	"context"
	"fmt"
	"log/slog"

	"psfix.dev/pkg/psfix/internal/adapter"
	"psfix.dev/pkg/psfix/internal/backup"
	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/rules"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// Engine is the per-run pipeline: cache lookup, detection, fixing,
// backup/diff, and scheduling. It holds no global state; all configuration
// arrives through m.Options at each call.
type Engine struct {
	fs       adapter.SourceFSAdapter
	registry *rules.Registry
	detector *Detector
	fixer    *FixEngine
	cache    *Cache
	backups  *backup.Store
}

// New assembles an engine. An empty registry is a fatal configuration error
// reported here, before any file is touched.
func New(fs adapter.SourceFSAdapter, registry *rules.Registry, backups *backup.Store, cacheEntries int) (*Engine, error) {
	if err := registry.Validate(); err != nil {
		return nil, err
	}

	cache, err := NewCache(cacheEntries)
	if err != nil {
		return nil, err
	}

	return &Engine{
		fs:       fs,
		registry: registry,
		detector: NewDetector(registry),
		fixer:    NewFixEngine(registry, backup.UnifiedDiff),
		cache:    cache,
		backups:  backups,
	}, nil
}

// Registry exposes the engine's rule table, e.g. for listing.
func (e *Engine) Registry() *rules.Registry { return e.registry }

// parseAndDetect is the cache compute function: parse the text and run the
// full detector set with an empty path, so entries are shareable across
// files with identical content.
func (e *Engine) parseAndDetect(text string, opts m.Options) (*CacheEntry, error) {
	unit := m.NewSourceUnit("", text)

	tree, err := syntax.Parse(text)
	if err != nil {
		return nil, err
	}

	unit.Tree = tree

	return &CacheEntry{
		Tree:        tree,
		Diagnostics: e.detector.Detect(unit, opts),
	}, nil
}

// lookup returns the tree and path-bound diagnostics for the unit, going
// through the cache when enabled.
func (e *Engine) lookup(unit *m.SourceUnit, opts m.Options) (*syntax.Tree, []m.Diagnostic, error) {
	var (
		entry *CacheEntry
		err   error
	)

	if opts.UseCache {
		entry, err = e.cache.GetOrCompute(unit.Hash, func() (*CacheEntry, error) {
			return e.parseAndDetect(unit.Text, opts)
		})
	} else {
		entry, err = e.parseAndDetect(unit.Text, opts)
	}

	if err != nil {
		return nil, nil, err
	}

	diags := make([]m.Diagnostic, len(entry.Diagnostics))
	copy(diags, entry.Diagnostics)

	for i := range diags {
		diags[i].Path = unit.Path
	}

	return entry.Tree, diags, nil
}

// ProcessFile runs the pipeline for a single file. All failures are
// file-scoped: they are reported in the returned FileReport, never
// propagated, so one bad file cannot abort the batch.
func (e *Engine) ProcessFile(ctx context.Context, path m.Path, mode m.Mode, opts m.Options) m.FileReport {
	report := m.FileReport{Path: path}

	text, err := e.fs.ReadFile(ctx, path)
	if err != nil {
		report.Err = fmt.Sprintf("read failed: %v", err)
		return report
	}

	unit := m.NewSourceUnit(path, text)

	tree, diags, err := e.lookup(unit, opts)
	if err != nil {
		report.Err = err.Error()
		return report
	}

	unit.Tree = tree
	report.Diagnostics = diags

	if mode != m.ModeFix {
		return report
	}

	outcome, err := e.fixer.Apply(path, text, opts)
	if err != nil {
		report.Err = err.Error()
		return report
	}

	if opts.DryRun {
		for i := range outcome.Results {
			outcome.Results[i].Applied = false
		}

		report.Fixes = outcome.Results

		return report
	}

	if !outcome.Changed {
		report.Fixes = outcome.Results
		return report
	}

	// The backup must exist before any mutating edit reaches the disk.
	if _, err := e.backups.Snapshot(path, text); err != nil {
		report.Err = fmt.Sprintf("backup failed, file left untouched: %v", err)
		markUnapplied(outcome.Results, "backup failed")
		report.Fixes = outcome.Results

		return report
	}

	if err := e.fs.WriteFileAtomic(ctx, path, outcome.Text); err != nil {
		report.Err = fmt.Sprintf("write failed, file left untouched: %v", err)
		markUnapplied(outcome.Results, "write failed")
		report.Fixes = outcome.Results

		return report
	}

	slog.Info("applied fixes", "path", path, "fixes", len(outcome.Results))

	report.Fixes = outcome.Results

	// Re-detect on the fixed text so the report reflects what remains.
	fixedUnit := m.NewSourceUnit(path, outcome.Text)

	_, remaining, err := e.lookup(fixedUnit, opts)
	if err == nil {
		report.Diagnostics = remaining
	}

	return report
}

func markUnapplied(results []m.FixResult, reason string) {
	for i := range results {
		if results[i].Applied {
			results[i].Applied = false
			results[i].FailureReason = reason
		}
	}
}
