package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psfix.dev/pkg/psfix/internal/backup"
	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/rules"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// parseUnitForTest builds a unit with a parsed tree, failing the test on
// malformed input.
func parseUnitForTest(t *testing.T, text string) *m.SourceUnit {
	t.Helper()

	unit := m.NewSourceUnit("test.ps1", text)

	tree, err := syntax.Parse(text)
	require.NoError(t, err)

	unit.Tree = tree

	return unit
}

// fakeFS is an in-memory SourceFSAdapter for engine tests.
type fakeFS struct {
	mu    sync.Mutex
	files map[m.Path]string
}

func newFakeFS(files map[m.Path]string) *fakeFS {
	return &fakeFS{files: files}
}

func (f *fakeFS) Collect(_ context.Context, _ []m.Path, _ []string) ([]m.Path, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var paths []m.Path
	for path := range f.files {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	return paths, nil
}

func (f *fakeFS) ReadFile(_ context.Context, path m.Path) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}

	return content, nil
}

func (f *fakeFS) WriteFileAtomic(_ context.Context, path m.Path, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.files[path] = content

	return nil
}

func (f *fakeFS) content(path m.Path) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.files[path]
}

func newTestEngine(t *testing.T, fs *fakeFS) *Engine {
	t.Helper()

	store := backup.NewStore(m.Path(filepath.Join(t.TempDir(), "backups")))

	eng, err := New(fs, rules.DefaultRegistry(), store, 64)
	require.NoError(t, err)

	return eng
}

func TestEngine_New(t *testing.T) {
	t.Run("rejects an empty registry", func(t *testing.T) {
		store := backup.NewStore(m.Path(t.TempDir()))

		_, err := New(newFakeFS(nil), rules.NewRegistry(), store, 64)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "registry is empty")
	})
}

func TestEngine_ProcessFile(t *testing.T) {
	ctx := context.Background()
	opts := m.DefaultOptions()

	t.Run("analyze reports diagnostics and leaves the file alone", func(t *testing.T) {
		fs := newFakeFS(map[m.Path]string{"a.ps1": "gci .\n"})
		eng := newTestEngine(t, fs)

		report := eng.ProcessFile(ctx, "a.ps1", m.ModeAnalyze, opts)

		assert.Empty(t, report.Err)
		require.Len(t, report.Diagnostics, 1)
		assert.Equal(t, "PS-BP-001", report.Diagnostics[0].RuleID)
		assert.Empty(t, report.Fixes)
		assert.Equal(t, "gci .\n", fs.content("a.ps1"))
	})

	t.Run("fix rewrites the file and re-reports", func(t *testing.T) {
		fs := newFakeFS(map[m.Path]string{"a.ps1": "gci .\nInvoke-Expression $x\n"})
		eng := newTestEngine(t, fs)

		report := eng.ProcessFile(ctx, "a.ps1", m.ModeFix, opts)

		assert.Empty(t, report.Err)
		assert.Equal(t, "Get-ChildItem .\nInvoke-Expression $x\n", fs.content("a.ps1"))

		require.Len(t, report.Fixes, 1)
		assert.True(t, report.Fixes[0].Applied)

		// Diagnostics reflect the fixed text: the alias is gone, the
		// report-only finding remains.
		require.Len(t, report.Diagnostics, 1)
		assert.Equal(t, "PS-SEC-002", report.Diagnostics[0].RuleID)
	})

	t.Run("dry run mutates nothing", func(t *testing.T) {
		fs := newFakeFS(map[m.Path]string{"a.ps1": "gci .\n"})
		eng := newTestEngine(t, fs)

		dry := opts
		dry.DryRun = true

		report := eng.ProcessFile(ctx, "a.ps1", m.ModeFix, dry)

		assert.Equal(t, "gci .\n", fs.content("a.ps1"))
		require.Len(t, report.Fixes, 1)
		assert.False(t, report.Fixes[0].Applied)
	})

	t.Run("a backup exists before the fixed file is written", func(t *testing.T) {
		backupDir := filepath.Join(t.TempDir(), "backups")
		fs := newFakeFS(map[m.Path]string{"a.ps1": "gci .\n"})

		eng, err := New(fs, rules.DefaultRegistry(), backup.NewStore(m.Path(backupDir)), 64)
		require.NoError(t, err)

		report := eng.ProcessFile(ctx, "a.ps1", m.ModeFix, opts)
		require.Empty(t, report.Err)

		entries, err := os.ReadDir(backupDir)
		require.NoError(t, err)

		var snapshots []string
		for _, entry := range entries {
			if filepath.Ext(entry.Name()) == ".bak" {
				snapshots = append(snapshots, entry.Name())
			}
		}

		require.Len(t, snapshots, 1)

		content, err := os.ReadFile(filepath.Join(backupDir, snapshots[0]))
		require.NoError(t, err)
		assert.Equal(t, "gci .\n", string(content))
	})

	t.Run("unchanged files are not snapshotted", func(t *testing.T) {
		backupDir := filepath.Join(t.TempDir(), "backups")
		fs := newFakeFS(map[m.Path]string{"a.ps1": "Get-ChildItem .\n"})

		eng, err := New(fs, rules.DefaultRegistry(), backup.NewStore(m.Path(backupDir)), 64)
		require.NoError(t, err)

		report := eng.ProcessFile(ctx, "a.ps1", m.ModeFix, opts)
		require.Empty(t, report.Err)

		_, err = os.Stat(backupDir)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("parse failure is file-scoped", func(t *testing.T) {
		fs := newFakeFS(map[m.Path]string{"bad.ps1": "if ($x) {\n"})
		eng := newTestEngine(t, fs)

		report := eng.ProcessFile(ctx, "bad.ps1", m.ModeAnalyze, opts)

		assert.NotEmpty(t, report.Err)
		assert.Equal(t, "if ($x) {\n", fs.content("bad.ps1"))
	})

	t.Run("unreadable file is file-scoped", func(t *testing.T) {
		fs := newFakeFS(map[m.Path]string{})
		eng := newTestEngine(t, fs)

		report := eng.ProcessFile(ctx, "missing.ps1", m.ModeAnalyze, opts)

		assert.Contains(t, report.Err, "read failed")
	})
}

func TestEngine_CacheSharing(t *testing.T) {
	ctx := context.Background()
	opts := m.DefaultOptions()

	t.Run("identical content shares one cache entry", func(t *testing.T) {
		fs := newFakeFS(map[m.Path]string{
			"a.ps1": "gci .\n",
			"b.ps1": "gci .\n",
		})
		eng := newTestEngine(t, fs)

		reportA := eng.ProcessFile(ctx, "a.ps1", m.ModeAnalyze, opts)
		reportB := eng.ProcessFile(ctx, "b.ps1", m.ModeAnalyze, opts)

		assert.Equal(t, 1, eng.cache.Len())

		// Diagnostics are rebound to each file's own path.
		require.Len(t, reportA.Diagnostics, 1)
		require.Len(t, reportB.Diagnostics, 1)
		assert.Equal(t, m.Path("a.ps1"), reportA.Diagnostics[0].Path)
		assert.Equal(t, m.Path("b.ps1"), reportB.Diagnostics[0].Path)
	})

	t.Run("disabled cache stores nothing", func(t *testing.T) {
		fs := newFakeFS(map[m.Path]string{"a.ps1": "gci .\n"})
		eng := newTestEngine(t, fs)

		uncached := opts
		uncached.UseCache = false

		report := eng.ProcessFile(ctx, "a.ps1", m.ModeAnalyze, uncached)

		assert.Empty(t, report.Err)
		assert.Equal(t, 0, eng.cache.Len())
	})
}

func TestEngine_ProcessAll(t *testing.T) {
	ctx := context.Background()
	opts := m.DefaultOptions()

	scriptSet := func() map[m.Path]string {
		return map[m.Path]string{
			"a.ps1":   "gci .\n",
			"b.ps1":   "Write-Host \"hi\"\n",
			"bad.ps1": "if ($x) {\n",
			"c.ps1":   "Get-ChildItem .\n",
		}
	}

	t.Run("reports keep the input order", func(t *testing.T) {
		fs := newFakeFS(scriptSet())
		eng := newTestEngine(t, fs)

		files, err := fs.Collect(ctx, nil, nil)
		require.NoError(t, err)

		reports, session, err := eng.ProcessAll(ctx, files, m.ModeAnalyze, opts)
		require.NoError(t, err)
		require.Len(t, reports, len(files))

		for i, report := range reports {
			assert.Equal(t, files[i], report.Path)
		}

		assert.Equal(t, 3, session.FilesProcessed)
		assert.Equal(t, 1, session.FilesFailed)
	})

	t.Run("worker count does not change the outcome", func(t *testing.T) {
		runWith := func(parallel int) ([]m.FileReport, m.Session) {
			fs := newFakeFS(scriptSet())
			eng := newTestEngine(t, fs)

			files, err := fs.Collect(ctx, nil, nil)
			require.NoError(t, err)

			o := opts
			o.Parallel = parallel

			reports, session, err := eng.ProcessAll(ctx, files, m.ModeAnalyze, o)
			require.NoError(t, err)

			return reports, session
		}

		serialReports, serialSession := runWith(1)
		parallelReports, parallelSession := runWith(4)

		assert.Equal(t, serialSession, parallelSession)
		assert.Equal(t, serialReports, parallelReports)
	})

	t.Run("cancelled context skips unstarted files", func(t *testing.T) {
		fs := newFakeFS(scriptSet())
		eng := newTestEngine(t, fs)

		files, err := fs.Collect(ctx, nil, nil)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		reports, session, err := eng.ProcessAll(cancelled, files, m.ModeAnalyze, opts)
		require.Error(t, err)
		require.Len(t, reports, len(files))

		for _, report := range reports {
			assert.True(t, report.Skipped)
		}

		assert.Equal(t, len(files), session.FilesSkipped)

		// Nothing was touched.
		assert.Equal(t, "gci .\n", fs.content("a.ps1"))
	})

	t.Run("zero workers falls back to one", func(t *testing.T) {
		fs := newFakeFS(map[m.Path]string{"a.ps1": "gci .\n"})
		eng := newTestEngine(t, fs)

		o := opts
		o.Parallel = 0

		reports, _, err := eng.ProcessAll(ctx, []m.Path{"a.ps1"}, m.ModeAnalyze, o)
		require.NoError(t, err)
		require.Len(t, reports, 1)
	})
}
