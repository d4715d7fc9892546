package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psfix.dev/pkg/psfix/internal/adapter"
	"psfix.dev/pkg/psfix/internal/backup"
	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/rules"
)

// The scripts under examples/ double as an end-to-end fixture: deploy.ps1
// trips most of the rule set and clean.psm1 none of it.
func TestEngine_ExampleScripts(t *testing.T) {
	ctx := context.Background()

	store := backup.NewStore(m.Path(filepath.Join(t.TempDir(), "backups")))

	eng, err := New(adapter.NewLocalSourceFSAdapter(), rules.DefaultRegistry(), store, 64)
	require.NoError(t, err)

	opts := m.DefaultOptions()

	t.Run("deploy.ps1 trips the detecting rules", func(t *testing.T) {
		path := m.Path(filepath.Join("..", "..", "examples", "deploy.ps1"))

		report := eng.ProcessFile(ctx, path, m.ModeAnalyze, opts)
		require.Empty(t, report.Err)

		seen := map[string]bool{}
		for _, d := range report.Diagnostics {
			seen[d.RuleID] = true
		}

		for _, want := range []string{
			"PS-SEC-001", "PS-SEC-002", "PS-SEC-003",
			"PS-BP-001", "PS-BP-002", "PS-ADV-003",
		} {
			assert.True(t, seen[want], "missing diagnostic %s", want)
		}
	})

	t.Run("clean.psm1 is quiet", func(t *testing.T) {
		path := m.Path(filepath.Join("..", "..", "examples", "clean.psm1"))

		report := eng.ProcessFile(ctx, path, m.ModeAnalyze, opts)
		require.Empty(t, report.Err)
		assert.Empty(t, report.Diagnostics)
	})
}
