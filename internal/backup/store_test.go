package backup

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "psfix.dev/pkg/psfix/internal/model"
)

func TestStore_Snapshot(t *testing.T) {
	t.Run("writes the original content to a backup file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")
		store := NewStore(m.Path(dir))
		defer store.Close()

		record, err := store.Snapshot("script.ps1", "original A")
		require.NoError(t, err)

		content, err := os.ReadFile(record.BackupFile)
		require.NoError(t, err)
		assert.Equal(t, "original A", string(content))
		assert.Equal(t, "script.ps1", record.Source)
		assert.Equal(t, string(m.HashText("original A")), record.Hash)
	})

	t.Run("backup file name carries the path hash and generation", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")
		store := NewStore(m.Path(dir))
		defer store.Close()

		record, err := store.Snapshot("script.ps1", "A")
		require.NoError(t, err)

		sum := sha256.Sum256([]byte("script.ps1"))
		name := filepath.Base(record.BackupFile)
		assert.True(t, strings.HasPrefix(name, fmt.Sprintf("%x-", sum[:8])))
		assert.Equal(t, fmt.Sprintf("%x-%d.bak", sum[:8], record.Generation), name)
	})

	t.Run("repeated snapshots get distinct generations", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")
		store := NewStore(m.Path(dir))
		defer store.Close()

		first, err := store.Snapshot("script.ps1", "v1")
		require.NoError(t, err)

		second, err := store.Snapshot("script.ps1", "v2")
		require.NoError(t, err)

		assert.Greater(t, second.Generation, first.Generation)
		assert.NotEqual(t, first.BackupFile, second.BackupFile)
	})

	t.Run("one fix produces exactly one snapshot", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")
		store := NewStore(m.Path(dir))
		defer store.Close()

		_, err := store.Snapshot("script.ps1", "A")
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)

		var backups int
		for _, entry := range entries {
			if filepath.Ext(entry.Name()) == ".bak" {
				backups++
			}
		}

		assert.Equal(t, 1, backups)
	})
}

func TestStore_LatestAndRestore(t *testing.T) {
	t.Run("Latest returns the newest record per path", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")
		store := NewStore(m.Path(dir))
		defer store.Close()

		_, err := store.Snapshot("a.ps1", "a-old")
		require.NoError(t, err)

		_, err = store.Snapshot("b.ps1", "b")
		require.NoError(t, err)

		latestA, err := store.Snapshot("a.ps1", "a-new")
		require.NoError(t, err)

		got, found, err := store.Latest("a.ps1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, latestA, got)
	})

	t.Run("Latest without snapshots reports not found", func(t *testing.T) {
		store := NewStore(m.Path(filepath.Join(t.TempDir(), "backups")))
		defer store.Close()

		_, found, err := store.Latest("nothing.ps1")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Restore rewrites the source from the newest snapshot", func(t *testing.T) {
		workDir := t.TempDir()
		source := filepath.Join(workDir, "script.ps1")
		require.NoError(t, os.WriteFile(source, []byte("fixed"), 0o600))

		store := NewStore(m.Path(filepath.Join(workDir, "backups")))
		defer store.Close()

		_, err := store.Snapshot(m.Path(source), "original")
		require.NoError(t, err)

		require.NoError(t, store.Restore(m.Path(source)))

		content, err := os.ReadFile(source)
		require.NoError(t, err)
		assert.Equal(t, "original", string(content))
	})

	t.Run("Restore without a snapshot fails", func(t *testing.T) {
		store := NewStore(m.Path(filepath.Join(t.TempDir(), "backups")))
		defer store.Close()

		err := store.Restore("never-seen.ps1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no backup recorded")
	})
}

func TestStore_Cleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	store := NewStore(m.Path(dir))

	_, err := store.Snapshot("script.ps1", "content")
	require.NoError(t, err)

	require.NoError(t, store.Cleanup())

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestStore_JournalSurvivesReopen(t *testing.T) {
	t.Run("Latest reads the previous run's journal", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")

		store := NewStore(m.Path(dir))

		record, err := store.Snapshot("script.ps1", "content")
		require.NoError(t, err)
		require.NoError(t, store.Close())

		// A fresh store, as used by a standalone restore invocation, must
		// see the earlier run's records without snapshotting first.
		reopened := NewStore(m.Path(dir))
		defer reopened.Close()

		got, found, err := reopened.Latest("script.ps1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, record.BackupFile, got.BackupFile)
	})

	t.Run("snapshots append to the replayed journal", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")

		store := NewStore(m.Path(dir))

		record, err := store.Snapshot("script.ps1", "content")
		require.NoError(t, err)
		require.NoError(t, store.Close())

		reopened := NewStore(m.Path(dir))
		defer reopened.Close()

		_, err = reopened.Snapshot("other.ps1", "x")
		require.NoError(t, err)

		got, found, err := reopened.Latest("script.ps1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, record.BackupFile, got.BackupFile)
	})

	t.Run("Latest without any journal does not create the backup dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")

		store := NewStore(m.Path(dir))
		defer store.Close()

		_, found, err := store.Latest("script.ps1")
		require.NoError(t, err)
		assert.False(t, found)

		_, err = os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	})
}
