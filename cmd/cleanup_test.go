package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psfix.dev/pkg/psfix/internal/backup"
	m "psfix.dev/pkg/psfix/internal/model"
)

func TestNewCleanupCmd(t *testing.T) {
	cmd := newCleanupCmd()

	assert.Equal(t, "cleanup", cmd.Name())
	assert.NotEmpty(t, cmd.Long)
}

func TestCleanupCmd_RemovesBackupDir(t *testing.T) {
	backupDir := useBackupDir(t)

	store := backup.NewStore(m.Path(backupDir))
	_, err := store.Snapshot(m.Path(filepath.Join(t.TempDir(), "script.ps1")), "content")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cmd := newCleanupCmd()
	output := &bytes.Buffer{}
	cmd.SetOut(output)

	require.NoError(t, cmd.RunE(cmd, nil))

	_, err = os.Stat(backupDir)
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, output.String(), "removed "+backupDir)
}
