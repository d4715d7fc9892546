// Package backup snapshots original file content before any fix touches the
// disk and generates unified diffs between original and fixed text.
package backup

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/pkg"
)

// Record describes one snapshot. Records are journaled so later runs (or an
// explicit restore) can enumerate generations.
type Record struct {
	Source     string
	BackupFile string
	Hash       string
	Generation int64 // unix nanoseconds, unique per snapshot of a path
}

// Store writes snapshots under a backup directory. Snapshots are retained
// until explicit cleanup.
type Store struct {
	dir string

	mu      sync.Mutex
	journal pkg.Journal[Record]
	lastGen int64
}

// NewStore creates a store rooted at dir. The directory and journal are
// created lazily on first snapshot.
func NewStore(dir m.Path) *Store {
	return &Store{dir: string(dir)}
}

const journalName = "backups.journal"

func (s *Store) ensureJournal() error {
	if s.journal != nil {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	journal, err := pkg.OpenJournal[Record](filepath.Join(s.dir, journalName))
	if err != nil {
		return err
	}

	s.journal = journal

	return nil
}

// openExistingJournal opens the journal only when a previous run left one
// behind, so read paths do not create backup directories.
func (s *Store) openExistingJournal() (bool, error) {
	if s.journal != nil {
		return true, nil
	}

	if _, err := os.Stat(filepath.Join(s.dir, journalName)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat journal: %w", err)
	}

	if err := s.ensureJournal(); err != nil {
		return false, err
	}

	return true, nil
}

// Snapshot writes content to the backup store before the source file is
// mutated. The snapshot file is synced to disk before Snapshot returns, so a
// crash mid-fix can always be rolled back.
func (s *Store) Snapshot(path m.Path, content string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureJournal(); err != nil {
		return Record{}, err
	}

	gen := time.Now().UnixNano()
	if gen <= s.lastGen {
		gen = s.lastGen + 1
	}

	s.lastGen = gen

	sum := sha256.Sum256([]byte(path))
	name := fmt.Sprintf("%x-%d.bak", sum[:8], gen)
	backupFile := filepath.Join(s.dir, name)

	if err := writeSynced(backupFile, content); err != nil {
		return Record{}, fmt.Errorf("failed to write backup for %s: %w", path, err)
	}

	record := Record{
		Source:     string(path),
		BackupFile: backupFile,
		Hash:       string(m.HashText(content)),
		Generation: gen,
	}

	if err := s.journal.Append(record); err != nil {
		return Record{}, err
	}

	slog.Debug("snapshot written", "path", path, "backup", backupFile)

	return record, nil
}

// Latest returns the most recent snapshot record for path.
func (s *Store) Latest(path m.Path) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.openExistingJournal()
	if err != nil {
		return Record{}, false, err
	}

	if !ok {
		return Record{}, false, nil
	}

	var (
		latest Record
		found  bool
	)

	err = s.journal.Range(func(_ uint64, record Record) error {
		if record.Source == string(path) && record.Generation >= latest.Generation {
			latest = record
			found = true
		}

		return nil
	})
	if err != nil {
		return Record{}, false, err
	}

	return latest, found, nil
}

// Restore rewrites path from its most recent snapshot.
func (s *Store) Restore(path m.Path) error {
	record, found, err := s.Latest(path)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("no backup recorded for %s", path)
	}

	content, err := os.ReadFile(record.BackupFile)
	if err != nil {
		return fmt.Errorf("failed to read backup %s: %w", record.BackupFile, err)
	}

	if err := writeSynced(string(path), string(content)); err != nil {
		return fmt.Errorf("failed to restore %s: %w", path, err)
	}

	return nil
}

// Cleanup removes the backup directory and everything in it.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.journal != nil {
		_ = s.journal.Close()
		s.journal = nil
	}

	return os.RemoveAll(s.dir)
}

// Close releases the journal without deleting any snapshot.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.journal == nil {
		return nil
	}

	err := s.journal.Close()
	s.journal = nil

	return err
}

func writeSynced(path, content string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
