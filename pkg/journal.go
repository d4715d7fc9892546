// Package pkg provides small generic utilities shared across psfix.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Journal is an append-only, gob-encoded record log at a fixed path. Unlike
// an in-memory list it survives the process, so the backup store can
// enumerate snapshot generations from earlier runs.
type Journal[T any] interface {
	Len() uint64
	Path() string
	Append(record T) error
	Range(fn func(index uint64, record T) error) error
	Close() error
}

type journalImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// OpenJournal opens (or creates) the journal at path. Existing records are
// replayed and rewritten through this journal's encoder, keeping the file a
// single gob stream: appending a second encoder's output to an old stream
// would make replay fail on the duplicated type definitions.
func OpenJournal[T any](path string) (Journal[T], error) {
	records, err := replayRecords[T](path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o600)
	if err != nil {
		slog.Error("failed to open journal", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	encoder := gob.NewEncoder(file)

	for i, record := range records {
		if err := encoder.Encode(record); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to rewrite record %d: %w", i, err)
		}
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to sync journal: %w", err)
	}

	slog.Debug("opened journal", "path", path, "length", len(records))

	return &journalImpl[T]{
		path:    path,
		file:    file,
		encoder: encoder,
		length:  uint64(len(records)),
	}, nil
}

func replayRecords[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open journal for replay: %w", err)
	}

	defer func() { _ = file.Close() }()

	decoder := gob.NewDecoder(file)

	var records []T

	for {
		var record T

		err := decoder.Decode(&record)
		if errors.Is(err, io.EOF) {
			return records, nil
		}

		if err != nil {
			return nil, fmt.Errorf("corrupt journal record at index %d: %w", len(records), err)
		}

		records = append(records, record)
	}
}

// Append implements Journal.
func (j *journalImpl[T]) Append(record T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.encoder.Encode(record); err != nil {
		slog.Error("failed to encode journal record", "path", j.path, "index", j.length, "error", err)
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}

	j.length++

	return nil
}

// Path implements Journal.
func (j *journalImpl[T]) Path() string { return j.path }

// Len implements Journal.
func (j *journalImpl[T]) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.length
}

// Range implements Journal. Records are visited in append order.
func (j *journalImpl[T]) Range(fn func(index uint64, record T) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		slog.Error("failed to open journal for range", "path", j.path, "error", err)
		return fmt.Errorf("failed to open journal: %w", err)
	}

	defer func() { _ = file.Close() }()

	decoder := gob.NewDecoder(file)

	for i := uint64(0); i < j.length; i++ {
		var record T

		if err := decoder.Decode(&record); err != nil {
			return fmt.Errorf("failed to decode record at index %d: %w", i, err)
		}

		if err := fn(i, record); err != nil {
			return err
		}
	}

	return nil
}

// Close implements Journal.
func (j *journalImpl[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}

	err := j.file.Close()
	j.file = nil

	if err != nil {
		slog.Error("failed to close journal", "path", j.path, "error", err)
		return err
	}

	return nil
}
