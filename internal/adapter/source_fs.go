// Package adapter contains infrastructure adapters for the psfix CLI.
package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	m "psfix.dev/pkg/psfix/internal/model"
)

// SourceFSAdapter abstracts filesystem operations so the engine can be
// tested without touching the disk.
type SourceFSAdapter interface {
	// Collect expands the given roots into the list of script files to
	// process, skipping paths that match any exclude pattern.
	Collect(ctx context.Context, roots []m.Path, exclude []string) ([]m.Path, error)

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(ctx context.Context, path m.Path) (string, error)

	// WriteFileAtomic replaces the file at path with content. No partial
	// write is ever visible: the content lands in a temp file first and is
	// renamed over the target.
	WriteFileAtomic(ctx context.Context, path m.Path, content string) error
}

// scriptExtensions are the file extensions treated as PowerShell sources.
var scriptExtensions = map[string]bool{".ps1": true, ".psm1": true, ".psd1": false}

// LocalSourceFSAdapter is the disk-backed SourceFSAdapter.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Collect implements SourceFSAdapter. Directories are walked recursively;
// explicit file arguments are taken as-is regardless of extension. The
// result is sorted for deterministic scheduling.
func (a *LocalSourceFSAdapter) Collect(ctx context.Context, roots []m.Path, exclude []string) ([]m.Path, error) {
	patterns, err := compilePatterns(exclude)
	if err != nil {
		return nil, err
	}

	seen := map[m.Path]bool{}

	var files []m.Path

	add := func(path string) {
		p := m.Path(filepath.Clean(path))
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(string(root))
		if err != nil {
			return nil, fmt.Errorf("cannot stat %s: %w", root, err)
		}

		if !info.IsDir() {
			if !matchAny(patterns, string(root)) {
				add(string(root))
			}

			continue
		}

		err = filepath.Walk(string(root), func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				if matchAny(patterns, path) {
					return filepath.SkipDir
				}

				return nil
			}

			if !scriptExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			if matchAny(patterns, path) {
				return nil
			}

			add(path)

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })

	return files, nil
}

// ReadFile implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) ReadFile(_ context.Context, path m.Path) (string, error) {
	content, err := os.ReadFile(string(path))
	if err != nil {
		return "", err
	}

	return string(content), nil
}

// WriteFileAtomic implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) WriteFileAtomic(_ context.Context, path m.Path, content string) error {
	dir := filepath.Dir(string(path))

	tmp, err := os.CreateTemp(dir, ".psfix-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.WriteString(content); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Preserve the original mode when the target already exists.
	if info, err := os.Stat(string(path)); err == nil {
		_ = os.Chmod(tmpName, info.Mode())
	}

	if err := os.Rename(tmpName, string(path)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

func compilePatterns(exclude []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(exclude))

	for _, expr := range exclude {
		pattern, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", expr, err)
		}

		patterns = append(patterns, pattern)
	}

	return patterns, nil
}

func matchAny(patterns []*regexp.Regexp, path string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(path) {
			return true
		}
	}

	return false
}
