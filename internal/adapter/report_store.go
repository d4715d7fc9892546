package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	m "psfix.dev/pkg/psfix/internal/model"
)

// ReportStore persists per-run reports so CI can archive them and later
// invocations can inspect previous findings.
type ReportStore interface {
	SaveReports(dir m.Path, reports []m.FileReport) (m.Path, error)
	LoadReports(file m.Path) ([]m.FileReport, error)
}

// runReport is the on-disk YAML document.
type runReport struct {
	GeneratedAt time.Time      `yaml:"generated_at"`
	Files       []m.FileReport `yaml:"files"`
}

type yamlReportStore struct{}

// NewReportStore returns the YAML-backed ReportStore.
func NewReportStore() ReportStore {
	return &yamlReportStore{}
}

// SaveReports writes the reports as a timestamped YAML document under dir
// and returns the file it wrote.
func (s *yamlReportStore) SaveReports(dir m.Path, reports []m.FileReport) (m.Path, error) {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}

	doc := runReport{GeneratedAt: time.Now().UTC(), Files: reports}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	name := fmt.Sprintf("run-%d.yaml", doc.GeneratedAt.UnixNano())
	target := filepath.Join(string(dir), name)

	if err := os.WriteFile(target, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return m.Path(target), nil
}

// LoadReports reads a report document written by SaveReports.
func (s *yamlReportStore) LoadReports(file m.Path) ([]m.FileReport, error) {
	data, err := os.ReadFile(string(file))
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var doc runReport
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", file, err)
	}

	return doc.Files, nil
}
