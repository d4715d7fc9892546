package adapter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/rules"
)

func TestConsole_RenderReports(t *testing.T) {
	t.Run("prints diagnostics with position and rule id", func(t *testing.T) {
		out := &bytes.Buffer{}
		console := NewConsole(out)

		console.RenderReports([]m.FileReport{{
			Path: "a.ps1",
			Diagnostics: []m.Diagnostic{{
				RuleID:   "PS-BP-001",
				Severity: m.SeverityWarning,
				Path:     "a.ps1",
				Span:     m.Span{StartLine: 3, StartColumn: 5},
				Message:  "alias used",
			}},
		}}, false)

		output := out.String()
		assert.Contains(t, output, "a.ps1:3:5")
		assert.Contains(t, output, "PS-BP-001")
		assert.Contains(t, output, "alias used")
	})

	t.Run("prints fix status", func(t *testing.T) {
		out := &bytes.Buffer{}
		console := NewConsole(out)

		console.RenderReports([]m.FileReport{{
			Path: "a.ps1",
			Fixes: []m.FixResult{
				{RuleID: "PS-BP-001", Path: "a.ps1", Applied: true},
				{RuleID: "PS-BP-002", Path: "a.ps1", Applied: false},
				{RuleID: "PS-FMT-001", Path: "a.ps1", FailureReason: "backup failed"},
			},
		}}, false)

		output := out.String()
		assert.Contains(t, output, "fixed")
		assert.Contains(t, output, "would fix")
		assert.Contains(t, output, "not fixed: backup failed")
	})

	t.Run("shows diffs only when asked", func(t *testing.T) {
		report := []m.FileReport{{
			Path: "a.ps1",
			Fixes: []m.FixResult{{
				RuleID:  "PS-BP-001",
				Path:    "a.ps1",
				Applied: true,
				Diff:    "-gci\n+Get-ChildItem\n",
			}},
		}}

		withDiffs := &bytes.Buffer{}
		NewConsole(withDiffs).RenderReports(report, true)
		assert.Contains(t, withDiffs.String(), "+Get-ChildItem")

		withoutDiffs := &bytes.Buffer{}
		NewConsole(withoutDiffs).RenderReports(report, false)
		assert.NotContains(t, withoutDiffs.String(), "+Get-ChildItem")
	})

	t.Run("reports file errors and skips", func(t *testing.T) {
		out := &bytes.Buffer{}
		console := NewConsole(out)

		console.RenderReports([]m.FileReport{
			{Path: "bad.ps1", Err: "unterminated block"},
			{Path: "later.ps1", Skipped: true},
		}, false)

		output := out.String()
		assert.Contains(t, output, "unterminated block")
		assert.Contains(t, output, "skipped (cancelled)")
	})
}

func TestConsole_RenderSummary(t *testing.T) {
	out := &bytes.Buffer{}
	console := NewConsole(out)

	console.RenderSummary(m.Session{
		FilesProcessed: 12,
		FilesFailed:    1,
		FilesSkipped:   2,
		Diagnostics:    34,
		FixesApplied:   7,
	})

	output := out.String()
	assert.Contains(t, output, "12")
	assert.Contains(t, output, "34")
	assert.Contains(t, output, "FIXES APPLIED")
}

func TestConsole_RenderRules(t *testing.T) {
	out := &bytes.Buffer{}
	console := NewConsole(out)

	console.RenderRules(rules.DefaultRegistry())

	output := out.String()
	assert.Contains(t, output, "PS-SEC-001")
	assert.Contains(t, output, "PS-ADV-003")
	assert.Contains(t, output, "security")
	assert.Contains(t, output, "yes")
	assert.Contains(t, output, "no")
}
