package adapter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/rules"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	pathStyle    = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Console renders diagnostics, fix results and run summaries to a writer.
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func severityStyle(s m.Severity) lipgloss.Style {
	switch s {
	case m.SeverityError:
		return errorStyle
	case m.SeverityWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

// RenderReports prints per-file diagnostics and fix outcomes.
func (c *Console) RenderReports(reports []m.FileReport, showDiffs bool) {
	for _, report := range reports {
		if report.Skipped {
			fmt.Fprintf(c.out, "%s: %s\n", pathStyle.Render(string(report.Path)), faintStyle.Render("skipped (cancelled)"))
			continue
		}

		if report.Err != "" {
			fmt.Fprintf(c.out, "%s: %s\n", pathStyle.Render(string(report.Path)), errorStyle.Render(report.Err))
			continue
		}

		for _, d := range report.Diagnostics {
			fmt.Fprintf(c.out, "%s:%d:%d: %s %s %s\n",
				report.Path, d.Span.StartLine, d.Span.StartColumn,
				severityStyle(d.Severity).Render(d.Severity.String()),
				faintStyle.Render(d.RuleID),
				d.Message,
			)
		}

		for _, fix := range report.Fixes {
			status := "would fix"
			if fix.Applied {
				status = "fixed"
			} else if fix.FailureReason != "" {
				status = "not fixed: " + fix.FailureReason
			}

			fmt.Fprintf(c.out, "%s:%d:%d: %s %s\n",
				fix.Path, fix.Span.StartLine, fix.Span.StartColumn,
				faintStyle.Render(fix.RuleID), status)

			if showDiffs && fix.Diff != "" {
				fmt.Fprint(c.out, fix.Diff)
			}
		}
	}
}

// RenderSummary prints an aggregate table for the run.
func (c *Console) RenderSummary(session m.Session) {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Files", "Failed", "Skipped", "Diagnostics", "Fixes Applied"})
	table.Append([]string{
		strconv.Itoa(session.FilesProcessed),
		strconv.Itoa(session.FilesFailed),
		strconv.Itoa(session.FilesSkipped),
		strconv.Itoa(session.Diagnostics),
		strconv.Itoa(session.FixesApplied),
	})
	table.Render()
}

// RenderRules prints the registered rule table.
func (c *Console) RenderRules(registry *rules.Registry) {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"ID", "Category", "Severity", "Fixable", "Description"})

	for _, rule := range registry.All() {
		fixable := "no"
		if _, ok := rule.(rules.Fixer); ok {
			fixable = "yes"
		}

		table.Append([]string{
			rule.ID(),
			rule.Category().String(),
			rule.Severity().String(),
			fixable,
			rule.Describe(),
		})
	}

	table.Render()
}
