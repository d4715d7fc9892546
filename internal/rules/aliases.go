package rules

import (
	"fmt"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// canonicalCmdlets maps common aliases onto the cmdlet they abbreviate.
// Aliases are matched case-insensitively in command position only, so
// `7 % 3` or a variable named $ls never trips the rule.
var canonicalCmdlets = map[string]string{
	"gci":   "Get-ChildItem",
	"ls":    "Get-ChildItem",
	"dir":   "Get-ChildItem",
	"cat":   "Get-Content",
	"gc":    "Get-Content",
	"cp":    "Copy-Item",
	"copy":  "Copy-Item",
	"mv":    "Move-Item",
	"move":  "Move-Item",
	"rm":    "Remove-Item",
	"del":   "Remove-Item",
	"echo":  "Write-Output",
	"iwr":   "Invoke-WebRequest",
	"curl":  "Invoke-WebRequest",
	"wget":  "Invoke-WebRequest",
	"sls":   "Select-String",
	"%":     "ForEach-Object",
	"?":     "Where-Object",
	"where": "Where-Object",
	"sort":  "Sort-Object",
	"ft":    "Format-Table",
	"fl":    "Format-List",
	"gm":    "Get-Member",
	"pwd":   "Get-Location",
	"cd":    "Set-Location",
}

// AliasRule flags aliases in command position and rewrites them to the
// canonical cmdlet name.
type AliasRule struct{}

// ID implements Rule.
func (r *AliasRule) ID() string { return "PS-BP-001" }

// Category implements Rule.
func (r *AliasRule) Category() m.Category { return m.CategoryBestPractice }

// Severity implements Rule.
func (r *AliasRule) Severity() m.Severity { return m.SeverityWarning }

// Describe implements Rule.
func (r *AliasRule) Describe() string {
	return "Command alias used; scripts should spell out the cmdlet name"
}

// Detect implements Rule.
func (r *AliasRule) Detect(unit *m.SourceUnit, _ m.Options) []m.Diagnostic {
	tree, ok := treeOf(unit)
	if !ok {
		return nil
	}

	var diags []m.Diagnostic

	forEachCommandToken(tree, func(tok syntax.Token) {
		if tok.Kind != syntax.TokenIdent && tok.Kind != syntax.TokenOperator {
			return
		}

		canonical, found := canonicalCmdlets[lowerASCII(tok.Text)]
		if !found {
			return
		}

		span := spanOf(unit, tok.StartOffset, tok.EndOffset)
		diags = append(diags, diagnosticFor(r, unit, span,
			fmt.Sprintf("alias %q hides the cmdlet %s", tok.Text, canonical)))
	})

	return diags
}

// Fix implements Fixer: replace the alias token with the cmdlet name.
func (r *AliasRule) Fix(unit *m.SourceUnit, d m.Diagnostic) (m.TextEdit, bool) {
	alias := unit.Text[d.Span.StartOffset:d.Span.EndOffset]

	canonical, found := canonicalCmdlets[lowerASCII(alias)]
	if !found {
		return m.TextEdit{}, false
	}

	return m.TextEdit{
		StartOffset: d.Span.StartOffset,
		EndOffset:   d.Span.EndOffset,
		Replacement: canonical,
	}, true
}

// WriteHostRule flags Write-Host, which bypasses the output stream, and
// rewrites it to Write-Output.
type WriteHostRule struct{}

// ID implements Rule.
func (r *WriteHostRule) ID() string { return "PS-BP-002" }

// Category implements Rule.
func (r *WriteHostRule) Category() m.Category { return m.CategoryBestPractice }

// Severity implements Rule.
func (r *WriteHostRule) Severity() m.Severity { return m.SeverityInfo }

// Describe implements Rule.
func (r *WriteHostRule) Describe() string {
	return "Write-Host bypasses the pipeline; prefer Write-Output"
}

// Detect implements Rule.
func (r *WriteHostRule) Detect(unit *m.SourceUnit, _ m.Options) []m.Diagnostic {
	tree, ok := treeOf(unit)
	if !ok {
		return nil
	}

	var diags []m.Diagnostic

	forEachCommandToken(tree, func(tok syntax.Token) {
		if lowerASCII(tok.Text) != "write-host" {
			return
		}

		span := spanOf(unit, tok.StartOffset, tok.EndOffset)
		diags = append(diags, diagnosticFor(r, unit, span,
			"Write-Host output cannot be captured or piped"))
	})

	return diags
}

// Fix implements Fixer.
func (r *WriteHostRule) Fix(_ *m.SourceUnit, d m.Diagnostic) (m.TextEdit, bool) {
	return m.TextEdit{
		StartOffset: d.Span.StartOffset,
		EndOffset:   d.Span.EndOffset,
		Replacement: "Write-Output",
	}, true
}
