package rules

import (
	"strings"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// TrailingWhitespaceRule flags and trims whitespace before a line break.
// Lines whose end falls inside a string or comment token are left alone so
// an edit can never change program semantics.
type TrailingWhitespaceRule struct{}

// ID implements Rule.
func (r *TrailingWhitespaceRule) ID() string { return "PS-FMT-001" }

// Category implements Rule.
func (r *TrailingWhitespaceRule) Category() m.Category { return m.CategoryFormatting }

// Severity implements Rule.
func (r *TrailingWhitespaceRule) Severity() m.Severity { return m.SeverityInfo }

// Describe implements Rule.
func (r *TrailingWhitespaceRule) Describe() string {
	return "Trailing whitespace at end of line"
}

// Detect implements Rule.
func (r *TrailingWhitespaceRule) Detect(unit *m.SourceUnit, _ m.Options) []m.Diagnostic {
	protected := protectedRanges(unit)

	var diags []m.Diagnostic

	text := unit.Text
	lineStart := 0

	for lineStart <= len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		absEnd := len(text)

		if lineEnd >= 0 {
			absEnd = lineStart + lineEnd
		}

		contentEnd := absEnd
		if contentEnd > lineStart && text[contentEnd-1] == '\r' {
			contentEnd--
		}

		wsStart := contentEnd
		for wsStart > lineStart && (text[wsStart-1] == ' ' || text[wsStart-1] == '\t') {
			wsStart--
		}

		if wsStart < contentEnd && !insideRange(protected, wsStart) {
			span := spanOf(unit, wsStart, contentEnd)
			diags = append(diags, diagnosticFor(r, unit, span, "trailing whitespace"))
		}

		if lineEnd < 0 {
			break
		}

		lineStart = absEnd + 1
	}

	return diags
}

// Fix implements Fixer: delete the whitespace run.
func (r *TrailingWhitespaceRule) Fix(_ *m.SourceUnit, d m.Diagnostic) (m.TextEdit, bool) {
	return m.TextEdit{
		StartOffset: d.Span.StartOffset,
		EndOffset:   d.Span.EndOffset,
		Replacement: "",
	}, true
}

type offsetRange struct{ start, end int }

// protectedRanges returns the offset ranges of string and comment tokens,
// inside which whitespace is significant.
func protectedRanges(unit *m.SourceUnit) []offsetRange {
	tree, ok := treeOf(unit)
	if !ok {
		return nil
	}

	var ranges []offsetRange

	for _, tok := range tree.Tokens {
		if tok.Kind == syntax.TokenString || tok.Kind == syntax.TokenComment {
			ranges = append(ranges, offsetRange{tok.StartOffset, tok.EndOffset})
		}
	}

	return ranges
}

func insideRange(ranges []offsetRange, offset int) bool {
	for _, rg := range ranges {
		if offset >= rg.start && offset < rg.end {
			return true
		}
	}

	return false
}
