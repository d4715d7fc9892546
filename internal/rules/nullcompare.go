package rules

import (
	"fmt"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// NullComparisonRule flags `$var -eq $null` and swaps the operands. With
// $null on the right, a collection-valued $var filters instead of comparing;
// putting $null first always compares.
type NullComparisonRule struct{}

// ID implements Rule.
func (r *NullComparisonRule) ID() string { return "PS-ADV-003" }

// Category implements Rule.
func (r *NullComparisonRule) Category() m.Category { return m.CategoryAdvanced }

// Severity implements Rule.
func (r *NullComparisonRule) Severity() m.Severity { return m.SeverityWarning }

// Describe implements Rule.
func (r *NullComparisonRule) Describe() string {
	return "$null belongs on the left-hand side of -eq/-ne comparisons"
}

// Detect implements Rule.
func (r *NullComparisonRule) Detect(unit *m.SourceUnit, _ m.Options) []m.Diagnostic {
	tree, ok := treeOf(unit)
	if !ok {
		return nil
	}

	var diags []m.Diagnostic

	tokens := tree.Tokens

	for i := 0; i+2 < len(tokens); i++ {
		left, op, right := tokens[i], tokens[i+1], tokens[i+2]

		if left.Kind != syntax.TokenVariable || right.Kind != syntax.TokenVariable {
			continue
		}

		if op.Kind != syntax.TokenOperator {
			continue
		}

		opName := lowerASCII(op.Text)
		if opName != "-eq" && opName != "-ne" {
			continue
		}

		if lowerASCII(left.Text) == "$null" || lowerASCII(right.Text) != "$null" {
			continue
		}

		span := spanOf(unit, left.StartOffset, right.EndOffset)
		diags = append(diags, diagnosticFor(r, unit, span,
			fmt.Sprintf("compare as $null %s %s to avoid collection filtering", op.Text, left.Text)))
	}

	return diags
}

// Fix implements Fixer: rewrite `$var -eq $null` as `$null -eq $var`,
// keeping the original operator spelling.
func (r *NullComparisonRule) Fix(unit *m.SourceUnit, d m.Diagnostic) (m.TextEdit, bool) {
	tree, ok := treeOf(unit)
	if !ok {
		return m.TextEdit{}, false
	}

	tokens := tree.Tokens

	for i := 0; i+2 < len(tokens); i++ {
		left, op, right := tokens[i], tokens[i+1], tokens[i+2]

		if left.StartOffset != d.Span.StartOffset || right.EndOffset != d.Span.EndOffset {
			continue
		}

		return m.TextEdit{
			StartOffset: left.StartOffset,
			EndOffset:   right.EndOffset,
			Replacement: fmt.Sprintf("%s %s %s", right.Text, op.Text, left.Text),
		}, true
	}

	return m.TextEdit{}, false
}
