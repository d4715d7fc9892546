package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "psfix.dev/pkg/psfix/internal/model"
)

func TestNullComparisonRule(t *testing.T) {
	rule := &NullComparisonRule{}
	opts := m.DefaultOptions()

	t.Run("flags null on the right of -eq", func(t *testing.T) {
		unit := parseUnit(t, "if ($value -eq $null) { }\n")

		diags := rule.Detect(unit, opts)
		require.Len(t, diags, 1)
		assert.Equal(t, "PS-ADV-003", diags[0].RuleID)
		assert.Contains(t, diags[0].Message, "$null -eq $value")
	})

	t.Run("flags null on the right of -ne", func(t *testing.T) {
		unit := parseUnit(t, "if ($items -ne $null) { }\n")

		diags := rule.Detect(unit, opts)
		require.Len(t, diags, 1)
	})

	t.Run("null on the left is the correct form", func(t *testing.T) {
		unit := parseUnit(t, "if ($null -eq $value) { }\n")

		assert.Empty(t, rule.Detect(unit, opts))
	})

	t.Run("other operators are not comparisons against null", func(t *testing.T) {
		unit := parseUnit(t, "if ($count -gt $null) { }\n")

		assert.Empty(t, rule.Detect(unit, opts))
	})

	t.Run("fix swaps the operands", func(t *testing.T) {
		text := "if ($value -eq $null) { }\n"
		unit := parseUnit(t, text)

		diags := rule.Detect(unit, opts)
		require.Len(t, diags, 1)

		edit, ok := rule.Fix(unit, diags[0])
		require.True(t, ok)

		fixed := text[:edit.StartOffset] + edit.Replacement + text[edit.EndOffset:]
		assert.Equal(t, "if ($null -eq $value) { }\n", fixed)
	})

	t.Run("fix preserves the operator spelling", func(t *testing.T) {
		text := "if ($value -NE $null) { }\n"
		unit := parseUnit(t, text)

		diags := rule.Detect(unit, opts)
		require.Len(t, diags, 1)

		edit, ok := rule.Fix(unit, diags[0])
		require.True(t, ok)
		assert.Equal(t, "$null -NE $value", edit.Replacement)
	})
}
