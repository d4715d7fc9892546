// Package rules holds the rule registry and the built-in detector set.
//
// Every rule is registered explicitly; there is no reflective discovery. A
// rule contributes diagnostics via Detect and, when it also implements
// Fixer, a textual repair for each diagnostic it reported.
package rules

import (
	"fmt"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// Rule is the detector contract shared by all rules.
type Rule interface {
	// ID returns the stable rule identifier, e.g. "PS-SEC-001".
	ID() string

	// Category determines fix priority and filtering.
	Category() m.Category

	// Severity is the default severity of this rule's diagnostics.
	Severity() m.Severity

	// Describe returns a one-line human description.
	Describe() string

	// Detect inspects the unit's tree and tokens and reports violations.
	// Spans in the returned diagnostics address the unit's current text
	// generation.
	Detect(unit *m.SourceUnit, opts m.Options) []m.Diagnostic
}

// Fixer is the optional repair capability. A rule without it is report-only
// and is never auto-applied.
type Fixer interface {
	// Fix produces the edit that resolves the diagnostic, or false when the
	// occurrence cannot be repaired safely.
	Fix(unit *m.SourceUnit, d m.Diagnostic) (m.TextEdit, bool)
}

// Registry is the explicit, ordered rule table.
type Registry struct {
	rules []Rule
	byID  map[string]Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: map[string]Rule{}}
}

// Register appends a rule, rejecting duplicate identifiers.
func (r *Registry) Register(rule Rule) error {
	if _, dup := r.byID[rule.ID()]; dup {
		return fmt.Errorf("duplicate rule id %q", rule.ID())
	}

	r.rules = append(r.rules, rule)
	r.byID[rule.ID()] = rule

	return nil
}

// Get returns the rule with the given id.
func (r *Registry) Get(id string) (Rule, bool) {
	rule, ok := r.byID[id]
	return rule, ok
}

// All returns the rules in registration order.
func (r *Registry) All() []Rule {
	return r.rules
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// Validate reports the fatal configuration error of an empty registry. It is
// checked once before any file is processed.
func (r *Registry) Validate() error {
	if len(r.rules) == 0 {
		return fmt.Errorf("rule registry is empty")
	}

	return nil
}

// DefaultRegistry returns a registry with the full built-in rule set.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, rule := range []Rule{
		&SecretRule{},
		&InvokeExpressionRule{},
		&PlainTextSecureStringRule{},
		&AliasRule{},
		&WriteHostRule{},
		&TrailingWhitespaceRule{},
		&NestingDepthRule{},
		&NullComparisonRule{},
	} {
		// Built-in ids are distinct by construction.
		_ = r.Register(rule)
	}

	return r
}

// treeOf unwraps the unit's parsed tree.
func treeOf(unit *m.SourceUnit) (*syntax.Tree, bool) {
	tree, ok := unit.Tree.(*syntax.Tree)
	return tree, ok && tree != nil
}

// spanOf builds a span from a byte-offset range, deriving line and column
// positions from the unit's current text.
func spanOf(unit *m.SourceUnit, startOffset, endOffset int) m.Span {
	startLine, startCol := positionOf(unit.Text, startOffset)
	endLine, endCol := positionOf(unit.Text, endOffset)

	return m.Span{
		StartOffset: startOffset,
		EndOffset:   endOffset,
		StartLine:   startLine,
		StartColumn: startCol,
		EndLine:     endLine,
		EndColumn:   endCol,
	}
}

// positionOf converts a byte offset into a 1-based line and column. A CR
// that is part of CRLF does not advance the column, so positions agree
// across line-ending conventions.
func positionOf(text string, offset int) (line, column int) {
	line, column = 1, 1

	if offset > len(text) {
		offset = len(text)
	}

	for i := 0; i < offset; i++ {
		switch {
		case text[i] == '\n':
			line++
			column = 1
		case text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n':
			// counted by the following LF
		default:
			column++
		}
	}

	return line, column
}

// diagnosticFor assembles a diagnostic with the rule's identity filled in.
func diagnosticFor(rule Rule, unit *m.SourceUnit, span m.Span, message string) m.Diagnostic {
	return m.Diagnostic{
		RuleID:     rule.ID(),
		Severity:   rule.Severity(),
		Category:   rule.Category(),
		Path:       unit.Path,
		Span:       span,
		Message:    message,
		Generation: unit.Generation,
	}
}
