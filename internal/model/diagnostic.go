package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Severity defines the importance of a diagnostic.
type Severity int

const (
	// SeverityInfo is for informational diagnostics.
	SeverityInfo Severity = iota
	// SeverityWarning is for diagnostics worth fixing.
	SeverityWarning
	// SeverityError is for diagnostics that should block a merge.
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}

	return "unknown"
}

// MarshalYAML renders the severity as its name.
func (s Severity) MarshalYAML() (any, error) { return s.String(), nil }

// UnmarshalYAML accepts a severity name.
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	switch value.Value {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", value.Value)
	}

	return nil
}

// Category groups rules and determines fix priority: Security fixes are
// applied before BestPractice, BestPractice before Formatting, and
// Formatting before Advanced.
type Category int

const (
	// CategorySecurity covers credential leaks and dangerous invocations.
	CategorySecurity Category = iota
	// CategoryBestPractice covers idiom and maintainability rules.
	CategoryBestPractice
	// CategoryFormatting covers whitespace and layout rules.
	CategoryFormatting
	// CategoryAdvanced covers structural rules (nesting, comparison order).
	CategoryAdvanced
)

// Categories lists all categories in fix-priority order.
var Categories = []Category{CategorySecurity, CategoryBestPractice, CategoryFormatting, CategoryAdvanced}

func (c Category) String() string {
	switch c {
	case CategorySecurity:
		return "security"
	case CategoryBestPractice:
		return "best-practice"
	case CategoryFormatting:
		return "formatting"
	case CategoryAdvanced:
		return "advanced"
	}

	return "unknown"
}

// MarshalYAML renders the category as its name.
func (c Category) MarshalYAML() (any, error) { return c.String(), nil }

// UnmarshalYAML accepts a category name.
func (c *Category) UnmarshalYAML(value *yaml.Node) error {
	parsed, ok := ParseCategory(value.Value)
	if !ok {
		return fmt.Errorf("unknown category %q", value.Value)
	}

	*c = parsed

	return nil
}

// ParseCategory maps a user-supplied name onto a Category.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if c.String() == name {
			return c, true
		}
	}

	return 0, false
}

// Span locates a diagnostic inside a specific text generation. Offsets are
// byte offsets into the text; lines and columns are 1-based. A span is
// meaningless once the unit's text changes.
type Span struct {
	StartOffset int `yaml:"start_offset"`
	EndOffset   int `yaml:"end_offset"`
	StartLine   int `yaml:"start_line"`
	StartColumn int `yaml:"start_column"`
	EndLine     int `yaml:"end_line"`
	EndColumn   int `yaml:"end_column"`
}

// Diagnostic is a single reported rule violation.
type Diagnostic struct {
	RuleID   string   `yaml:"rule_id"`
	Severity Severity `yaml:"severity"`
	Category Category `yaml:"category"`
	Path     Path     `yaml:"path"`
	Span     Span     `yaml:"span"`
	Message  string   `yaml:"message"`

	// Generation records which text generation of the unit the span was
	// computed against.
	Generation int `yaml:"generation"`
}
