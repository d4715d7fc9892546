package engine

import (
	"sort"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/rules"
)

// Detector runs the registered detectors over a parsed unit.
type Detector struct {
	registry *rules.Registry
}

// NewDetector builds a detector over the given registry.
func NewDetector(registry *rules.Registry) *Detector {
	return &Detector{registry: registry}
}

// Detect runs every rule whose category the options include and returns the
// combined diagnostics sorted by source position.
func (d *Detector) Detect(unit *m.SourceUnit, opts m.Options) []m.Diagnostic {
	var diags []m.Diagnostic

	for _, rule := range d.registry.All() {
		if !opts.WantsCategory(rule.Category()) {
			continue
		}

		diags = append(diags, rule.Detect(unit, opts)...)
	}

	sortDiagnostics(diags)

	return diags
}

// DetectCategory runs only the rules of one category, used by the fix
// engine's per-category re-verification passes.
func (d *Detector) DetectCategory(unit *m.SourceUnit, opts m.Options, category m.Category) []m.Diagnostic {
	var diags []m.Diagnostic

	for _, rule := range d.registry.All() {
		if rule.Category() != category {
			continue
		}

		diags = append(diags, rule.Detect(unit, opts)...)
	}

	sortDiagnostics(diags)

	return diags
}

func sortDiagnostics(diags []m.Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Span.StartOffset != diags[j].Span.StartOffset {
			return diags[i].Span.StartOffset < diags[j].Span.StartOffset
		}

		return diags[i].RuleID < diags[j].RuleID
	})
}
