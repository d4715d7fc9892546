package engine

import (
	"fmt"
	"sort"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/rules"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// FixOutcome is the result of running the fix pipeline over one file's
// content. Nothing here has touched the disk; the caller decides whether to
// write Text out.
type FixOutcome struct {
	// Text is the fixed content. Equal to the input when nothing applied.
	Text string

	// Results holds one entry per applied edit plus one non-applied entry
	// per rule that failed to converge.
	Results []m.FixResult

	// Changed reports whether Text differs from the input.
	Changed bool
}

// DiffFunc renders a unified diff between two versions of a file's content.
type DiffFunc func(path m.Path, original, fixed string) (string, error)

// FixEngine applies fixers category by category and verifies convergence by
// re-detection.
type FixEngine struct {
	registry *rules.Registry
	detector *Detector
	diff     DiffFunc
}

// NewFixEngine builds a fix engine over the registry. diff is used to attach
// a fragment to each applied fix; it may be nil to skip fragments.
func NewFixEngine(registry *rules.Registry, diff DiffFunc) *FixEngine {
	return &FixEngine{registry: registry, detector: NewDetector(registry), diff: diff}
}

// appliedEdit pairs a diagnostic with the edit its rule produced and, once
// applied, the diff fragment for that single edit.
type appliedEdit struct {
	diag m.Diagnostic
	edit m.TextEdit
	frag string
}

// Apply runs the fix pipeline over original, which must be parseable.
// Categories are processed in fixed priority order; within a category, edits
// land rightmost-first so earlier edits cannot invalidate the offsets of
// later ones in the same pass. After each pass the text is re-parsed and the
// category re-detected; a rule whose diagnostics persist past the pass bound
// is excluded and the whole pipeline restarts from the original content, so
// a misbehaving fixer never leaves partial edits behind.
func (f *FixEngine) Apply(path m.Path, original string, opts m.Options) (FixOutcome, error) {
	maxPasses := opts.MaxFixPasses
	if maxPasses <= 0 {
		maxPasses = m.DefaultOptions().MaxFixPasses
	}

	excluded := map[string]bool{}

	// Each restart excludes at least one rule, so attempts are bounded.
	for attempt := 0; attempt <= f.registry.Len(); attempt++ {
		outcome, failed, err := f.applyOnce(path, original, opts, maxPasses, excluded)
		if err != nil {
			return FixOutcome{}, err
		}

		if len(failed) == 0 {
			for id := range excluded {
				outcome.Results = append(outcome.Results, m.FixResult{
					RuleID:        id,
					Path:          path,
					Applied:       false,
					FailureReason: fmt.Sprintf("fix did not converge after %d passes; file left unmodified for this rule", maxPasses),
				})
			}

			sort.SliceStable(outcome.Results, func(i, j int) bool {
				return outcome.Results[i].RuleID < outcome.Results[j].RuleID
			})

			return outcome, nil
		}

		for _, id := range failed {
			excluded[id] = true
		}
	}

	// Unreachable: every restart shrinks the active rule set.
	return FixOutcome{}, &ConvergenceError{Passes: maxPasses}
}

// applyOnce runs the category pipeline with the given rules excluded. It
// returns the rule ids that failed to converge, if any; the caller restarts
// from the original content with those excluded.
func (f *FixEngine) applyOnce(path m.Path, original string, opts m.Options, maxPasses int, excluded map[string]bool) (FixOutcome, []string, error) {
	unit := m.NewSourceUnit(path, original)

	tree, err := syntax.Parse(original)
	if err != nil {
		return FixOutcome{}, nil, fmt.Errorf("pre-fix parse of %s: %w", path, err)
	}

	unit.Tree = tree

	var results []m.FixResult

	for _, category := range m.Categories {
		if !opts.WantsCategory(category) {
			continue
		}

		var failed []string

		for pass := 0; ; pass++ {
			applicable := f.applicableEdits(unit, opts, category, excluded)
			if len(applicable) == 0 {
				break
			}

			if pass >= maxPasses {
				failed = persistingRuleIDs(applicable)
				break
			}

			newText, applied := f.spliceEdits(path, unit.Text, applicable)

			unit.SetText(newText)

			tree, err := syntax.Parse(newText)
			if err != nil {
				// An edit corrupted the text. Blame every rule that edited
				// in this pass and restart without them.
				return FixOutcome{}, persistingRuleIDs(applied), nil
			}

			unit.Tree = tree

			for _, ae := range applied {
				results = append(results, m.FixResult{
					RuleID:      ae.diag.RuleID,
					Path:        path,
					Applied:     true,
					Span:        ae.diag.Span,
					Replacement: ae.edit.Replacement,
					Diff:        ae.frag,
				})
			}
		}

		if len(failed) > 0 {
			return FixOutcome{}, failed, nil
		}
	}

	return FixOutcome{
		Text:    unit.Text,
		Results: results,
		Changed: unit.Text != original,
	}, nil, nil
}

// applicableEdits re-detects the category on the unit's current text and
// collects the edits its fixers produce. Diagnostics whose rule is excluded,
// has no fixer, or declines the occurrence are dropped.
func (f *FixEngine) applicableEdits(unit *m.SourceUnit, opts m.Options, category m.Category, excluded map[string]bool) []appliedEdit {
	diags := f.detector.DetectCategory(unit, opts, category)

	var edits []appliedEdit

	for _, diag := range diags {
		if excluded[diag.RuleID] {
			continue
		}

		rule, ok := f.registry.Get(diag.RuleID)
		if !ok {
			continue
		}

		fixer, ok := rule.(rules.Fixer)
		if !ok {
			continue
		}

		edit, ok := fixer.Fix(unit, diag)
		if !ok {
			continue
		}

		edits = append(edits, appliedEdit{diag: diag, edit: edit})
	}

	return edits
}

// spliceEdits applies edits in descending start-offset order. When two edits
// overlap, the leftmost is skipped for this pass; re-detection picks it up
// on the next pass against fresh offsets.
func (f *FixEngine) spliceEdits(path m.Path, text string, edits []appliedEdit) (string, []appliedEdit) {
	sorted := make([]appliedEdit, len(edits))
	copy(sorted, edits)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].edit.StartOffset > sorted[j].edit.StartOffset
	})

	applied := make([]appliedEdit, 0, len(sorted))
	lowestApplied := len(text) + 1

	for _, ae := range sorted {
		edit := ae.edit

		if edit.StartOffset < 0 || edit.EndOffset > len(text) || edit.StartOffset > edit.EndOffset {
			continue
		}

		if edit.EndOffset > lowestApplied {
			continue
		}

		before := text
		text = text[:edit.StartOffset] + edit.Replacement + text[edit.EndOffset:]
		lowestApplied = edit.StartOffset

		if f.diff != nil {
			if frag, err := f.diff(path, before, text); err == nil {
				ae.frag = frag
			}
		}

		applied = append(applied, ae)
	}

	return text, applied
}

func persistingRuleIDs(edits []appliedEdit) []string {
	seen := map[string]bool{}

	var ids []string

	for _, ae := range edits {
		if !seen[ae.diag.RuleID] {
			seen[ae.diag.RuleID] = true
			ids = append(ids, ae.diag.RuleID)
		}
	}

	sort.Strings(ids)

	return ids
}
