package rules

import (
	"fmt"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// maxTraversalDepth bounds the nesting walk. Deeper constructs are not
// descended into; a "max depth exceeded" diagnostic is emitted instead, so
// adversarial or generated input cannot drive unbounded recursion.
const maxTraversalDepth = 50

// NestingDepthRule measures the maximum nesting of conditional, loop, switch
// and exception-handling blocks and flags scripts that exceed the configured
// threshold. Report-only: flattening control flow is a human's job.
type NestingDepthRule struct{}

// ID implements Rule.
func (r *NestingDepthRule) ID() string { return "PS-ADV-001" }

// Category implements Rule.
func (r *NestingDepthRule) Category() m.Category { return m.CategoryAdvanced }

// Severity implements Rule.
func (r *NestingDepthRule) Severity() m.Severity { return m.SeverityWarning }

// Describe implements Rule.
func (r *NestingDepthRule) Describe() string {
	return "Deeply nested control flow is hard to reason about"
}

// Detect implements Rule.
func (r *NestingDepthRule) Detect(unit *m.SourceUnit, opts m.Options) []m.Diagnostic {
	tree, ok := treeOf(unit)
	if !ok {
		return nil
	}

	threshold := opts.NestingThreshold
	if threshold <= 0 {
		threshold = m.DefaultOptions().NestingThreshold
	}

	w := &nestingWalker{}
	w.walk(tree.Script.Stmts, 0)

	var diags []m.Diagnostic

	if w.maxDepth > threshold {
		span := spanOf(unit, w.deepest.StartOffset, w.deepest.EndOffset)
		diags = append(diags, diagnosticFor(r, unit, span,
			fmt.Sprintf("nesting depth %d exceeds threshold %d", w.maxDepth, threshold)))
	}

	if w.exceeded {
		span := spanOf(unit, w.stopped.StartOffset, w.stopped.EndOffset)
		diags = append(diags, diagnosticFor(r, unit, span,
			fmt.Sprintf("max depth exceeded: nesting deeper than %d is not analyzed", maxTraversalDepth)))
	}

	return diags
}

type nestingWalker struct {
	maxDepth int
	deepest  syntax.Token // keyword of the construct at maxDepth
	stopped  syntax.Token // keyword where traversal was cut off
	exceeded bool
}

func (w *nestingWalker) walk(stmts []syntax.Node, depth int) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *syntax.IfStmt:
			if !w.enter(s.Keyword, depth) {
				continue
			}

			w.walkBlock(s.Body, depth+1)
			for _, b := range s.ElseIfs {
				w.walkBlock(b, depth+1)
			}
			w.walkBlock(s.Else, depth+1)

		case *syntax.LoopStmt:
			if !w.enter(s.Keyword, depth) {
				continue
			}

			w.walkBlock(s.Body, depth+1)

		case *syntax.SwitchStmt:
			if !w.enter(s.Keyword, depth) {
				continue
			}

			for _, b := range s.Arms {
				w.walkBlock(b, depth+1)
			}

		case *syntax.TryStmt:
			if !w.enter(s.Keyword, depth) {
				continue
			}

			w.walkBlock(s.Body, depth+1)
			for _, b := range s.Catches {
				w.walkBlock(b, depth+1)
			}
			w.walkBlock(s.Finally, depth+1)

		case *syntax.FunctionDecl:
			// Function bodies reset nothing but do not count as nesting
			// themselves.
			w.walkBlock(s.Body, depth)
		}
	}
}

// enter records a block construct at depth+1 and reports whether traversal
// may descend into it.
func (w *nestingWalker) enter(keyword syntax.Token, depth int) bool {
	d := depth + 1

	if d > maxTraversalDepth {
		if !w.exceeded {
			w.exceeded = true
			w.stopped = keyword
		}

		return false
	}

	if d > w.maxDepth {
		w.maxDepth = d
		w.deepest = keyword
	}

	return true
}

func (w *nestingWalker) walkBlock(b *syntax.Block, depth int) {
	if b != nil {
		w.walk(b.Stmts, depth)
	}
}
