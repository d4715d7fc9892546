package rules

import (
	"regexp"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// InvokeExpressionRule flags Invoke-Expression (and its iex alias) in
// command position. Report-only: rewriting dynamic invocation needs a human.
type InvokeExpressionRule struct{}

// ID implements Rule.
func (r *InvokeExpressionRule) ID() string { return "PS-SEC-002" }

// Category implements Rule.
func (r *InvokeExpressionRule) Category() m.Category { return m.CategorySecurity }

// Severity implements Rule.
func (r *InvokeExpressionRule) Severity() m.Severity { return m.SeverityError }

// Describe implements Rule.
func (r *InvokeExpressionRule) Describe() string {
	return "Invoke-Expression executes arbitrary strings as code"
}

// Detect implements Rule.
func (r *InvokeExpressionRule) Detect(unit *m.SourceUnit, _ m.Options) []m.Diagnostic {
	tree, ok := treeOf(unit)
	if !ok {
		return nil
	}

	var diags []m.Diagnostic

	forEachCommandToken(tree, func(tok syntax.Token) {
		name := lowerASCII(tok.Text)
		if name != "invoke-expression" && name != "iex" {
			return
		}

		span := spanOf(unit, tok.StartOffset, tok.EndOffset)
		diags = append(diags, diagnosticFor(r, unit, span,
			"avoid Invoke-Expression; invoke the command directly or use the call operator"))
	})

	return diags
}

// plainTextPattern matches a ConvertTo-SecureString call that builds a
// SecureString from plain text on the same line. AST walking finds the
// command; the regex confirms the dangerous switch combination.
var plainTextPattern = regexp.MustCompile(`(?i)ConvertTo-SecureString\b[^\r\n]*-AsPlainText`)

// PlainTextSecureStringRule flags ConvertTo-SecureString -AsPlainText, which
// defeats the point of a SecureString.
type PlainTextSecureStringRule struct{}

// ID implements Rule.
func (r *PlainTextSecureStringRule) ID() string { return "PS-SEC-003" }

// Category implements Rule.
func (r *PlainTextSecureStringRule) Category() m.Category { return m.CategorySecurity }

// Severity implements Rule.
func (r *PlainTextSecureStringRule) Severity() m.Severity { return m.SeverityWarning }

// Describe implements Rule.
func (r *PlainTextSecureStringRule) Describe() string {
	return "ConvertTo-SecureString -AsPlainText embeds the secret in the script"
}

// Detect implements Rule.
func (r *PlainTextSecureStringRule) Detect(unit *m.SourceUnit, _ m.Options) []m.Diagnostic {
	var diags []m.Diagnostic

	for _, loc := range plainTextPattern.FindAllStringIndex(unit.Text, -1) {
		span := spanOf(unit, loc[0], loc[1])
		diags = append(diags, diagnosticFor(r, unit, span,
			"ConvertTo-SecureString -AsPlainText stores the credential in plain text"))
	}

	return diags
}

// forEachCommandToken visits every token in command position: the name token
// of each command statement plus any token directly following a pipe.
func forEachCommandToken(tree *syntax.Tree, visit func(tok syntax.Token)) {
	syntax.Walk(tree, func(n syntax.Node, _ int) bool {
		cmd, ok := n.(*syntax.CommandStmt)
		if !ok {
			return true
		}

		visit(cmd.Name)

		afterPipe := false

		for _, tok := range cmd.Args {
			if tok.Kind == syntax.TokenComment {
				continue
			}

			if afterPipe {
				visit(tok)

				afterPipe = false

				continue
			}

			if tok.Kind == syntax.TokenOperator && tok.Text == "|" {
				afterPipe = true
			}
		}

		return true
	})
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}

	return string(b)
}
