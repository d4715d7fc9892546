package rules

import (
	"fmt"
	"math"
	"regexp"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// entropyWindow is the sliding-window width for entropy scoring. Candidates
// shorter than the window are scored whole.
const entropyWindow = 40

// secretPatterns short-circuit the entropy check: a match is flagged
// regardless of its score.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`),
	regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]+`),
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
}

// SecretRule flags string literals assigned to variables that look like
// embedded credentials, either by entropy or by a known secret prefix. It is
// report-only: replacing a credential is not something a tool can do safely.
type SecretRule struct{}

// ID implements Rule.
func (r *SecretRule) ID() string { return "PS-SEC-001" }

// Category implements Rule.
func (r *SecretRule) Category() m.Category { return m.CategorySecurity }

// Severity implements Rule.
func (r *SecretRule) Severity() m.Severity { return m.SeverityError }

// Describe implements Rule.
func (r *SecretRule) Describe() string {
	return "High-entropy or known-prefix string literal assigned to a variable"
}

// Detect implements Rule.
func (r *SecretRule) Detect(unit *m.SourceUnit, opts m.Options) []m.Diagnostic {
	tree, ok := treeOf(unit)
	if !ok {
		return nil
	}

	threshold := opts.EntropyThreshold
	if threshold <= 0 {
		threshold = m.DefaultOptions().EntropyThreshold
	}

	minLength := opts.MinSecretLength
	if minLength <= 0 {
		minLength = m.DefaultOptions().MinSecretLength
	}

	var diags []m.Diagnostic

	syntax.Walk(tree, func(n syntax.Node, _ int) bool {
		assign, ok := n.(*syntax.Assignment)
		if !ok {
			return true
		}

		for _, tok := range assign.Value {
			if tok.Kind != syntax.TokenString {
				continue
			}

			value := tok.StringValue()

			if match := matchSecretPattern(value); match != "" {
				span := spanOf(unit, tok.StartOffset, tok.EndOffset)
				diags = append(diags, diagnosticFor(r, unit, span,
					fmt.Sprintf("string assigned to %s matches known secret pattern", assign.Target.Text)))

				continue
			}

			// Entropy is undefined for empty or near-empty strings; short
			// candidates are skipped, not scored.
			if len(value) < minLength {
				continue
			}

			score := maxWindowEntropy(value, entropyWindow)
			if score >= threshold {
				span := spanOf(unit, tok.StartOffset, tok.EndOffset)
				diags = append(diags, diagnosticFor(r, unit, span,
					fmt.Sprintf("string assigned to %s has entropy %.2f bits/char (threshold %.2f); possible hardcoded secret",
						assign.Target.Text, score, threshold)))
			}
		}

		return true
	})

	return diags
}

func matchSecretPattern(value string) string {
	for _, pattern := range secretPatterns {
		if loc := pattern.FindString(value); loc != "" {
			return loc
		}
	}

	return ""
}

// maxWindowEntropy slides a window of the given width over s and returns the
// highest Shannon entropy (bits per character) observed. Strings shorter
// than the window are scored as a single window.
func maxWindowEntropy(s string, window int) float64 {
	if len(s) == 0 {
		return 0
	}

	if window <= 0 || len(s) <= window {
		return shannonEntropy(s)
	}

	best := 0.0

	for i := 0; i+window <= len(s); i++ {
		if e := shannonEntropy(s[i : i+window]); e > best {
			best = e
		}
	}

	return best
}

// shannonEntropy computes -sum(p*log2(p)) over the byte distribution of s.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}

	total := float64(len(s))
	entropy := 0.0

	for _, count := range counts {
		if count == 0 {
			continue
		}

		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}

	return entropy
}
