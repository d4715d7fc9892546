package backup

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	m "psfix.dev/pkg/psfix/internal/model"
)

// UnifiedDiff renders a standard unified diff between original and fixed
// content. Line endings are normalized to LF before diffing, so the same
// logical change produces byte-identical output on every platform.
func UnifiedDiff(path m.Path, original, fixed string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(normalizeLineEndings(original)),
		B:        difflib.SplitLines(normalizeLineEndings(fixed)),
		FromFile: string(path),
		ToFile:   string(path),
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to compute diff for %s: %w", path, err)
	}

	return text, nil
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
