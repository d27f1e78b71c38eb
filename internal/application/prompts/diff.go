package prompts

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// diffContext is the number of unchanged lines kept around each hunk.
const diffContext = 3

// UnifiedDiff renders a unified diff of a and b with the given file labels.
// Identical inputs produce an empty string.
func UnifiedDiff(a, b, fromLabel, toLabel string) (string, error) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        unifiedLines(a),
		B:        unifiedLines(b),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  diffContext,
	})
	return text, errors.Wrap(err, "render unified diff")
}

// unifiedLines keeps the trailing newline on each line without adding a
// blank one for text that already ends in a newline.
func unifiedLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(s, "\n"))
}
