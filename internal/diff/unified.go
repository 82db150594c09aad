package diff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified produces a classic unified patch (---/+++ headers, @@ hunks)
// for path. A nil oldContent means the file is new.
func (e *Engine) Unified(path string, oldContent, newContent []byte) (string, error) {
	from := "a/" + path
	if oldContent == nil {
		from = "/dev/null"
	}

	u := difflib.UnifiedDiff{
		A:        SplitLines(string(oldContent)),
		B:        SplitLines(string(newContent)),
		FromFile: from,
		ToFile:   "b/" + path,
		Context:  e.contextLines,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("rendering unified diff for %s: %w", path, err)
	}
	return s, nil
}
