// internal/diff/diff.go
package diff

import (
	"strings"
)

// Kind classifies a run of lines in a diff
type Kind int

const (
	Unchanged Kind = iota
	Added
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unchanged"
	}
}

// Segment is a run of consecutive lines of the same kind. Text keeps the
// line terminators, so concatenating the non-added segments rebuilds the
// old text and the non-removed ones the new text.
type Segment struct {
	Kind Kind
	Text string
}

// Lines splits Text back into its lines, terminators included.
func (s Segment) Lines() []string {
	return SplitLines(s.Text)
}

// Result contains the complete diff information
type Result struct {
	Segments []Segment
	Stats    struct {
		Additions int
		Deletions int
	}
}

// HasChanges reports whether any line was added or removed.
func (r *Result) HasChanges() bool {
	return r.Stats.Additions > 0 || r.Stats.Deletions > 0
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine. contextLines only affects unified
// output.
func NewEngine(contextLines int) *Engine {
	return &Engine{
		contextLines: contextLines,
	}
}

// Diff generates a line-by-line diff between two contents. Segments come
// out in document order; inside a change, removed lines precede added ones.
//
// Lines shared at the start and end are matched directly, so the LCS table
// only spans the changed middle.
func (e *Engine) Diff(oldContent, newContent []byte) *Result {
	oldLines := SplitLines(string(oldContent))
	newLines := SplitLines(string(newContent))

	prefix := commonPrefix(oldLines, newLines)
	suffix := commonSuffix(oldLines[prefix:], newLines[prefix:])
	oldMid := oldLines[prefix : len(oldLines)-suffix]
	newMid := newLines[prefix : len(newLines)-suffix]

	b := &segmentBuilder{}
	for _, line := range oldLines[:prefix] {
		b.emit(Unchanged, line)
	}

	lcs := e.buildLCSMatrix(oldMid, newMid)
	width := len(newMid) + 1
	i, j := 0, 0
	for i < len(oldMid) || j < len(newMid) {
		switch {
		case i < len(oldMid) && j < len(newMid) && oldMid[i] == newMid[j]:
			b.emit(Unchanged, oldMid[i])
			i++
			j++
		case j == len(newMid) || (i < len(oldMid) && lcs[(i+1)*width+j] >= lcs[i*width+j+1]):
			b.emit(Removed, oldMid[i])
			i++
		default:
			b.emit(Added, newMid[j])
			j++
		}
	}

	for _, line := range oldLines[len(oldLines)-suffix:] {
		b.emit(Unchanged, line)
	}

	return b.result()
}

// segmentBuilder merges consecutive lines of one kind into a segment.
type segmentBuilder struct {
	res   Result
	kind  Kind
	lines []string
}

func (b *segmentBuilder) emit(kind Kind, line string) {
	switch kind {
	case Added:
		b.res.Stats.Additions++
	case Removed:
		b.res.Stats.Deletions++
	}
	if len(b.lines) > 0 && b.kind != kind {
		b.flush()
	}
	b.kind = kind
	b.lines = append(b.lines, line)
}

func (b *segmentBuilder) flush() {
	if len(b.lines) == 0 {
		return
	}
	b.res.Segments = append(b.res.Segments, Segment{Kind: b.kind, Text: strings.Join(b.lines, "")})
	b.lines = b.lines[:0]
}

func (b *segmentBuilder) result() *Result {
	b.flush()
	return &b.res
}

func commonPrefix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func commonSuffix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}

// Added reports content as an entirely new file: one added segment
// holding every line.
func (e *Engine) Added(content []byte) *Result {
	result := &Result{}
	if len(content) == 0 {
		return result
	}
	result.Segments = []Segment{{Kind: Added, Text: string(content)}}
	result.Stats.Additions = len(SplitLines(string(content)))
	return result
}

// buildLCSMatrix returns a flat (len(oldLines)+1) x (len(newLines)+1)
// table, row-major, where cell (i, j) is the length of the longest common
// subsequence of oldLines[i:] and newLines[j:].
func (e *Engine) buildLCSMatrix(oldLines, newLines []string) []int {
	width := len(newLines) + 1
	matrix := make([]int, (len(oldLines)+1)*width)

	for i := len(oldLines) - 1; i >= 0; i-- {
		for j := len(newLines) - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				matrix[i*width+j] = matrix[(i+1)*width+j+1] + 1
			} else {
				matrix[i*width+j] = max(matrix[(i+1)*width+j], matrix[i*width+j+1])
			}
		}
	}

	return matrix
}

// SplitLines splits s after each newline. A final line without a
// terminator is kept as is.
func SplitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Line is one added or removed line, terminator stripped.
type Line struct {
	Kind Kind
	Text string
}

// Marker is the prefix shown in front of a changed line.
func (l Line) Marker() string {
	if l.Kind == Added {
		return "+ "
	}
	return "- "
}

func (l Line) String() string {
	return l.Marker() + l.Text
}

// Changes lists the added and removed lines in document order. Unchanged
// lines are suppressed.
func (r *Result) Changes() []Line {
	var lines []Line
	for _, seg := range r.Segments {
		if seg.Kind == Unchanged {
			continue
		}
		for _, line := range seg.Lines() {
			lines = append(lines, Line{Kind: seg.Kind, Text: strings.TrimSuffix(line, "\n")})
		}
	}
	return lines
}
