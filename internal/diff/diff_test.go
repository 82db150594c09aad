package diff

import (
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Diff(t *testing.T) {
	engine := NewEngine(3)

	tests := []struct {
		name string
		old  string
		new  string
		want []Segment
	}{
		{
			name: "single line replaced",
			old:  "a\nb\nc\n",
			new:  "a\nx\nc\n",
			want: []Segment{
				{Unchanged, "a\n"},
				{Removed, "b\n"},
				{Added, "x\n"},
				{Unchanged, "c\n"},
			},
		},
		{
			name: "no trailing newline",
			old:  "hello",
			new:  "hello world",
			want: []Segment{
				{Removed, "hello"},
				{Added, "hello world"},
			},
		},
		{
			name: "trailing newline",
			old:  "hello\n",
			new:  "hello world\n",
			want: []Segment{
				{Removed, "hello\n"},
				{Added, "hello world\n"},
			},
		},
		{
			name: "identical",
			old:  "same\ntext\n",
			new:  "same\ntext\n",
			want: []Segment{
				{Unchanged, "same\ntext\n"},
			},
		},
		{
			name: "append",
			old:  "one\n",
			new:  "one\ntwo\nthree\n",
			want: []Segment{
				{Unchanged, "one\n"},
				{Added, "two\nthree\n"},
			},
		},
		{
			name: "delete everything",
			old:  "one\ntwo\n",
			new:  "",
			want: []Segment{
				{Removed, "one\ntwo\n"},
			},
		},
		{
			name: "from empty",
			old:  "",
			new:  "fresh\n",
			want: []Segment{
				{Added, "fresh\n"},
			},
		},
		{
			name: "both empty",
			old:  "",
			new:  "",
			want: nil,
		},
		{
			name: "newline added at end of file",
			old:  "a",
			new:  "a\n",
			want: []Segment{
				{Removed, "a"},
				{Added, "a\n"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Diff([]byte(tt.old), []byte(tt.new))
			assert.Equal(t, tt.want, result.Segments)
		})
	}
}

func TestEngine_DiffReconstructs(t *testing.T) {
	engine := NewEngine(3)
	old := "package main\n\nfunc main() {\n\tprintln(1)\n}\n"
	new := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(1)\n}\n"

	result := engine.Diff([]byte(old), []byte(new))

	var gotOld, gotNew strings.Builder
	for _, seg := range result.Segments {
		if seg.Kind != Added {
			gotOld.WriteString(seg.Text)
		}
		if seg.Kind != Removed {
			gotNew.WriteString(seg.Text)
		}
	}
	assert.Equal(t, old, gotOld.String())
	assert.Equal(t, new, gotNew.String())
	assert.Equal(t, 3, result.Stats.Additions)
	assert.Equal(t, 1, result.Stats.Deletions)
	assert.True(t, result.HasChanges())
}

func TestEngine_Added(t *testing.T) {
	engine := NewEngine(3)

	result := engine.Added([]byte("l1\nl2\n"))
	assert.Equal(t, []Segment{{Added, "l1\nl2\n"}}, result.Segments)
	assert.Equal(t, 2, result.Stats.Additions)
	assert.Zero(t, result.Stats.Deletions)

	empty := engine.Added(nil)
	assert.Empty(t, empty.Segments)
	assert.False(t, empty.HasChanges())
}

func TestResult_Changes(t *testing.T) {
	result := NewEngine(3).Diff([]byte("a\nb\nc\n"), []byte("a\nx\ny\nc\n"))

	changes := result.Changes()
	assert.Equal(t, []Line{
		{Kind: Removed, Text: "b"},
		{Kind: Added, Text: "x"},
		{Kind: Added, Text: "y"},
	}, changes)
	assert.Equal(t, "- b", changes[0].String())
	assert.Equal(t, "+ x", changes[1].String())

	unchanged := NewEngine(3).Diff([]byte("a\n"), []byte("a\n"))
	assert.Empty(t, unchanged.Changes())
	assert.False(t, unchanged.HasChanges())
}

func TestEngine_DiffLargeFileSmallChange(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20000; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	text := b.String()
	head, tail, _ := strings.Cut(text, "line 10000\n")

	tests := []struct {
		name    string
		changed string
		want    []Segment
	}{
		{
			name:    "edit in the middle",
			changed: head + "edited\n" + tail,
			want: []Segment{
				{Unchanged, head},
				{Removed, "line 10000\n"},
				{Added, "edited\n"},
				{Unchanged, tail},
			},
		},
		{
			name:    "append",
			changed: text + "tail\n",
			want: []Segment{
				{Unchanged, text},
				{Added, "tail\n"},
			},
		},
	}

	engine := NewEngine(3)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.GC()
			runtime.ReadMemStats(&before)
			result := engine.Diff([]byte(text), []byte(tt.changed))
			runtime.ReadMemStats(&after)

			assert.Equal(t, tt.want, result.Segments)
			// A full 20000 x 20000 table alone would be gigabytes
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(32<<20))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{}, SplitLines(""))
	assert.Equal(t, []string{"a"}, SplitLines("a"))
	assert.Equal(t, []string{"a\n"}, SplitLines("a\n"))
	assert.Equal(t, []string{"a\n", "b"}, SplitLines("a\nb"))
	assert.Equal(t, []string{"\n", "\n"}, SplitLines("\n\n"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "unchanged", Unchanged.String())
}

func TestEngine_Unified(t *testing.T) {
	engine := NewEngine(1)

	patch, err := engine.Unified("README", []byte("a\nb\nc\nd\n"), []byte("a\nx\nc\nd\n"))
	require.NoError(t, err)
	assert.Contains(t, patch, "--- a/README\n")
	assert.Contains(t, patch, "+++ b/README\n")
	assert.Contains(t, patch, "@@ -1,3 +1,3 @@\n")
	assert.Contains(t, patch, "-b\n")
	assert.Contains(t, patch, "+x\n")
	assert.NotContains(t, patch, " d\n")

	created, err := engine.Unified("new.txt", nil, []byte("hi\n"))
	require.NoError(t, err)
	assert.Contains(t, created, "--- /dev/null\n")
	assert.Contains(t, created, "+hi\n")

	same, err := engine.Unified("same", []byte("x\n"), []byte("x\n"))
	require.NoError(t, err)
	assert.Empty(t, same)
}
