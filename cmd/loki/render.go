package main

import (
	"fmt"
	"io"
	"strings"

	"loki/internal/diff"
	"loki/internal/digest"
	"loki/internal/history"
	"loki/internal/index"
	"loki/internal/repo"

	"github.com/fatih/color"
)

const dateLayout = "Mon Jan 2 15:04:05 2006 -0700"

var (
	added   = color.New(color.FgGreen)
	removed = color.New(color.FgRed)
	header  = color.New(color.FgCyan)
	hashCol = color.New(color.FgYellow)
	bold    = color.New(color.Bold)
)

func printCommit(w io.Writer, e history.Entry) {
	hashCol.Fprintf(w, "commit %s\n", e.Digest)
	if !e.Commit.IsRoot() {
		fmt.Fprintf(w, "Parent: %s\n", e.Commit.Parent)
	}
	fmt.Fprintf(w, "Date:   %s\n\n", e.Commit.Time.Local().Format(dateLayout))
	for _, line := range strings.Split(e.Commit.Message, "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
	fmt.Fprintln(w)
}

func printCommitLine(w io.Writer, e history.Entry) {
	firstLine, _, _ := strings.Cut(e.Commit.Message, "\n")
	fmt.Fprintf(w, "%s %s %s\n",
		hashCol.Sprint(e.Digest.Short()),
		e.Commit.Time.Local().Format("2006-01-02 15:04"),
		firstLine)
}

func printFiles(w io.Writer, files []index.Entry) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No files")
		return
	}
	fmt.Fprintln(w, "Files:")
	for _, f := range files {
		fmt.Fprintf(w, "\t%s  %s\n", hashCol.Sprint(f.Hash.Short()), f.Path)
	}
}

// printFileDiff prints added and removed lines only; unchanged lines are
// suppressed.
func printFileDiff(w io.Writer, f repo.FileDiff) {
	title := f.Path
	if f.NewFile {
		title += " (new file)"
	}
	bold.Fprintf(w, "%s\n", title)

	for _, line := range f.Result.Changes() {
		c := removed
		if line.Kind == diff.Added {
			c = added
		}
		c.Fprintln(w, line.String())
	}

	stats := f.Result.Stats
	fmt.Fprintf(w, "%s, %s\n\n",
		added.Sprintf("%d addition(s)", stats.Additions),
		removed.Sprintf("%d deletion(s)", stats.Deletions))
}

func printPatch(w io.Writer, patch string) {
	for _, line := range strings.SplitAfter(patch, "\n") {
		if line == "" {
			continue
		}
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "---"), strings.HasPrefix(text, "+++"):
			bold.Fprintln(w, text)
		case strings.HasPrefix(text, "@@"):
			header.Fprintln(w, text)
		case strings.HasPrefix(text, "+"):
			added.Fprintln(w, text)
		case strings.HasPrefix(text, "-"):
			removed.Fprintln(w, text)
		default:
			fmt.Fprintln(w, text)
		}
	}
}

func printStatus(w io.Writer, head digest.Digest, staged []index.Entry) {
	if head.IsZero() {
		fmt.Fprintln(w, "No commits yet")
	} else {
		fmt.Fprintf(w, "HEAD at %s\n", hashCol.Sprint(head.Short()))
	}

	if len(staged) == 0 {
		fmt.Fprintln(w, "Nothing staged")
		return
	}
	fmt.Fprintln(w, "\nStaged for commit:")
	for _, e := range staged {
		fmt.Fprintf(w, "\t%s %s  %s\n", added.Sprint("+"), hashCol.Sprint(e.Hash.Short()), e.Path)
	}
}

func printStaged(w io.Writer, path string, hash digest.Digest) {
	fmt.Fprintf(w, "%s %s  %s\n", added.Sprint("staged"), hashCol.Sprint(hash.Short()), path)
}
