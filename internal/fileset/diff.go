package fileset

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeKind classifies a per-file change between two sets.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// Change summarizes how one file differs between two sets.
type Change struct {
	Filename  string     `json:"filename"`
	Kind      ChangeKind `json:"kind"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// Diff reports per-file changes from old to new. Files present in new come
// first in new's order, followed by removals in old's order. Unchanged files
// are omitted.
func Diff(old, new *Set) []Change {
	var changes []Change
	for _, f := range new.files {
		prev, ok := old.Find(f.Filename)
		if !ok {
			changes = append(changes, Change{
				Filename:  f.Filename,
				Kind:      Added,
				Additions: countLines(f.Content),
			})
			continue
		}
		if prev.Content == f.Content {
			continue
		}
		adds, dels := lineDelta(prev.Content, f.Content)
		changes = append(changes, Change{
			Filename:  f.Filename,
			Kind:      Modified,
			Additions: adds,
			Deletions: dels,
		})
	}
	for _, f := range old.files {
		if _, ok := new.Find(f.Filename); !ok {
			changes = append(changes, Change{
				Filename:  f.Filename,
				Kind:      Removed,
				Deletions: countLines(f.Content),
			})
		}
	}
	return changes
}

func lineDelta(before, after string) (int, int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	additions, deletions := 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			deletions += countLines(d.Text)
		}
	}
	return additions, deletions
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
