// Package fileset holds the ordered set of generated extension files.
package fileset

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"

	"github.com/extforge/extforge/pkg/types"
)

// Set is an ordered collection of files with unique filenames.
// A Set is replaced wholesale and never merged.
type Set struct {
	files []types.File
}

// New builds a Set from files using the same rules as Replace.
func New(files ...types.File) *Set {
	s := &Set{}
	s.Replace(files)
	return s
}

// Replace discards the current contents and installs files.
// Entries with an empty filename are dropped. When a filename repeats, the
// later content wins and the file keeps the position where it first appeared.
func (s *Set) Replace(files []types.File) {
	out := make([]types.File, 0, len(files))
	index := make(map[string]int, len(files))
	for _, f := range files {
		if f.Filename == "" {
			continue
		}
		if i, ok := index[f.Filename]; ok {
			out[i].Content = f.Content
			continue
		}
		index[f.Filename] = len(out)
		out = append(out, f)
	}
	s.files = out
}

// Find returns the file named filename.
func (s *Set) Find(filename string) (types.File, bool) {
	return lo.Find(s.files, func(f types.File) bool {
		return f.Filename == filename
	})
}

// Resolve looks up a reference as written in a page: either the exact
// filename or the filename prefixed with "./".
func (s *Set) Resolve(ref string) (types.File, bool) {
	return lo.Find(s.files, func(f types.File) bool {
		return f.Filename == ref || "./"+f.Filename == ref
	})
}

// First returns the first file whose name satisfies pred.
func (s *Set) First(pred func(name string) bool) (types.File, bool) {
	return lo.Find(s.files, func(f types.File) bool {
		return pred(f.Filename)
	})
}

// EntryPage returns the first HTML file, which previews render.
func (s *Set) EntryPage() (types.File, bool) {
	return s.First(func(name string) bool {
		return strings.HasSuffix(name, ".html")
	})
}

// Files returns a copy of the files in order.
func (s *Set) Files() []types.File {
	out := make([]types.File, len(s.files))
	copy(out, s.files)
	return out
}

// Names returns the filenames in order.
func (s *Set) Names() []string {
	return lo.Map(s.files, func(f types.File, _ int) string {
		return f.Filename
	})
}

// Match returns the files whose names match a doublestar glob such as
// "**/*.js". An empty pattern matches everything.
func (s *Set) Match(pattern string) ([]types.File, error) {
	if pattern == "" {
		return s.Files(), nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	return lo.Filter(s.files, func(f types.File, _ int) bool {
		ok, _ := doublestar.Match(pattern, f.Filename)
		return ok
	}), nil
}

func (s *Set) Len() int {
	return len(s.files)
}

func (s *Set) Empty() bool {
	return len(s.files) == 0
}
