package fileset

// Selection tracks which file the code view shows. It is kept separately
// from the Set and re-resolved after every replacement.
type Selection struct {
	name string
}

// Name returns the selected filename, or "" when nothing is selected.
func (s *Selection) Name() string {
	return s.name
}

// Select sets the selection. Names absent from set are ignored and the
// previous selection is kept.
func (s *Selection) Select(set *Set, name string) bool {
	if _, ok := set.Find(name); !ok {
		return false
	}
	s.name = name
	return true
}

// Resolve keeps the selection valid for set: an empty set clears it, and a
// selection that no longer names a file moves to the first file.
func (s *Selection) Resolve(set *Set) {
	if set.Empty() {
		s.name = ""
		return
	}
	if _, ok := set.Find(s.name); ok {
		return
	}
	s.name = set.files[0].Filename
}
