package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/boyter/gocodewalker"

	"github.com/extforge/extforge/pkg/types"
)

// ExcludeDirectory lists directory names never read into a set.
var ExcludeDirectory = []string{"node_modules", ".git", "coverage", "__tests__"}

// ExcludePatterns lists filename globs never read into a set.
var ExcludePatterns = []string{"*.log", "*.swp", "*.zip", ".DS_Store"}

// LoadDir reads an unpacked extension directory into a Set. Filenames are
// slash-separated and relative to dir. .gitignore rules are honoured.
func LoadDir(dir string) (*Set, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	queue := make(chan *gocodewalker.File, 256)
	walker := gocodewalker.NewFileWalker(dir, queue)
	walker.IncludeHidden = true
	walker.ExcludeDirectory = append(walker.ExcludeDirectory, ExcludeDirectory...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- walker.Start()
	}()

	var files []types.File
	var readErr error
	for f := range queue {
		if readErr != nil {
			continue
		}
		rel, err := filepath.Rel(dir, f.Location)
		if err != nil {
			readErr = err
			continue
		}
		rel = filepath.ToSlash(rel)
		if excluded(rel) {
			continue
		}
		data, err := os.ReadFile(f.Location)
		if err != nil {
			readErr = fmt.Errorf("read %s: %w", rel, err)
			continue
		}
		files = append(files, types.File{Filename: rel, Content: string(data)})
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	return New(sortForPreview(files)...), nil
}

func excluded(rel string) bool {
	base := filepath.Base(rel)
	for _, p := range ExcludePatterns {
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

// sortForPreview puts manifest.json first and the rest sorted by path, so
// the entry page chosen from a directory is stable.
func sortForPreview(files []types.File) []types.File {
	out := make([]types.File, 0, len(files))
	for _, f := range files {
		if f.Filename == "manifest.json" {
			out = append(out, f)
		}
	}
	rest := make([]types.File, 0, len(files))
	for _, f := range files {
		if f.Filename != "manifest.json" {
			rest = append(rest, f)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		return rest[i].Filename < rest[j].Filename
	})
	return append(out, rest...)
}

// WriteDir writes files under dir, creating subdirectories as needed.
// Filenames that would escape dir are refused before anything is written.
func WriteDir(dir string, files []types.File) error {
	for _, f := range files {
		if !filepath.IsLocal(filepath.FromSlash(f.Filename)) {
			return fmt.Errorf("refusing to write %q outside %s", f.Filename, dir)
		}
	}
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Filename))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
			return err
		}
	}
	return nil
}
