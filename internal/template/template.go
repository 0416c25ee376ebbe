// Package template provides the catalog of starter extensions.
package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/extforge/extforge/pkg/types"
)

//go:embed catalog/*.yaml
var builtin embed.FS

// ErrNotFound is returned for an unknown template id.
var ErrNotFound = errors.New("template not found")

// Catalog is a set of templates keyed by id.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]types.Template
}

// Builtin returns a catalog holding the embedded starter templates.
func Builtin() (*Catalog, error) {
	c := &Catalog{templates: make(map[string]types.Template)}
	if err := c.loadFS(builtin, "catalog"); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDir adds every *.yaml or *.yml template in dir. A template whose id
// matches an existing one replaces it.
func (c *Catalog) LoadDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return c.loadFS(os.DirFS(dir), ".")
}

func (c *Catalog) loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return err
		}
		t, err := Parse(data)
		if err != nil {
			return fmt.Errorf("template %s: %w", name, err)
		}
		if t.ID == "" {
			t.ID = strings.TrimSuffix(name, ext)
		}
		c.templates[t.ID] = t
	}
	return nil
}

// Parse decodes a single YAML template.
func Parse(data []byte) (types.Template, error) {
	var t types.Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return types.Template{}, err
	}
	if t.Title == "" {
		return types.Template{}, errors.New("missing title")
	}
	if len(t.Files) == 0 {
		return types.Template{}, errors.New("no files")
	}
	for i, f := range t.Files {
		if f.Filename == "" {
			return types.Template{}, fmt.Errorf("file %d has no filename", i)
		}
	}
	return t, nil
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (types.Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.templates[id]
	if !ok {
		return types.Template{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// List returns all templates sorted by order, then title.
func (c *Catalog) List() []types.Template {
	c.mu.RLock()
	out := make([]types.Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Title < out[j].Title
	})
	return out
}
