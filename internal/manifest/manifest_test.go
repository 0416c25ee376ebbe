package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/pkg/types"
)

func withManifest(content string) *fileset.Set {
	return fileset.New(types.File{Filename: "manifest.json", Content: content})
}

func TestExtractPermissions(t *testing.T) {
	tests := []struct {
		name     string
		set      *fileset.Set
		expected []any
	}{
		{"in order", withManifest(`{"permissions":["storage","tabs"]}`), []any{"storage", "tabs"}},
		{"no dedup", withManifest(`{"permissions":["tabs","tabs"]}`), []any{"tabs", "tabs"}},
		{"non-string kept", withManifest(`{"permissions":["tabs",3]}`), []any{"tabs", float64(3)}},
		{"invalid json", withManifest(`{not json`), []any{}},
		{"not an array", withManifest(`{"permissions":"tabs"}`), []any{}},
		{"absent key", withManifest(`{"name":"x"}`), []any{}},
		{"no manifest", fileset.New(types.File{Filename: "popup.js"}), []any{}},
		{"name must be exact", fileset.New(types.File{Filename: "./manifest.json", Content: `{"permissions":["tabs"]}`}), []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPermissions(tt.set))
		})
	}
}

func TestPermissionStrings(t *testing.T) {
	s := withManifest(`{"permissions":["storage",{"origin":"x"},true]}`)
	assert.Equal(t, []string{"storage", `{"origin":"x"}`, "true"}, PermissionStrings(s))
}

func TestName(t *testing.T) {
	assert.Equal(t, "Dark Mode", Name(withManifest(`{"name":"Dark Mode"}`)))
	assert.Equal(t, DefaultName, Name(withManifest(`{"name":""}`)))
	assert.Equal(t, DefaultName, Name(withManifest(`{"name":7}`)))
	assert.Equal(t, DefaultName, Name(withManifest(`oops`)))
	assert.Equal(t, DefaultName, Name(fileset.New()))
}
