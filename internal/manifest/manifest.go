// Package manifest reads the handful of fields extforge shows from an
// extension's manifest.json.
package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/internal/logging"
)

// Filename is the exact name the manifest must have.
const Filename = "manifest.json"

// DefaultName is used when the manifest has no usable name.
const DefaultName = "My Extension"

func parse(set *fileset.Set) (map[string]any, bool) {
	f, ok := set.Find(Filename)
	if !ok {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(f.Content), &m); err != nil {
		logging.Debug().Err(err).Msg("manifest.json is not valid JSON")
		return nil, false
	}
	return m, true
}

// ExtractPermissions returns the manifest's "permissions" array exactly as
// written, in order. A missing or unparseable manifest, or a non-array
// value, yields an empty list.
func ExtractPermissions(set *fileset.Set) []any {
	m, ok := parse(set)
	if !ok {
		return []any{}
	}
	perms, ok := m["permissions"].([]any)
	if !ok {
		return []any{}
	}
	return perms
}

// PermissionStrings renders ExtractPermissions for display.
func PermissionStrings(set *fileset.Set) []string {
	perms := ExtractPermissions(set)
	out := make([]string, len(perms))
	for i, p := range perms {
		if s, ok := p.(string); ok {
			out[i] = s
			continue
		}
		b, err := json.Marshal(p)
		if err != nil {
			out[i] = fmt.Sprint(p)
			continue
		}
		out[i] = string(b)
	}
	return out
}

// Name returns the manifest's name, or DefaultName.
func Name(set *fileset.Set) string {
	m, ok := parse(set)
	if !ok {
		return DefaultName
	}
	name, _ := m["name"].(string)
	if strings.TrimSpace(name) == "" {
		return DefaultName
	}
	return name
}
