package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/extforge/extforge/internal/config"
	"github.com/extforge/extforge/pkg/types"
)

// LiveEnv enables specs that call a real provider.
const LiveEnv = "EXTFORGE_LIVE"

// RandomString generates a random hex string of n characters.
func RandomString(n int) string {
	b := make([]byte, n/2+1)
	rand.Read(b)
	return hex.EncodeToString(b)[:n]
}

// Files converts mock files to the workspace file type.
func Files(mock []MockFile) []types.File {
	out := make([]types.File, len(mock))
	for i, f := range mock {
		out[i] = types.File{Filename: f.Filename, Content: f.Content}
	}
	return out
}

// RequireEnv reports the first unset variable among vars.
func RequireEnv(vars ...string) error {
	var missing []string
	for _, v := range vars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}

// LiveProvider returns a provider kind whose API key is in the environment
// when LiveEnv is set. Kinds are tried in name order.
func LiveProvider() (string, bool) {
	if RequireEnv(LiveEnv) != nil {
		return "", false
	}
	kinds := make([]string, 0, len(config.ProviderEnv))
	for kind := range config.ProviderEnv {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		if RequireEnv(config.ProviderEnv[kind]) == nil {
			return kind, true
		}
	}
	return "", false
}
