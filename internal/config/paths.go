package config

import (
	"os"
	"path/filepath"
)

// HomeEnv, when set, roots every extforge directory under one path.
const HomeEnv = "EXTFORGE_HOME"

// Paths locates extforge's data, config and state directories.
type Paths struct {
	Data   string
	Config string
	State  string
}

// GetPaths resolves the directories from EXTFORGE_HOME, then the XDG
// variables, then the platform defaults.
func GetPaths() *Paths {
	if root := os.Getenv(HomeEnv); root != "" {
		return &Paths{
			Data:   filepath.Join(root, "data"),
			Config: filepath.Join(root, "config"),
			State:  filepath.Join(root, "state"),
		}
	}
	return &Paths{
		Data:   filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "extforge"),
		Config: filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "extforge"),
		State:  filepath.Join(xdgDir("XDG_STATE_HOME", ".local", "state"), "extforge"),
	}
}

// xdgDir returns $env, or ~/<fallback...>. On platforms with their own
// convention (APPDATA, Application Support) os.UserConfigDir is used.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil && onXDGPlatform() {
		return filepath.Join(append([]string{home}, fallback...)...)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return filepath.Join(os.TempDir(), "extforge")
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// StoragePath is the root of the key-value store holding projects and
// settings.
func (p *Paths) StoragePath() string {
	return filepath.Join(p.Data, "storage")
}

// LogDir is where file logs are written.
func (p *Paths) LogDir() string {
	return filepath.Join(p.State, "log")
}

// TemplatesDir holds user templates loaded on top of the built-in ones.
func (p *Paths) TemplatesDir() string {
	return filepath.Join(p.Config, "templates")
}
