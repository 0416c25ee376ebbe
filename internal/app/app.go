// Package app wires configuration, storage and services into a runnable
// extforge instance.
package app

import (
	"fmt"
	"os"

	"github.com/extforge/extforge/internal/config"
	"github.com/extforge/extforge/internal/credential"
	"github.com/extforge/extforge/internal/event"
	"github.com/extforge/extforge/internal/logging"
	"github.com/extforge/extforge/internal/project"
	"github.com/extforge/extforge/internal/provider"
	"github.com/extforge/extforge/internal/server"
	"github.com/extforge/extforge/internal/storage"
	"github.com/extforge/extforge/internal/template"
	"github.com/extforge/extforge/internal/workspace"
	"github.com/extforge/extforge/pkg/types"
)

// App holds the long-lived services.
type App struct {
	Config      *types.Config
	Settings    provider.Settings
	Storage     *storage.Storage
	Templates   *template.Catalog
	Projects    *project.Store
	Credentials *credential.Resolver
	Generators  *provider.Credentialed
	Bus         *event.Bus
}

type options struct {
	config      *types.Config
	storagePath string
	factory     provider.ModelFactory
}

// Option customizes New.
type Option func(*options)

// WithConfig uses cfg instead of loading configuration from disk.
func WithConfig(cfg *types.Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithStoragePath overrides the key-value store location.
func WithStoragePath(path string) Option {
	return func(o *options) { o.storagePath = path }
}

// WithModelFactory overrides how chat models are built.
func WithModelFactory(f provider.ModelFactory) Option {
	return func(o *options) { o.factory = f }
}

// New builds an App for workDir.
func New(workDir string, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(workDir); err != nil {
			return nil, err
		}
	}

	paths := config.GetPaths()
	storagePath := o.storagePath
	if storagePath == "" {
		if err := paths.EnsurePaths(); err != nil {
			return nil, fmt.Errorf("create data directories: %w", err)
		}
		storagePath = paths.StoragePath()
	}
	store := storage.New(storagePath)

	catalog, err := template.Builtin()
	if err != nil {
		return nil, err
	}
	templatesDir := cfg.TemplatesDir
	if templatesDir == "" {
		if info, err := os.Stat(paths.TemplatesDir()); err == nil && info.IsDir() {
			templatesDir = paths.TemplatesDir()
		}
	}
	if templatesDir != "" {
		if err := catalog.LoadDir(templatesDir); err != nil {
			return nil, fmt.Errorf("load templates from %s: %w", templatesDir, err)
		}
	}

	settings := provider.SettingsFromConfig(cfg)
	resolver := credential.NewResolver(
		credential.NewStore(cfg.CredentialStore, store),
		func() string { return settings.AmbientKey },
	)

	logging.Debug().
		Str("provider", settings.Kind).
		Str("model", settings.Model).
		Str("storage", storagePath).
		Msg("app initialized")

	return &App{
		Config:      cfg,
		Settings:    settings,
		Storage:     store,
		Templates:   catalog,
		Projects:    project.NewStore(store),
		Credentials: resolver,
		Generators:  provider.NewCredentialed(settings, resolver, o.factory),
		Bus:         event.NewBus(),
	}, nil
}

// Workspace creates a standalone workspace for scope.
func (a *App) Workspace(scope string) *workspace.Workspace {
	return workspace.New(scope, a.Generators.ForScope(scope), a.Bus)
}

// ServerConfig returns the default server configuration with the port
// and CORS origins from the config file applied.
func (a *App) ServerConfig() *server.Config {
	cfg := server.DefaultConfig()
	if sc := a.Config.Server; sc != nil {
		if sc.Port != 0 {
			cfg.Port = sc.Port
		}
		if len(sc.CORSOrigins) > 0 {
			cfg.CORSOrigins = sc.CORSOrigins
		}
	}
	return cfg
}

// Server builds the HTTP server. A nil cfg uses ServerConfig.
func (a *App) Server(cfg *server.Config) *server.Server {
	if cfg == nil {
		cfg = a.ServerConfig()
	}
	return server.New(cfg, server.Deps{
		Workspaces:  workspace.NewManager(a.Generators.ForScope, a.Bus),
		Projects:    a.Projects,
		Templates:   a.Templates,
		Credentials: a.Credentials,
		Bus:         a.Bus,
	})
}

// Close releases the event bus.
func (a *App) Close() error {
	return a.Bus.Close()
}
