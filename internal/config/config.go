package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/extforge/extforge/pkg/types"
)

// DefaultProvider is used when no provider is configured.
const DefaultProvider = "gemini"

// ProviderEnv maps each provider to the environment variable holding its
// ambient API key.
var ProviderEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"ark":       "ARK_API_KEY",
}

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Load merges configuration from every source for directory.
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Providers: make(map[string]types.ProviderConfig),
	}

	loaded := make(map[string]bool)
	loadOnce := func(path string, baseDir string) error {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return nil
		}
		err = loadConfigFile(path, config, baseDir)
		if err == nil {
			loaded[absPath] = true
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var candidates [][2]string
	globalPath := GetPaths().Config
	candidates = append(candidates,
		[2]string{filepath.Join(globalPath, "extforge.json"), globalPath},
		[2]string{filepath.Join(globalPath, "extforge.jsonc"), globalPath},
	)
	if directory != "" {
		projectDir := filepath.Join(directory, ".extforge")
		candidates = append(candidates,
			[2]string{filepath.Join(directory, "extforge.json"), directory},
			[2]string{filepath.Join(directory, "extforge.jsonc"), directory},
			[2]string{filepath.Join(projectDir, "extforge.json"), projectDir},
			[2]string{filepath.Join(projectDir, "extforge.jsonc"), projectDir},
		)
	}
	if configPath := os.Getenv("EXTFORGE_CONFIG"); configPath != "" {
		candidates = append(candidates, [2]string{configPath, filepath.Dir(configPath)})
	}

	for _, c := range candidates {
		if err := loadOnce(c[0], c[1]); err != nil {
			return nil, err
		}
	}

	if content := os.Getenv("EXTFORGE_CONFIG_CONTENT"); content != "" {
		var inline types.Config
		if err := json.Unmarshal(jsonc.ToJSON([]byte(content)), &inline); err != nil {
			return nil, err
		}
		mergeConfig(config, &inline)
	}

	normalizeProviderConfig(config)
	applyEnvOverrides(config)

	if config.Provider == "" {
		config.Provider = DefaultProvider
	}
	return config, nil
}

func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = interpolate(jsonc.ToJSON(data), baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return &ParseError{Path: path, Err: err}
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// ParseError reports a config file that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "invalid config " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match
		}

		// embed as the inside of a JSON string
		quoted, _ := json.Marshal(strings.TrimRight(string(content), "\r\n"))
		return string(quoted[1 : len(quoted)-1])
	})

	return []byte(str)
}

func normalizeProviderConfig(config *types.Config) {
	for name, p := range config.Providers {
		if p.Options != nil {
			if p.Options.APIKey != "" {
				p.APIKey = p.Options.APIKey
			}
			if p.Options.BaseURL != "" {
				p.BaseURL = p.Options.BaseURL
			}
			p.Options = nil
		}
		config.Providers[name] = p
	}
}

func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Provider != "" {
		target.Provider = source.Provider
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.CredentialStore != "" {
		target.CredentialStore = source.CredentialStore
	}
	if source.TemplatesDir != "" {
		target.TemplatesDir = source.TemplatesDir
	}
	if source.Server != nil {
		target.Server = source.Server
	}

	if source.Providers != nil {
		if target.Providers == nil {
			target.Providers = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Providers {
			target.Providers[k] = v
		}
	}
}

// applyEnvOverrides applies environment variable overrides. Ambient API
// keys only fill providers that have none configured.
func applyEnvOverrides(config *types.Config) {
	for provider, envVar := range ProviderEnv {
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			continue
		}
		p := config.Providers[provider]
		if p.APIKey == "" {
			p.APIKey = apiKey
			config.Providers[provider] = p
		}
	}

	if provider := os.Getenv("EXTFORGE_PROVIDER"); provider != "" {
		config.Provider = provider
	}
	if model := os.Getenv("EXTFORGE_MODEL"); model != "" {
		config.Model = model
	}
	if baseURL := os.Getenv("EXTFORGE_BASE_URL"); baseURL != "" {
		name := config.Provider
		if name == "" {
			name = DefaultProvider
		}
		p := config.Providers[name]
		p.BaseURL = baseURL
		config.Providers[name] = p
	}
	if store := os.Getenv("EXTFORGE_CREDENTIAL_STORE"); store != "" {
		config.CredentialStore = store
	}
}

// Save writes config to path as indented JSON.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
