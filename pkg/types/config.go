package types

// Config represents the extforge configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Provider selects the generation backend: "gemini"|"openai"|"anthropic"|"ark"
	Provider string `json:"provider,omitempty"`

	// Model overrides the provider's default model
	Model string `json:"model,omitempty"`

	// Per-provider connection settings
	Providers map[string]ProviderConfig `json:"providers,omitempty"`

	// Credential store backend: "file"|"keyring"
	CredentialStore string `json:"credential_store,omitempty"`

	// Directory of additional YAML templates
	TemplatesDir string `json:"templates_dir,omitempty"`

	// HTTP server
	Server *ServerConfig `json:"server,omitempty"`
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	APIKey    string `json:"apiKey,omitempty"`
	BaseURL   string `json:"baseURL,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`

	// Nested options (same shape as the top-level fields)
	Options *ProviderOptions `json:"options,omitempty"`
}

// ProviderOptions holds nested provider options.
type ProviderOptions struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int      `json:"port,omitempty"`
	CORSOrigins []string `json:"cors_origins,omitempty"`
}
