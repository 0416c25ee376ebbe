package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/extforge/extforge/internal/config"
	"github.com/extforge/extforge/pkg/types"
)

// Supported provider kinds.
const (
	Gemini    = "gemini"
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Ark       = "ark"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

const defaultMaxTokens = 8192

var defaultModels = map[string]string{
	Gemini:    "gemini-2.5-pro",
	OpenAI:    "gpt-4o",
	Anthropic: "claude-sonnet-4-20250514",
}

// Settings selects and configures a chat model backend.
type Settings struct {
	Kind      string
	Model     string
	BaseURL   string
	MaxTokens int
	// AmbientKey is the configured or environment API key for Kind.
	AmbientKey string
}

// SettingsFromConfig derives the active backend settings from cfg.
func SettingsFromConfig(cfg *types.Config) Settings {
	kind := cfg.Provider
	if kind == "" {
		kind = config.DefaultProvider
	}
	p := cfg.Providers[kind]

	s := Settings{
		Kind:       kind,
		Model:      p.Model,
		BaseURL:    p.BaseURL,
		MaxTokens:  p.MaxTokens,
		AmbientKey: p.APIKey,
	}
	if cfg.Model != "" {
		s.Model = cfg.Model
	}
	return s
}

// Kinds lists the supported provider kinds.
func Kinds() []string {
	return []string{Gemini, OpenAI, Anthropic, Ark}
}

// NewChatModel builds the eino chat model for s using apiKey.
func NewChatModel(ctx context.Context, s Settings, apiKey string) (model.BaseChatModel, error) {
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	modelID := s.Model
	if modelID == "" {
		modelID = defaultModels[s.Kind]
	}

	switch s.Kind {
	case Gemini, "":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:    apiKey,
			BaseURL:   baseURL,
			Model:     modelID,
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini model: %w", err)
		}
		return m, nil

	case OpenAI:
		cfg := &openai.ChatModelConfig{
			APIKey:              apiKey,
			Model:               modelID,
			MaxCompletionTokens: &maxTokens,
		}
		if s.BaseURL != "" {
			cfg.BaseURL = s.BaseURL
		}
		m, err := openai.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
		}
		return m, nil

	case Anthropic:
		cfg := &claude.Config{
			APIKey:    apiKey,
			Model:     modelID,
			MaxTokens: maxTokens,
		}
		if s.BaseURL != "" {
			baseURL := s.BaseURL
			cfg.BaseURL = &baseURL
		}
		m, err := claude.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude model: %w", err)
		}
		return m, nil

	case Ark:
		if modelID == "" {
			modelID = os.Getenv("ARK_MODEL_ID")
		}
		if modelID == "" {
			return nil, fmt.Errorf("ark requires a model (endpoint) id")
		}
		cfg := &ark.ChatModelConfig{
			APIKey:    apiKey,
			Model:     modelID,
			MaxTokens: &maxTokens,
		}
		if s.BaseURL != "" {
			cfg.BaseURL = s.BaseURL
		}
		m, err := ark.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create ARK model: %w", err)
		}
		return m, nil
	}

	return nil, fmt.Errorf("unknown provider %q", s.Kind)
}
