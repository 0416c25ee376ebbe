package provider

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"

	"github.com/extforge/extforge/internal/credential"
	"github.com/extforge/extforge/pkg/types"
)

// ModelFactory builds a chat model for a resolved API key.
type ModelFactory func(ctx context.Context, s Settings, apiKey string) (model.BaseChatModel, error)

// Credentialed resolves the API key on every call, so a key saved in
// settings takes effect on the next round without a restart.
type Credentialed struct {
	settings Settings
	resolver *credential.Resolver
	factory  ModelFactory

	mu     sync.Mutex
	models map[string]*ModelGenerator
}

// NewCredentialed creates a key-resolving generator source. A nil factory
// uses NewChatModel.
func NewCredentialed(s Settings, resolver *credential.Resolver, factory ModelFactory) *Credentialed {
	if factory == nil {
		factory = NewChatModel
	}
	return &Credentialed{
		settings: s,
		resolver: resolver,
		factory:  factory,
		models:   make(map[string]*ModelGenerator),
	}
}

// Settings returns the backend settings.
func (c *Credentialed) Settings() Settings {
	return c.settings
}

// ForScope returns a Generator that uses the key stored for scope.
func (c *Credentialed) ForScope(scope string) Generator {
	return GeneratorFunc(func(ctx context.Context, messages []types.Message) ([]types.File, error) {
		key, _, err := c.resolver.Resolve(ctx, scope)
		if err != nil {
			return nil, wrap(err)
		}
		g, err := c.generator(ctx, key)
		if err != nil {
			return nil, wrap(err)
		}
		return g.Generate(ctx, messages)
	})
}

func (c *Credentialed) generator(ctx context.Context, key string) (*ModelGenerator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.models[key]; ok {
		return g, nil
	}
	m, err := c.factory(ctx, c.settings, key)
	if err != nil {
		return nil, err
	}
	g := NewModelGenerator(m)
	c.models[key] = g
	return g, nil
}
