// Package credential supplies the API key used for generation. A key the
// user entered in settings always wins over the ambient default from the
// environment or config.
package credential

import (
	"context"
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/extforge/extforge/internal/storage"
)

// ErrCredentialMissing means neither a user key nor an ambient default exists.
var ErrCredentialMissing = errors.New("no API key configured: add one in settings or set the provider's API key environment variable")

// Store persists the user-entered key for one identity scope.
type Store interface {
	Get(ctx context.Context, scope string) (string, error)
	Set(ctx context.Context, scope, key string) error
	Delete(ctx context.Context, scope string) error
}

// FileStore keeps keys in the key-value store under settings/<scope>/credential.
type FileStore struct {
	storage *storage.Storage
}

func NewFileStore(s *storage.Storage) *FileStore {
	return &FileStore{storage: s}
}

type record struct {
	APIKey string `json:"apiKey"`
}

func (f *FileStore) key(scope string) []string {
	return []string{"settings", scope, "credential"}
}

// Get returns "" when no key is stored.
func (f *FileStore) Get(ctx context.Context, scope string) (string, error) {
	var r record
	err := f.storage.Get(ctx, f.key(scope), &r)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return r.APIKey, err
}

func (f *FileStore) Set(ctx context.Context, scope, key string) error {
	return f.storage.Put(ctx, f.key(scope), record{APIKey: key})
}

func (f *FileStore) Delete(ctx context.Context, scope string) error {
	return f.storage.Delete(ctx, f.key(scope))
}

// KeyringService is the OS keyring service name keys are filed under.
const KeyringService = "extforge"

// KeyringStore keeps keys in the OS keyring, one entry per scope.
type KeyringStore struct {
	service string
}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: KeyringService}
}

func (k *KeyringStore) Get(_ context.Context, scope string) (string, error) {
	secret, err := keyring.Get(k.service, scope)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return secret, err
}

func (k *KeyringStore) Set(_ context.Context, scope, key string) error {
	return keyring.Set(k.service, scope, key)
}

func (k *KeyringStore) Delete(_ context.Context, scope string) error {
	err := keyring.Delete(k.service, scope)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// NewStore picks a store by config name: "keyring" or the default "file".
func NewStore(kind string, s *storage.Storage) Store {
	if kind == "keyring" {
		return NewKeyringStore()
	}
	return NewFileStore(s)
}

// Resolver combines a scope's stored key with an ambient default.
type Resolver struct {
	store   Store
	ambient func() string
}

// NewResolver creates a resolver. ambient may be nil.
func NewResolver(store Store, ambient func() string) *Resolver {
	if ambient == nil {
		ambient = func() string { return "" }
	}
	return &Resolver{store: store, ambient: ambient}
}

// Source says where a resolved key came from.
type Source string

const (
	SourceUser    Source = "user"
	SourceAmbient Source = "ambient"
	SourceNone    Source = "none"
)

// Resolve returns the key to use for scope. Whitespace-only values count
// as absent.
func (r *Resolver) Resolve(ctx context.Context, scope string) (string, Source, error) {
	user, err := r.store.Get(ctx, scope)
	if err != nil {
		return "", SourceNone, err
	}
	if key := strings.TrimSpace(user); key != "" {
		return key, SourceUser, nil
	}
	if key := strings.TrimSpace(r.ambient()); key != "" {
		return key, SourceAmbient, nil
	}
	return "", SourceNone, ErrCredentialMissing
}

// Store returns the underlying store.
func (r *Resolver) Store() Store {
	return r.store
}

// Mask renders a key for display, keeping only its last four characters.
func Mask(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}
	return strings.Repeat("•", 8) + key[len(key)-4:]
}
