// Package project saves and restores snapshots of a workspace, scoped to
// the identity that saved them.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/extforge/extforge/internal/logging"
	"github.com/extforge/extforge/internal/storage"
	"github.com/extforge/extforge/pkg/types"
)

// ErrNotFound is returned for an id with no snapshot in the scope.
var ErrNotFound = errors.New("project not found")

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("project %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store keeps snapshots under projects/<scope>/<id>.
type Store struct {
	storage *storage.Storage
	policy  *bluemonday.Policy
	now     func() time.Time
}

// NewStore creates a project store on top of s.
func NewStore(s *storage.Storage) *Store {
	return &Store{
		storage: s,
		policy:  bluemonday.StrictPolicy(),
		now:     time.Now,
	}
}

func key(scope string, id ...string) []string {
	return append([]string{"projects", scope}, id...)
}

// Save stores snap for scope and returns what was stored. A missing id is
// assigned and a zero SavedAt is set to now. Name and description are
// reduced to plain text.
func (s *Store) Save(ctx context.Context, scope string, snap types.Snapshot) (types.Snapshot, error) {
	if snap.ID == "" {
		snap.ID = ulid.Make().String()
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = s.now().UTC()
	}
	snap.Name = s.plain(snap.Name)
	snap.Description = s.plain(snap.Description)
	if snap.Files == nil {
		snap.Files = []types.File{}
	}
	if snap.Messages == nil {
		snap.Messages = []types.Message{}
	}

	if err := s.storage.Put(ctx, key(scope, snap.ID), snap); err != nil {
		return types.Snapshot{}, &PersistenceError{Op: "save", Err: err}
	}
	logging.Debug().Str("scope", scope).Str("id", snap.ID).Int("files", len(snap.Files)).Msg("project saved")
	return snap, nil
}

func (s *Store) plain(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

// Get returns the snapshot id from scope.
func (s *Store) Get(ctx context.Context, scope, id string) (types.Snapshot, error) {
	var snap types.Snapshot
	err := s.storage.Get(ctx, key(scope, id), &snap)
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
		return types.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case err != nil:
		return types.Snapshot{}, &PersistenceError{Op: "load", Err: err}
	}
	return snap, nil
}

// List returns every snapshot in scope, oldest first. Records that cannot
// be decoded are skipped.
func (s *Store) List(ctx context.Context, scope string) ([]types.Snapshot, error) {
	snaps := []types.Snapshot{}
	err := s.storage.Scan(ctx, key(scope), func(id string, data json.RawMessage) error {
		var snap types.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			logging.Warn().Err(err).Str("id", id).Msg("skipping unreadable project")
			return nil
		}
		snaps = append(snaps, snap)
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].SavedAt.Equal(snaps[j].SavedAt) {
			return snaps[i].SavedAt.Before(snaps[j].SavedAt)
		}
		return snaps[i].ID < snaps[j].ID
	})
	return snaps, nil
}

// Delete removes the snapshot id from scope.
func (s *Store) Delete(ctx context.Context, scope, id string) error {
	if !s.storage.Exists(ctx, key(scope, id)) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.storage.Delete(ctx, key(scope, id)); err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	return nil
}
