package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func TestStorage_PutAndGet(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"projects", "scope", "p1"}, record{ID: "p1", Value: 42}))

	_, err := os.Stat(filepath.Join(dir, "projects", "scope", "p1.json"))
	require.NoError(t, err)

	var got record
	require.NoError(t, s.Get(ctx, []string{"projects", "scope", "p1"}, &got))
	assert.Equal(t, record{ID: "p1", Value: 42}, got)
}

func TestStorage_GetNotFound(t *testing.T) {
	s := New(t.TempDir())

	var got record
	err := s.Get(context.Background(), []string{"missing", "item"}, &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_InvalidKey(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	for _, key := range [][]string{nil, {""}, {"..", "x"}, {"a/b"}} {
		err := s.Put(ctx, key, record{})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %v", key)
	}
	assert.False(t, s.Exists(ctx, []string{".."}))
}

func TestStorage_Delete(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"items", "gone"}, record{ID: "gone"}))
	require.NoError(t, s.Delete(ctx, []string{"items", "gone"}))

	var got record
	assert.ErrorIs(t, s.Get(ctx, []string{"items", "gone"}, &got), ErrNotFound)

	// deleting again is a no-op
	assert.NoError(t, s.Delete(ctx, []string{"items", "gone"}))
}

func TestStorage_ListSorted(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Put(ctx, []string{"items", id}, record{ID: id}))
	}
	require.NoError(t, s.Put(ctx, []string{"items", "nested", "x"}, record{ID: "x"}))

	items, err := s.List(ctx, []string{"items"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "nested"}, items)

	empty, err := s.List(ctx, []string{"nothing"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStorage_Scan(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, []string{"items", id}, record{ID: id, Value: i}))
	}

	var seen []record
	err := s.Scan(ctx, []string{"items"}, func(key string, data json.RawMessage) error {
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		assert.Equal(t, key, r.ID)
		seen = append(seen, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []record{{"a", 0}, {"b", 1}, {"c", 2}}, seen)

	stop := errors.New("stop")
	calls := 0
	err = s.Scan(ctx, []string{"items"}, func(string, json.RawMessage) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestStorage_CanceledContext(t *testing.T) {
	s := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Put(ctx, []string{"items", "a"}, record{}), context.Canceled)
	assert.ErrorIs(t, s.Get(ctx, []string{"items", "a"}, &record{}), context.Canceled)
}

func TestStorage_ConcurrentPut(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, []string{"items", "shared"}, record{ID: "shared", Value: v}))
		}(i)
	}
	wg.Wait()

	var got record
	require.NoError(t, s.Get(ctx, []string{"items", "shared"}, &got))
	assert.Equal(t, "shared", got.ID)

	_, err := os.Stat(filepath.Join(dir, "items", "shared.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileLock_WaitsAndHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value.json")
	lock := NewFileLock(path)
	require.NoError(t, lock.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewFileLock(path).Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a second lock on the file waits for flock")

	err = lock.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "the same lock is not reentrant")

	lock.Unlock()
	require.NoError(t, lock.Lock(context.Background()))
	lock.Unlock()
	lock.Unlock()

	_, statErr := os.Stat(path + ".lock")
	assert.NoError(t, statErr)
}
