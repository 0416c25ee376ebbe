package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extforge/extforge/internal/fileset"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "popup.html"), "<p>one</p>")

	sets := make(chan *fileset.Set, 8)
	w, err := New(dir, 20*time.Millisecond, func(set *fileset.Set, err error) {
		if err == nil {
			sets <- set
		}
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "popup.html"), "<p>two</p>")

	select {
	case set := <-sets:
		f, ok := set.Find("popup.html")
		require.True(t, ok)
		assert.Equal(t, "<p>two</p>", f.Content)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcher_Debounces(t *testing.T) {
	dir := t.TempDir()

	sets := make(chan *fileset.Set, 8)
	w, err := New(dir, 150*time.Millisecond, func(set *fileset.Set, err error) {
		sets <- set
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	for _, name := range []string{"a.js", "b.js", "c.js"} {
		writeFile(t, filepath.Join(dir, name), name)
	}

	select {
	case set := <-sets:
		assert.Equal(t, 3, set.Len())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for reload")
	}

	select {
	case <-sets:
		t.Fatal("burst of writes should reload once")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()

	sets := make(chan *fileset.Set, 16)
	w, err := New(dir, 20*time.Millisecond, func(set *fileset.Set, err error) {
		if err == nil {
			sets <- set
		}
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.Mkdir(filepath.Join(dir, "scripts"), 0755))
	// Let the create event register the new directory before writing into it.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "scripts", "content.js"), "x")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case set := <-sets:
			if _, ok := set.Find("scripts/content.js"); ok {
				return
			}
		case <-deadline:
			t.Fatal("nested file never seen")
		}
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), 0, func(*fileset.Set, error) {})
	require.NoError(t, err)
	w.Start()
	assert.NoError(t, w.Stop())
	assert.NotPanics(t, func() { w.Stop() })
}

func TestNew_MissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), 0, func(*fileset.Set, error) {})
	assert.Error(t, err)
}
