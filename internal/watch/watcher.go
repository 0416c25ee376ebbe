// Package watch reloads an extension directory whenever its files change.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/internal/logging"
)

// DefaultDebounce is how long the directory must be quiet before a reload.
const DefaultDebounce = 200 * time.Millisecond

// OnChange receives the reloaded set, or the error that prevented loading it.
type OnChange func(set *fileset.Set, err error)

// Watcher watches a directory tree and reloads it as a file set.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	onChange OnChange

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a watcher for dir. debounce <= 0 uses DefaultDebounce.
func New(dir string, debounce time.Duration, onChange OnChange) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		dir:      dir,
		debounce: debounce,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}

	logging.Component("watch").Debug().Str("dir", dir).Msg("directory watcher initialized")
	return w, nil
}

// addTree watches root and every directory below it that is not skipped.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipped(d.Name()) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func skipped(name string) bool {
	return lo.Contains(fileset.ExcludeDirectory, name)
}

// Start begins watching.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Chmod == ev.Op {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.maybeAddDir(ev.Name)
				}
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Component("watch").Error().Err(err).Msg("directory watcher error")
		}
	}
}

// maybeAddDir starts watching a newly created directory.
func (w *Watcher) maybeAddDir(path string) {
	if skipped(filepath.Base(path)) {
		return
	}
	if err := w.addTree(path); err != nil {
		logging.Component("watch").Debug().Err(err).Str("path", path).Msg("not watching created path")
	}
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}

	set, err := fileset.LoadDir(w.dir)
	if err != nil {
		logging.Component("watch").Warn().Err(err).Str("dir", w.dir).Msg("reload failed")
	} else {
		logging.Component("watch").Info().Str("dir", w.dir).Int("files", set.Len()).Msg("directory changed")
	}
	w.onChange(set, err)
}

// Stop stops the watcher. Pending reloads are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}
