package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/extforge/extforge/internal/event"
	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/internal/logging"
	"github.com/extforge/extforge/internal/manifest"
	"github.com/extforge/extforge/internal/preview"
	"github.com/extforge/extforge/internal/provider"
	"github.com/extforge/extforge/pkg/types"
)

var (
	ErrBusy          = errors.New("a generation round is already in progress")
	ErrEmptyInput    = errors.New("message is empty")
	ErrNothingToSave = errors.New("there are no files to save")
)

// Fixed assistant messages.
const (
	Greeting           = "Hello! I'm here to help you build a Chrome extension. What would you like to create? You can describe it, or start with a template."
	FilesUpdated       = "Here are the updated files for your extension."
	DefaultDescription = "An AI-generated Chrome extension."
)

func failureMessage(err error) string {
	return "I encountered an error: " + err.Error()
}

func templateLoaded(title string) string {
	return fmt.Sprintf("I've loaded the \"%s\" template for you. You can see the files and a live preview. What would you like to change?", title)
}

// Round is the outcome of a successful generation round.
type Round struct {
	Files   []types.File     `json:"files"`
	Changes []fileset.Change `json:"changes"`
}

// Status is published whenever the busy flag or the error changes.
type Status struct {
	Busy  bool   `json:"busy"`
	Error string `json:"error,omitempty"`
}

// Selection is published when the selected file changes.
type Selection struct {
	Selected string `json:"selected"`
}

// View is a consistent copy of the workspace state.
type View struct {
	Messages    []types.Message `json:"messages"`
	Files       []types.File    `json:"files"`
	Selected    string          `json:"selected"`
	Busy        bool            `json:"busy"`
	Error       string          `json:"error,omitempty"`
	Permissions []any           `json:"permissions"`
	Preview     string          `json:"-"`
}

// Workspace is safe for concurrent use.
type Workspace struct {
	scope string
	gen   provider.Generator
	bus   *event.Bus
	log   zerolog.Logger

	busy atomic.Bool

	mu          sync.Mutex
	messages    []types.Message
	files       *fileset.Set
	selection   fileset.Selection
	preview     string
	permissions []any
	lastErr     string
}

// New creates a workspace holding only the greeting. bus may be nil.
func New(scope string, gen provider.Generator, bus *event.Bus) *Workspace {
	w := &Workspace{
		scope: scope,
		gen:   gen,
		bus:   bus,
		log:   logging.Component("workspace").With().Str("scope", scope).Logger(),
		files: fileset.New(),
	}
	w.reset()
	return w
}

// Scope returns the identity scope the workspace belongs to.
func (w *Workspace) Scope() string {
	return w.scope
}

// Busy reports whether a round is in flight.
func (w *Workspace) Busy() bool {
	return w.busy.Load()
}

// reset restores the greeting-only state. Caller holds mu or owns w.
func (w *Workspace) reset() {
	w.messages = []types.Message{{Role: types.RoleAssistant, Content: Greeting}}
	w.files.Replace(nil)
	w.lastErr = ""
	w.recompute()
}

// recompute refreshes the derived views. Caller holds mu.
func (w *Workspace) recompute() {
	w.preview = preview.Compose(w.files)
	w.permissions = manifest.ExtractPermissions(w.files)
	w.selection.Resolve(w.files)
}

// Send runs one generation round with input as the new user message.
func (w *Workspace) Send(ctx context.Context, input string) (*Round, error) {
	return w.round(ctx, input, false)
}

// StartNew discards the current conversation and files, then sends input.
func (w *Workspace) StartNew(ctx context.Context, input string) (*Round, error) {
	return w.round(ctx, input, true)
}

func (w *Workspace) round(ctx context.Context, input string, fresh bool) (*Round, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	if !w.busy.CompareAndSwap(false, true) {
		w.log.Debug().Msg("round rejected, workspace busy")
		return nil, ErrBusy
	}

	w.mu.Lock()
	if fresh {
		w.reset()
	}
	w.messages = append(w.messages, types.Message{Role: types.RoleUser, Content: input})
	w.lastErr = ""
	history := w.conversation()
	var freshFiles []types.File
	if fresh {
		freshFiles = w.files.Files()
	}
	w.mu.Unlock()

	if fresh {
		w.publish(event.WorkspaceFiles, freshFiles)
		w.publishSelection()
	}
	w.publish(event.WorkspaceMessage, history)
	w.publish(event.WorkspaceStatus, Status{Busy: true})

	w.log.Info().Int("messages", len(history)).Msg("generation round started")
	files, err := w.gen.Generate(ctx, history)
	if err == nil && !named(files) {
		err = &provider.GenerationError{Err: provider.ErrNoFiles}
	}

	w.mu.Lock()
	if err != nil {
		w.messages = append(w.messages, types.Message{Role: types.RoleAssistant, Content: failureMessage(err)})
		w.lastErr = err.Error()
		messages := w.conversation()
		w.busy.Store(false)
		w.mu.Unlock()

		w.log.Warn().Err(err).Msg("generation round failed")
		w.publish(event.WorkspaceMessage, messages)
		w.publish(event.WorkspaceStatus, Status{Error: err.Error()})
		return nil, err
	}

	before := fileset.New(w.files.Files()...)
	w.files.Replace(files)
	w.recompute()
	w.messages = append(w.messages, types.Message{Role: types.RoleAssistant, Content: FilesUpdated})
	messages := w.conversation()
	result := &Round{
		Files:   w.files.Files(),
		Changes: fileset.Diff(before, w.files),
	}
	w.busy.Store(false)
	w.mu.Unlock()

	w.log.Info().Int("files", len(result.Files)).Int("changes", len(result.Changes)).Msg("generation round finished")
	w.publish(event.WorkspaceFiles, result.Files)
	w.publishSelection()
	w.publish(event.WorkspaceMessage, messages)
	w.publish(event.WorkspaceStatus, Status{})
	return result, nil
}

// Reset returns the workspace to the greeting with no files.
func (w *Workspace) Reset() error {
	return w.replace(func() {
		w.reset()
	})
}

// LoadTemplate replaces the conversation and files with t's.
func (w *Workspace) LoadTemplate(t types.Template) error {
	return w.replace(func() {
		w.messages = []types.Message{
			{Role: types.RoleAssistant, Content: Greeting},
			{Role: types.RoleUser, Content: t.InitialPrompt},
			{Role: types.RoleAssistant, Content: templateLoaded(t.Title)},
		}
		w.files.Replace(t.Files)
		w.lastErr = ""
		w.recompute()
	})
}

// Restore replaces the conversation and files with the snapshot's.
func (w *Workspace) Restore(snap types.Snapshot) error {
	return w.replace(func() {
		w.messages = append([]types.Message(nil), snap.Messages...)
		if len(w.messages) == 0 {
			w.messages = []types.Message{{Role: types.RoleAssistant, Content: Greeting}}
		}
		w.files.Replace(snap.Files)
		w.lastErr = ""
		w.recompute()
	})
}

// replace applies a whole-state change. It is refused while a round is in
// flight so the round's result cannot land on top of it.
func (w *Workspace) replace(apply func()) error {
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}

	w.mu.Lock()
	apply()
	files := w.files.Files()
	messages := w.conversation()
	w.busy.Store(false)
	w.mu.Unlock()

	w.publish(event.WorkspaceFiles, files)
	w.publishSelection()
	w.publish(event.WorkspaceMessage, messages)
	w.publish(event.WorkspaceStatus, Status{})
	return nil
}

// Snapshot captures the current conversation and files. An empty name
// defaults to the manifest name.
func (w *Workspace) Snapshot(name string) (types.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files.Empty() {
		return types.Snapshot{}, ErrNothingToSave
	}
	if strings.TrimSpace(name) == "" {
		name = manifest.Name(w.files)
	}

	description := DefaultDescription
	for _, m := range w.messages {
		if m.Role == types.RoleUser {
			description = m.Content
			break
		}
	}

	return types.Snapshot{
		Name:        name,
		Description: description,
		Files:       w.files.Files(),
		Messages:    w.conversation(),
	}, nil
}

// Select makes filename the selected file. It reports false when the file
// is not in the set.
func (w *Workspace) Select(filename string) bool {
	w.mu.Lock()
	ok := w.selection.Select(w.files, filename)
	w.mu.Unlock()

	if ok {
		w.publishSelection()
	}
	return ok
}

// Selected returns the selected filename, or "" when there are no files.
func (w *Workspace) Selected() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selection.Name()
}

// Preview returns the composed preview document.
func (w *Workspace) Preview() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.preview
}

// Files returns a copy of the current file set.
func (w *Workspace) Files() *fileset.Set {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fileset.New(w.files.Files()...)
}

// View returns a copy of the full state.
func (w *Workspace) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	return View{
		Messages:    w.conversation(),
		Files:       w.files.Files(),
		Selected:    w.selection.Name(),
		Busy:        w.busy.Load(),
		Error:       w.lastErr,
		Permissions: append([]any{}, w.permissions...),
		Preview:     w.preview,
	}
}

// conversation copies the messages. Caller holds mu.
func (w *Workspace) conversation() []types.Message {
	return append([]types.Message(nil), w.messages...)
}

// named reports whether any file would survive Replace.
func named(files []types.File) bool {
	for _, f := range files {
		if f.Filename != "" {
			return true
		}
	}
	return false
}

func (w *Workspace) publishSelection() {
	w.publish(event.WorkspaceSelection, Selection{Selected: w.Selected()})
}

// publish delivers in order. Subscribers must not block.
func (w *Workspace) publish(t event.EventType, data any) {
	if w.bus == nil {
		return
	}
	w.bus.PublishSync(event.Event{Type: t, Scope: w.scope, Data: data})
}
