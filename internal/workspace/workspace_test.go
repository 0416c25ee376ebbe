package workspace_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/extforge/extforge/internal/event"
	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/internal/provider"
	"github.com/extforge/extforge/internal/workspace"
	"github.com/extforge/extforge/pkg/types"
)

// scripted returns a fixed result and records every call.
type scripted struct {
	files []types.File
	err   error
	calls atomic.Int32
	seen  [][]types.Message
	mu    sync.Mutex
}

func (s *scripted) Generate(_ context.Context, messages []types.Message) ([]types.File, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, messages)
	s.mu.Unlock()
	return s.files, s.err
}

// gated blocks until release is closed.
type gated struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGated() *gated {
	return &gated{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gated) Generate(ctx context.Context, _ []types.Message) ([]types.File, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
		return []types.File{{Filename: "popup.html", Content: "<p>done</p>"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var popupFiles = []types.File{
	{Filename: "manifest.json", Content: `{"name":"Clock","permissions":["storage","alarms"]}`},
	{Filename: "popup.html", Content: `<html><body><script src="popup.js"></script></body></html>`},
	{Filename: "popup.js", Content: `console.log("tick")`},
}

var _ = Describe("Workspace", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("a fresh workspace", func() {
		It("holds only the greeting and no files", func() {
			w := workspace.New("local", &scripted{}, nil)
			v := w.View()
			Expect(v.Messages).To(Equal([]types.Message{{Role: types.RoleAssistant, Content: workspace.Greeting}}))
			Expect(v.Files).To(BeEmpty())
			Expect(v.Selected).To(BeEmpty())
			Expect(v.Busy).To(BeFalse())
			Expect(v.Permissions).To(BeEmpty())
			Expect(w.Preview()).To(ContainSubstring("Preview Not Available"))
		})
	})

	Describe("Send", func() {
		It("replaces the files and appends the acknowledgement on success", func() {
			gen := &scripted{files: popupFiles}
			w := workspace.New("local", gen, nil)

			round, err := w.Send(ctx, "make a clock")
			Expect(err).NotTo(HaveOccurred())
			Expect(round.Files).To(Equal(popupFiles))
			Expect(round.Changes).To(HaveLen(3))
			Expect(round.Changes[0].Kind).To(Equal(fileset.Added))

			v := w.View()
			Expect(v.Messages).To(HaveLen(3))
			Expect(v.Messages[1]).To(Equal(types.Message{Role: types.RoleUser, Content: "make a clock"}))
			Expect(v.Messages[2]).To(Equal(types.Message{Role: types.RoleAssistant, Content: workspace.FilesUpdated}))
			Expect(v.Selected).To(Equal("manifest.json"))
			Expect(v.Permissions).To(Equal([]any{"storage", "alarms"}))
			Expect(w.Preview()).To(ContainSubstring(`<script>console.log("tick")</script>`))
		})

		It("sends the whole conversation to the generator", func() {
			gen := &scripted{files: popupFiles}
			w := workspace.New("local", gen, nil)

			_, err := w.Send(ctx, "first")
			Expect(err).NotTo(HaveOccurred())
			_, err = w.Send(ctx, "second")
			Expect(err).NotTo(HaveOccurred())

			Expect(gen.seen).To(HaveLen(2))
			Expect(gen.seen[1]).To(HaveLen(4))
			Expect(gen.seen[1][0].Content).To(Equal(workspace.Greeting))
			Expect(gen.seen[1][3].Content).To(Equal("second"))
		})

		It("keeps the files and appends exactly one error message on failure", func() {
			gen := &scripted{files: popupFiles}
			w := workspace.New("local", gen, nil)
			_, err := w.Send(ctx, "make a clock")
			Expect(err).NotTo(HaveOccurred())
			before := w.View()

			gen.err = &provider.GenerationError{Err: provider.ErrNoFiles}
			_, err = w.Send(ctx, "now make it blue")
			Expect(err).To(MatchError(provider.ErrNoFiles))

			after := w.View()
			Expect(after.Files).To(Equal(before.Files))
			Expect(after.Messages).To(HaveLen(len(before.Messages) + 2))
			Expect(after.Messages[len(after.Messages)-1]).To(Equal(types.Message{
				Role:    types.RoleAssistant,
				Content: "I encountered an error: Failed to generate code. " + provider.ErrNoFiles.Error(),
			}))
			Expect(after.Error).To(ContainSubstring("did not return any files"))
			Expect(after.Busy).To(BeFalse())
		})

		It("treats a reply with only unnamed files as a failure", func() {
			gen := &scripted{files: popupFiles}
			w := workspace.New("local", gen, nil)
			_, err := w.Send(ctx, "make a clock")
			Expect(err).NotTo(HaveOccurred())
			before := w.View()

			gen.files = []types.File{{Filename: "", Content: "x"}}
			_, err = w.Send(ctx, "now make it blue")
			Expect(err).To(MatchError(provider.ErrNoFiles))

			after := w.View()
			Expect(after.Files).To(Equal(before.Files))
			Expect(after.Preview).To(Equal(before.Preview))
			Expect(after.Messages[len(after.Messages)-1].Content).To(HavePrefix("I encountered an error: "))
			Expect(after.Busy).To(BeFalse())
		})

		It("clears the error on the next round", func() {
			gen := &scripted{err: errors.New("boom")}
			w := workspace.New("local", gen, nil)
			_, err := w.Send(ctx, "x")
			Expect(err).To(HaveOccurred())
			Expect(w.View().Error).To(Equal("boom"))

			gen.err = nil
			gen.files = popupFiles
			_, err = w.Send(ctx, "y")
			Expect(err).NotTo(HaveOccurred())
			Expect(w.View().Error).To(BeEmpty())
		})

		It("rejects blank input without touching the conversation", func() {
			gen := &scripted{}
			w := workspace.New("local", gen, nil)
			_, err := w.Send(ctx, "   ")
			Expect(err).To(MatchError(workspace.ErrEmptyInput))
			Expect(w.View().Messages).To(HaveLen(1))
			Expect(gen.calls.Load()).To(BeZero())
		})

		It("rejects a second round while one is in flight", func() {
			gen := newGated()
			w := workspace.New("local", gen, nil)

			done := make(chan error, 1)
			go func() {
				_, err := w.Send(ctx, "first")
				done <- err
			}()
			Eventually(gen.started).Should(Receive())
			Expect(w.Busy()).To(BeTrue())

			_, err := w.Send(ctx, "second")
			Expect(err).To(MatchError(workspace.ErrBusy))
			Expect(w.Reset()).To(MatchError(workspace.ErrBusy))
			Expect(gen.calls.Load()).To(Equal(int32(1)))

			close(gen.release)
			Eventually(done).Should(Receive(BeNil()))
			Expect(w.Busy()).To(BeFalse())

			v := w.View()
			Expect(v.Messages).To(HaveLen(3))
			Expect(v.Messages[1].Content).To(Equal("first"))
		})

		It("reports a cancelled context as a failure", func() {
			gen := newGated()
			w := workspace.New("local", gen, nil)
			cctx, cancel := context.WithCancel(ctx)

			done := make(chan error, 1)
			go func() {
				_, err := w.Send(cctx, "first")
				done <- err
			}()
			Eventually(gen.started).Should(Receive())
			cancel()

			var err error
			Eventually(done).Should(Receive(&err))
			Expect(err).To(MatchError(context.Canceled))
			Expect(w.Busy()).To(BeFalse())
		})
	})

	Describe("StartNew", func() {
		It("drops the previous conversation before sending", func() {
			gen := &scripted{files: popupFiles}
			w := workspace.New("local", gen, nil)
			_, err := w.Send(ctx, "old")
			Expect(err).NotTo(HaveOccurred())

			_, err = w.StartNew(ctx, "new idea")
			Expect(err).NotTo(HaveOccurred())
			Expect(gen.seen[1]).To(Equal([]types.Message{
				{Role: types.RoleAssistant, Content: workspace.Greeting},
				{Role: types.RoleUser, Content: "new idea"},
			}))
		})
	})

	Describe("LoadTemplate", func() {
		It("installs the template conversation and files", func() {
			w := workspace.New("local", &scripted{}, nil)
			err := w.LoadTemplate(types.Template{
				ID:            "clock",
				Title:         "Clock",
				InitialPrompt: "Build a clock.",
				Files:         popupFiles,
			})
			Expect(err).NotTo(HaveOccurred())

			v := w.View()
			Expect(v.Messages).To(HaveLen(3))
			Expect(v.Messages[1]).To(Equal(types.Message{Role: types.RoleUser, Content: "Build a clock."}))
			Expect(v.Messages[2].Content).To(Equal(`I've loaded the "Clock" template for you. You can see the files and a live preview. What would you like to change?`))
			Expect(v.Files).To(Equal(popupFiles))
			Expect(v.Selected).To(Equal("manifest.json"))
		})

		It("writes the title as given", func() {
			w := workspace.New("local", &scripted{}, nil)
			Expect(w.LoadTemplate(types.Template{ID: "q", Title: `Say "Hi" \ Bye`, Files: popupFiles})).To(Succeed())

			v := w.View()
			Expect(v.Messages[len(v.Messages)-1].Content).To(HavePrefix(`I've loaded the "Say "Hi" \ Bye" template for you.`))
		})
	})

	Describe("Snapshot and Restore", func() {
		It("refuses to snapshot an empty workspace", func() {
			w := workspace.New("local", &scripted{}, nil)
			_, err := w.Snapshot("")
			Expect(err).To(MatchError(workspace.ErrNothingToSave))
		})

		It("defaults the name to the manifest and the description to the first prompt", func() {
			w := workspace.New("local", &scripted{files: popupFiles}, nil)
			_, err := w.Send(ctx, "make a clock")
			Expect(err).NotTo(HaveOccurred())

			snap, err := w.Snapshot("")
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Name).To(Equal("Clock"))
			Expect(snap.Description).To(Equal("make a clock"))
			Expect(snap.Files).To(Equal(popupFiles))
			Expect(snap.Messages).To(HaveLen(3))
		})

		It("uses the default description without a user message", func() {
			w := workspace.New("local", &scripted{}, nil)
			Expect(w.Restore(types.Snapshot{Files: popupFiles})).To(Succeed())

			snap, err := w.Snapshot("Mine")
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Name).To(Equal("Mine"))
			Expect(snap.Description).To(Equal(workspace.DefaultDescription))
		})

		It("restores conversation and files together", func() {
			w := workspace.New("local", &scripted{}, nil)
			msgs := []types.Message{
				{Role: types.RoleAssistant, Content: workspace.Greeting},
				{Role: types.RoleUser, Content: "a clock"},
				{Role: types.RoleAssistant, Content: workspace.FilesUpdated},
			}
			Expect(w.Restore(types.Snapshot{Files: popupFiles[1:], Messages: msgs})).To(Succeed())

			v := w.View()
			Expect(v.Messages).To(Equal(msgs))
			Expect(v.Files).To(Equal(popupFiles[1:]))
			Expect(v.Selected).To(Equal("popup.html"))
			Expect(v.Permissions).To(BeEmpty())
		})
	})

	Describe("Select", func() {
		It("only selects files in the set and survives replacement when present", func() {
			gen := &scripted{files: popupFiles}
			w := workspace.New("local", gen, nil)
			_, err := w.Send(ctx, "x")
			Expect(err).NotTo(HaveOccurred())

			Expect(w.Select("nope.js")).To(BeFalse())
			Expect(w.Select("popup.js")).To(BeTrue())
			Expect(w.Selected()).To(Equal("popup.js"))

			_, err = w.Send(ctx, "y")
			Expect(err).NotTo(HaveOccurred())
			Expect(w.Selected()).To(Equal("popup.js"))

			gen.files = popupFiles[:2]
			_, err = w.Send(ctx, "z")
			Expect(err).NotTo(HaveOccurred())
			Expect(w.Selected()).To(Equal("manifest.json"))

			Expect(w.Reset()).To(Succeed())
			Expect(w.Selected()).To(BeEmpty())
		})
	})

	Describe("events", func() {
		It("publishes scoped events in order", func() {
			bus := event.NewBus()
			defer bus.Close()

			var mu sync.Mutex
			var got []event.EventType
			unsub := bus.SubscribeScope("alice", func(ev event.Event) {
				mu.Lock()
				got = append(got, ev.Type)
				mu.Unlock()
			})
			defer unsub()

			w := workspace.New("alice", &scripted{files: popupFiles}, bus)
			_, err := w.Send(ctx, "x")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() []event.EventType {
				mu.Lock()
				defer mu.Unlock()
				return append([]event.EventType(nil), got...)
			}, time.Second).Should(Equal([]event.EventType{
				event.WorkspaceMessage,
				event.WorkspaceStatus,
				event.WorkspaceFiles,
				event.WorkspaceSelection,
				event.WorkspaceMessage,
				event.WorkspaceStatus,
			}))
		})

		It("carries the status payload", func() {
			bus := event.NewBus()
			defer bus.Close()

			statuses := make(chan workspace.Status, 4)
			unsub := bus.Subscribe(func(ev event.Event) {
				var s workspace.Status
				_ = json.Unmarshal(ev.Data.(json.RawMessage), &s)
				statuses <- s
			}, event.WorkspaceStatus)
			defer unsub()

			w := workspace.New("bob", &scripted{err: errors.New("nope")}, bus)
			_, _ = w.Send(ctx, "x")

			Eventually(statuses).Should(Receive(Equal(workspace.Status{Busy: true})))
			Eventually(statuses).Should(Receive(Equal(workspace.Status{Error: "nope"})))
		})
	})
})

var _ = Describe("Manager", func() {
	It("keeps one workspace per scope", func() {
		var scopes []string
		m := workspace.NewManager(func(scope string) provider.Generator {
			scopes = append(scopes, scope)
			return &scripted{}
		}, nil)

		a := m.Get("a")
		Expect(m.Get("a")).To(BeIdenticalTo(a))
		Expect(m.Get("b")).NotTo(BeIdenticalTo(a))
		Expect(m.Len()).To(Equal(2))
		Expect(scopes).To(Equal([]string{"a", "b"}))
	})
})
