package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/extforge/extforge/internal/logging"
)

// EventType represents the type of event.
type EventType string

const (
	WorkspaceFiles     EventType = "workspace.files"
	WorkspaceMessage   EventType = "workspace.message"
	WorkspaceStatus    EventType = "workspace.status"
	WorkspaceSelection EventType = "workspace.selection"
	ProjectSaved       EventType = "project.saved"
	ProjectDeleted     EventType = "project.deleted"
	SettingsUpdated    EventType = "settings.updated"
)

const topic = "extforge.events"

// Event is a single notification. Scope names the identity it belongs to.
// Data is whatever the publisher passed; subscribers receive it as
// json.RawMessage.
type Event struct {
	Type  EventType `json:"type"`
	Scope string    `json:"scope,omitempty"`
	Data  any       `json:"data,omitempty"`
}

// Subscriber is a function that receives events.
type Subscriber func(event Event)

// Bus routes events through a watermill gochannel.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.Mutex
	subs   map[uint64]context.CancelFunc
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            64,
				BlockPublishUntilSubscriberAck: true,
			},
			watermill.NopLogger{},
		),
		subs: make(map[uint64]context.CancelFunc),
	}
}

// Subscribe registers fn for events of the given types, or for every event
// when no types are given. The returned function unsubscribes.
func (b *Bus) Subscribe(fn Subscriber, types ...EventType) func() {
	want := make(map[EventType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	return b.subscribe(func(ev Event) bool {
		return len(want) == 0 || want[ev.Type]
	}, fn)
}

// SubscribeScope registers fn for every event of one scope.
func (b *Bus) SubscribeScope(scope string, fn Subscriber) func() {
	return b.subscribe(func(ev Event) bool {
		return ev.Scope == scope
	}, fn)
}

func (b *Bus) subscribe(filter func(Event) bool, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		logging.Error().Err(err).Msg("event subscribe failed")
		return func() {}
	}

	id := atomic.AddUint64(&b.nextID, 1)
	b.subs[id] = cancel
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()
		for msg := range messages {
			var ev struct {
				Type  EventType       `json:"type"`
				Scope string          `json:"scope"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(msg.Payload, &ev); err == nil {
				decoded := Event{Type: ev.Type, Scope: ev.Scope}
				if ev.Data != nil {
					decoded.Data = ev.Data
				}
				if ctx.Err() == nil && filter(decoded) {
					fn(decoded)
				}
			}
			msg.Ack()
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if cancel, ok := b.subs[id]; ok {
			delete(b.subs, id)
			cancel()
		}
	}
}

// Publish hands the event to the bus without waiting for subscribers.
func (b *Bus) Publish(event Event) {
	go b.PublishSync(event)
}

// PublishSync delivers the event and returns once every subscriber has
// handled it.
func (b *Bus) PublishSync(event Event) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Str("type", string(event.Type)).Msg("event encode failed")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		logging.Debug().Err(err).Str("type", string(event.Type)).Msg("event publish failed")
	}
}

// Close unsubscribes everyone and shuts the bus down.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for id, cancel := range b.subs {
		cancel()
		delete(b.subs, id)
	}
	b.mu.Unlock()

	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
