package event

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSyncDelivers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var got []Event
	var mu sync.Mutex
	unsub := bus.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	}, WorkspaceFiles)
	defer unsub()

	bus.PublishSync(Event{Type: WorkspaceFiles, Scope: "local", Data: map[string]int{"count": 2}})
	bus.PublishSync(Event{Type: WorkspaceMessage, Scope: "local"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1, "filtered to the subscribed type")
	assert.Equal(t, WorkspaceFiles, got[0].Type)
	assert.Equal(t, "local", got[0].Scope)
	assert.JSONEq(t, `{"count":2}`, string(got[0].Data.(json.RawMessage)))
}

func TestBus_SubscribeAllAndOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var types []EventType
	unsub := bus.Subscribe(func(e Event) {
		types = append(types, e.Type)
	})
	defer unsub()

	bus.PublishSync(Event{Type: WorkspaceMessage})
	bus.PublishSync(Event{Type: WorkspaceFiles})
	bus.PublishSync(Event{Type: WorkspaceStatus})

	assert.Equal(t, []EventType{WorkspaceMessage, WorkspaceFiles, WorkspaceStatus}, types)
}

func TestBus_SubscribeScope(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	unsub := bus.SubscribeScope("alice", func(e Event) {
		atomic.AddInt32(&count, 1)
	})
	defer unsub()

	bus.PublishSync(Event{Type: ProjectSaved, Scope: "alice"})
	bus.PublishSync(Event{Type: ProjectSaved, Scope: "bob"})

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	unsub := bus.Subscribe(func(Event) { atomic.AddInt32(&count, 1) })

	bus.PublishSync(Event{Type: WorkspaceFiles})
	unsub()
	unsub()
	bus.PublishSync(Event{Type: WorkspaceFiles})

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestBus_PublishAsync(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	done := make(chan Event, 1)
	unsub := bus.Subscribe(func(e Event) { done <- e }, SettingsUpdated)
	defer unsub()

	bus.Publish(Event{Type: SettingsUpdated})

	select {
	case e := <-done:
		assert.Equal(t, SettingsUpdated, e.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_Closed(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	called := false
	bus.Subscribe(func(Event) { called = true })
	bus.PublishSync(Event{Type: WorkspaceFiles})
	assert.False(t, called)
}
