package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/extforge/extforge/internal/event"
	"github.com/extforge/extforge/internal/logging"
)

// WireEvent is the SSE payload: {"type": "...", "properties": {...}}.
type WireEvent struct {
	Type       event.EventType `json:"type"`
	Properties any             `json:"properties"`
}

const (
	// SSEHeartbeatInterval is how often an idle stream gets a comment frame.
	SSEHeartbeatInterval = 30 * time.Second

	// EventConnected is sent once when a stream opens.
	EventConnected event.EventType = "server.connected"

	// sseBuffer bounds the events queued for one client.
	sseBuffer = 32
)

// eventStream writes frames to one client. Every frame is named "message";
// the payload's type field carries the event type.
type eventStream struct {
	w  io.Writer
	rc *http.ResponseController
}

func (s eventStream) send(evt WireEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: message\ndata: %s\n\n", data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s eventStream) heartbeat() error {
	if _, err := io.WriteString(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

// events handles GET /event, streaming the caller's scope until the client
// goes away.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	stream := eventStream{w: w, rc: http.NewResponseController(w)}
	if err := stream.rc.Flush(); err != nil {
		logging.Warn().Err(err).Msg("event stream cannot flush")
		return
	}
	scope := scopeOf(r)
	queue := make(chan event.Event, sseBuffer)

	// Publishers wait on subscribers, so a full queue drops the event.
	unsub := s.bus.SubscribeScope(scope, func(e event.Event) {
		select {
		case queue <- e:
		default:
			logging.Warn().Str("eventType", string(e.Type)).Str("scope", scope).Msg("SSE event dropped: client too slow")
		}
	})
	defer unsub()

	if err := stream.send(WireEvent{Type: EventConnected, Properties: map[string]any{}}); err != nil {
		return
	}
	logging.Debug().Str("scope", scope).Msg("event stream opened")

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			logging.Debug().Str("scope", scope).Msg("event stream closed")
			return
		case e := <-queue:
			err = stream.send(WireEvent{Type: e.Type, Properties: e.Data})
		case <-ticker.C:
			err = stream.heartbeat()
		}
		if err != nil {
			return
		}
	}
}
