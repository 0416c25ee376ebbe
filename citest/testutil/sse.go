package testutil

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// WireEvent is one decoded stream event: {"type": ..., "properties": ...}.
type WireEvent struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// Decode unmarshals the event properties into v.
func (e *WireEvent) Decode(v any) error {
	return json.Unmarshal(e.Properties, v)
}

// SSEClient follows GET /event for one identity and records what arrives.
type SSEClient struct {
	BaseURL    string
	HTTPClient *http.Client
	// Identity is sent with the stream request when set.
	Identity string

	mu         sync.Mutex
	received   []WireEvent
	heartbeats int
	notify     chan struct{}
	done       chan struct{}
	err        error
	cancel     context.CancelFunc
}

// NewSSEClient creates a stream client for the server at baseURL.
func NewSSEClient(baseURL string) *SSEClient {
	return &SSEClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Connect opens the stream at path and starts reading it in the background.
func (c *SSEClient) Connect(ctx context.Context, path string) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		cancel()
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.Identity != "" {
		req.Header.Set("X-Extforge-Identity", c.Identity)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("unexpected content type: %s", ct)
	}

	go func() {
		defer resp.Body.Close()
		c.read(bufio.NewScanner(resp.Body))
	}()
	return nil
}

// read consumes frames until the body ends. Only data lines are decoded;
// the "event:" name is always "message".
func (c *SSEClient) read(sc *bufio.Scanner) {
	defer close(c.done)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var data strings.Builder
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				var evt WireEvent
				if err := json.Unmarshal([]byte(data.String()), &evt); err == nil {
					c.record(func() { c.received = append(c.received, evt) })
				}
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			c.record(func() { c.heartbeats++ })
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	c.mu.Lock()
	c.err = sc.Err()
	c.mu.Unlock()
}

func (c *SSEClient) record(apply func()) {
	c.mu.Lock()
	apply()
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// WaitFor returns the first received event of type eventType, waiting up
// to timeout for it to arrive.
func (c *SSEClient) WaitFor(eventType string, timeout time.Duration) (*WireEvent, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if evt, ok := c.find(eventType); ok {
			return evt, nil
		}
		select {
		case <-c.notify:
		case <-c.done:
			if evt, ok := c.find(eventType); ok {
				return evt, nil
			}
			c.mu.Lock()
			err := c.err
			c.mu.Unlock()
			return nil, fmt.Errorf("stream closed before %s (err: %v)", eventType, err)
		case <-deadline.C:
			return nil, fmt.Errorf("timeout waiting for event: %s", eventType)
		}
	}
}

func (c *SSEClient) find(eventType string) (*WireEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.received {
		if c.received[i].Type == eventType {
			evt := c.received[i]
			return &evt, true
		}
	}
	return nil, false
}

// Types returns the event types received so far, in order.
func (c *SSEClient) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.received))
	for i, evt := range c.received {
		out[i] = evt.Type
	}
	return out
}

// Events returns a copy of the events received so far.
func (c *SSEClient) Events() []WireEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]WireEvent(nil), c.received...)
}

// Heartbeats counts the comment frames received.
func (c *SSEClient) Heartbeats() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heartbeats
}

// Close ends the stream.
func (c *SSEClient) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}
