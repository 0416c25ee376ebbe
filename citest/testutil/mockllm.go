package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockLLMServer provides an HTTP server that mimics the OpenAI chat
// completions API, answering with extension file sets.
type MockLLMServer struct {
	server *httptest.Server
	config *MockLLMConfig

	mu       sync.Mutex
	requests []MockRequest
}

// MockRequest records incoming requests for verification.
type MockRequest struct {
	Timestamp     time.Time
	Path          string
	Authorization string
	Model         string
	System        string
	// Transcript is the full conversation the generator sent.
	Transcript string
	// Latest is the last user turn within the transcript.
	Latest string
}

// NewMockLLMServer creates a mock LLM server with the default scenarios.
func NewMockLLMServer() *MockLLMServer {
	return NewMockLLMServerWithConfig(DefaultMockLLMConfig())
}

// NewMockLLMServerWithConfig creates a mock LLM server driven by config.
func NewMockLLMServerWithConfig(config *MockLLMConfig) *MockLLMServer {
	m := &MockLLMServer{config: config}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", m.handleChatCompletions)
	mux.HandleFunc("/chat/completions", m.handleChatCompletions)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the mock server's URL.
func (m *MockLLMServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockLLMServer) Close() {
	m.server.Close()
}

// GetRequests returns all recorded requests.
func (m *MockLLMServer) GetRequests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil.
func (m *MockLLMServer) LastRequest() *MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	r := m.requests[len(m.requests)-1]
	return &r
}

// Reset forgets recorded requests.
func (m *MockLLMServer) Reset() {
	m.mu.Lock()
	m.requests = nil
	m.mu.Unlock()
}

type chatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (m *MockLLMServer) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	rec := MockRequest{
		Timestamp:     time.Now(),
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Model:         req.Model,
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			rec.System = msg.Content
		case "user":
			rec.Transcript = msg.Content
		}
	}
	if strings.TrimSpace(rec.Transcript) == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "a non-empty user message is required", "type": "invalid_request_error"},
		})
		return
	}
	rec.Latest = latestUserTurn(rec.Transcript)

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	m.mu.Unlock()

	if lag := m.config.Settings.LagMS; lag > 0 {
		select {
		case <-time.After(time.Duration(lag) * time.Millisecond):
		case <-r.Context().Done():
			return
		}
	}

	reply, _ := m.config.FindMatchingResponse(rec.Latest)
	if reply.Status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.Status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "mock upstream failure", "type": "server_error"},
		})
		return
	}

	if req.Stream {
		m.writeStreamingResponse(w, req.Model, reply.Content())
	} else {
		m.writeResponse(w, req.Model, reply.Content())
	}
}

// latestUserTurn extracts the last "user: " block of a transcript.
func latestUserTurn(transcript string) string {
	const marker = "user: "
	if i := strings.LastIndex(transcript, "\n\n"+marker); i >= 0 {
		transcript = transcript[i+2:]
	}
	turn := strings.TrimPrefix(transcript, marker)
	if i := strings.Index(turn, "\n\nassistant: "); i >= 0 {
		turn = turn[:i]
	}
	return turn
}

// writeResponse writes a non-streaming OpenAI response.
func (m *MockLLMServer) writeResponse(w http.ResponseWriter, model, content string) {
	response := map[string]any{
		"id":      "chatcmpl-mockllm-" + RandomString(8),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     100,
			"completion_tokens": 50,
			"total_tokens":      150,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// writeStreamingResponse writes a streaming OpenAI response.
func (m *MockLLMServer) writeStreamingResponse(w http.ResponseWriter, model, content string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := "chatcmpl-mockllm-" + RandomString(8)
	writeChunk := func(delta map[string]any, finish any) {
		chunk := map[string]any{
			"id":      id,
			"object":  "chat.completion.chunk",
			"created": time.Now().Unix(),
			"model":   model,
			"choices": []map[string]any{
				{"index": 0, "delta": delta, "finish_reason": finish},
			},
		}
		data, _ := json.Marshal(chunk)
		w.Write([]byte("data: " + string(data) + "\n\n"))
		flusher.Flush()
	}

	writeChunk(map[string]any{"role": "assistant"}, nil)
	for _, part := range splitChunks(content, m.config.Settings.ChunkSize) {
		writeChunk(map[string]any{"content": part}, nil)
		if d := m.config.Settings.ChunkDelayMS; d > 0 {
			time.Sleep(time.Duration(d) * time.Millisecond)
		}
	}
	writeChunk(map[string]any{}, "stop")

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

// splitChunks splits s into pieces of at most size runes. size <= 0 keeps
// s whole. An empty s yields no chunks.
func splitChunks(s string, size int) []string {
	if s == "" {
		return nil
	}
	if size <= 0 {
		return []string{s}
	}
	runes := []rune(s)
	var chunks []string
	for len(runes) > 0 {
		n := min(size, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
