package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/extforge/extforge/pkg/types"
)

// TestClient provides HTTP client utilities for testing
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
	// Identity is sent with every request when set.
	Identity string
}

// NewTestClient creates a new test HTTP client
func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// RequestOption configures HTTP requests
type RequestOption func(*http.Request)

// WithHeader adds a header to the request
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithIdentity acts as the given user.
func WithIdentity(id string) RequestOption {
	return WithHeader("X-Extforge-Identity", id)
}

// WithQuery adds query parameters
func WithQuery(params map[string]string) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Response wraps HTTP response with helpers
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals response body into v
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// String returns response body as string
func (r *Response) String() string {
	return string(r.Body)
}

// IsSuccess returns true if status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs HTTP GET request
func (c *TestClient) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs HTTP POST request with JSON body
func (c *TestClient) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts...)
}

// Patch performs HTTP PATCH request with JSON body
func (c *TestClient) Patch(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPatch, path, body, opts...)
}

// Put performs HTTP PUT request with JSON body
func (c *TestClient) Put(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body, opts...)
}

// Delete performs HTTP DELETE request
func (c *TestClient) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts...)
}

// do performs the actual HTTP request
func (c *TestClient) do(ctx context.Context, method, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	fullURL := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Identity != "" {
		req.Header.Set("X-Extforge-Identity", c.Identity)
	}

	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// As returns a client for the same server acting as identity.
func (c *TestClient) As(identity string) *TestClient {
	return &TestClient{BaseURL: c.BaseURL, HTTPClient: c.HTTPClient, Identity: identity}
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// call performs a JSON request and decodes a 2xx body into v.
func (c *TestClient) call(ctx context.Context, method, path string, body, v any) error {
	resp, err := c.do(ctx, method, path, body)
	return decode(resp, err, v)
}

// decode unmarshals a 2xx body into v, or returns an *APIError.
func decode(resp *Response, err error, v any) error {
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		var envelope struct {
			Error APIError `json:"error"`
		}
		_ = resp.JSON(&envelope)
		envelope.Error.StatusCode = resp.StatusCode
		return &envelope.Error
	}
	if v == nil {
		return nil
	}
	return resp.JSON(v)
}

// ---- Workspace Helpers ----

// Change is one entry of a round's per-file diff.
type Change struct {
	Filename  string `json:"filename"`
	Kind      string `json:"kind"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Workspace is the workspace view.
type Workspace struct {
	Messages    []types.Message `json:"messages"`
	Files       []types.File    `json:"files"`
	Selected    string          `json:"selected"`
	Busy        bool            `json:"busy"`
	Error       string          `json:"error"`
	Permissions []any           `json:"permissions"`
}

// Filenames lists the workspace's filenames in order.
func (w *Workspace) Filenames() []string {
	names := make([]string, len(w.Files))
	for i, f := range w.Files {
		names[i] = f.Filename
	}
	return names
}

// RoundResult is the response of POST /workspace/message.
type RoundResult struct {
	Round struct {
		Files   []types.File `json:"files"`
		Changes []Change     `json:"changes"`
	} `json:"round"`
	Workspace Workspace `json:"workspace"`
}

// GetWorkspace fetches the caller's workspace.
func (c *TestClient) GetWorkspace(ctx context.Context) (*Workspace, error) {
	var ws Workspace
	if err := c.call(ctx, http.MethodGet, "/workspace", nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// SendMessage runs a generation round. fresh starts a new conversation.
func (c *TestClient) SendMessage(ctx context.Context, content string, fresh bool) (*RoundResult, error) {
	var result RoundResult
	err := c.call(ctx, http.MethodPost, "/workspace/message", map[string]any{"content": content, "new": fresh}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ResetWorkspace clears the conversation and files.
func (c *TestClient) ResetWorkspace(ctx context.Context) (*Workspace, error) {
	var ws Workspace
	if err := c.call(ctx, http.MethodPost, "/workspace/reset", nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// GetPreview returns the composed preview document.
func (c *TestClient) GetPreview(ctx context.Context) (string, error) {
	resp, err := c.Get(ctx, "/workspace/preview")
	if err := decode(resp, err, nil); err != nil {
		return "", err
	}
	return resp.String(), nil
}

// GetFile returns one workspace file's content.
func (c *TestClient) GetFile(ctx context.Context, filename string) (string, error) {
	resp, err := c.Get(ctx, "/workspace/files/"+filename)
	if err := decode(resp, err, nil); err != nil {
		return "", err
	}
	return resp.String(), nil
}

// SelectFile makes filename the selected file.
func (c *TestClient) SelectFile(ctx context.Context, filename string) error {
	return c.call(ctx, http.MethodPut, "/workspace/selection", map[string]string{"filename": filename}, nil)
}

// Download fetches the workspace as a zip archive.
func (c *TestClient) Download(ctx context.Context) ([]byte, error) {
	resp, err := c.Get(ctx, "/workspace/download")
	if err := decode(resp, err, nil); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ---- Template Helpers ----

// ListTemplates lists the template catalog.
func (c *TestClient) ListTemplates(ctx context.Context) ([]types.Template, error) {
	var templates []types.Template
	if err := c.call(ctx, http.MethodGet, "/templates", nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// LoadTemplate replaces the workspace with a template.
func (c *TestClient) LoadTemplate(ctx context.Context, id string) (*Workspace, error) {
	var ws Workspace
	if err := c.call(ctx, http.MethodPost, "/templates/"+id+"/load", nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// ---- Project Helpers ----

// SaveProject snapshots the workspace. An empty name uses the manifest name.
func (c *TestClient) SaveProject(ctx context.Context, name string) (*types.SnapshotInfo, error) {
	var snap types.SnapshotInfo
	if err := c.call(ctx, http.MethodPost, "/projects", map[string]string{"name": name}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListProjects lists the caller's saved projects.
func (c *TestClient) ListProjects(ctx context.Context) ([]types.SnapshotInfo, error) {
	var infos []types.SnapshotInfo
	if err := c.call(ctx, http.MethodGet, "/projects", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetProject fetches a saved project with its files and conversation.
func (c *TestClient) GetProject(ctx context.Context, id string) (*types.Snapshot, error) {
	var snap types.Snapshot
	if err := c.call(ctx, http.MethodGet, "/projects/"+id, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RestoreProject loads a saved project into the workspace.
func (c *TestClient) RestoreProject(ctx context.Context, id string) (*Workspace, error) {
	var ws Workspace
	if err := c.call(ctx, http.MethodPost, "/projects/"+id+"/restore", nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// DeleteProject removes a saved project.
func (c *TestClient) DeleteProject(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/projects/"+id, nil, nil)
}

// ---- Settings Helpers ----

// CredentialStatus reports which API key the caller's rounds use.
type CredentialStatus struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source"`
	Masked     string `json:"masked"`
}

// GetCredential reports the caller's credential status.
func (c *TestClient) GetCredential(ctx context.Context) (*CredentialStatus, error) {
	var status CredentialStatus
	if err := c.call(ctx, http.MethodGet, "/settings/credential", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetCredential stores the caller's own API key.
func (c *TestClient) SetCredential(ctx context.Context, key string) error {
	return c.call(ctx, http.MethodPut, "/settings/credential", map[string]string{"apiKey": key}, nil)
}

// ClearCredential removes the caller's own API key.
func (c *TestClient) ClearCredential(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/settings/credential", nil, nil)
}
