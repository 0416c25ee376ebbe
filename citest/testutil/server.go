package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/extforge/extforge/internal/app"
	"github.com/extforge/extforge/internal/config"
	"github.com/extforge/extforge/internal/server"
	"github.com/extforge/extforge/pkg/types"
)

// MockAPIKey is the ambient key the test server hands the mock LLM.
const MockAPIKey = "sk-mock-ambient"

// TestServer wraps a server instance for testing
type TestServer struct {
	Server  *server.Server
	App     *app.App
	BaseURL string
	MockLLM *MockLLMServer
	TempDir string
	WorkDir string
	port    int
}

// TestServerOption configures TestServer
type TestServerOption func(*testServerConfig)

type testServerConfig struct {
	workDir    string
	envFile    string
	live       bool
	liveKind   string
	noAmbient  bool
	mockConfig *MockLLMConfig
}

// WithWorkDir sets the working directory
func WithWorkDir(dir string) TestServerOption {
	return func(c *testServerConfig) {
		c.workDir = dir
	}
}

// WithEnvFile sets the .env file to load in live mode
func WithEnvFile(path string) TestServerOption {
	return func(c *testServerConfig) {
		c.envFile = path
	}
}

// WithLiveProvider uses the environment keys instead of the mock LLM.
// A non-empty kind overrides the configured provider.
func WithLiveProvider(kind string) TestServerOption {
	return func(c *testServerConfig) {
		c.live = true
		c.liveKind = kind
	}
}

// WithoutAmbientKey starts the server with no installation API key, so
// every user must store their own.
func WithoutAmbientKey() TestServerOption {
	return func(c *testServerConfig) {
		c.noAmbient = true
	}
}

// WithMockLLMConfig drives the mock LLM with cfg.
func WithMockLLMConfig(cfg *MockLLMConfig) TestServerOption {
	return func(c *testServerConfig) {
		c.mockConfig = cfg
	}
}

// StartTestServer creates and starts a test server
func StartTestServer(opts ...TestServerOption) (*TestServer, error) {
	cfg := &testServerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	tempDir, err := os.MkdirTemp("", "extforge-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	workDir := cfg.workDir
	if workDir == "" {
		workDir = tempDir
	}

	var mock *MockLLMServer
	var appConfig *types.Config
	if cfg.live {
		if cfg.envFile != "" {
			_ = godotenv.Load(cfg.envFile)
		} else {
			_ = godotenv.Load("../../.env")
			_ = godotenv.Load("../.env")
			_ = godotenv.Load(".env")
		}
		if appConfig, err = config.Load(workDir); err != nil {
			os.RemoveAll(tempDir)
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.liveKind != "" {
			appConfig.Provider = cfg.liveKind
			appConfig.Model = ""
		}
	} else {
		mockConfig := cfg.mockConfig
		if mockConfig == nil {
			mockConfig = DefaultMockLLMConfig()
		}
		mock = NewMockLLMServerWithConfig(mockConfig)
		appConfig = buildMockConfig(mock.URL(), !cfg.noAmbient)
	}

	port, err := findAvailablePort()
	if err != nil {
		cleanup(mock, tempDir)
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	storagePath := filepath.Join(tempDir, "storage")
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		cleanup(mock, tempDir)
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	a, err := app.New(workDir, app.WithConfig(appConfig), app.WithStoragePath(storagePath))
	if err != nil {
		cleanup(mock, tempDir)
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = port
	srv := a.Server(serverConfig)

	go func() {
		_ = srv.Start()
	}()

	baseURL := fmt.Sprintf("http://localhost:%d", port)
	if err := waitForServer(baseURL, 10*time.Second); err != nil {
		srv.Shutdown(context.Background())
		a.Close()
		cleanup(mock, tempDir)
		return nil, fmt.Errorf("server failed to start: %w", err)
	}

	return &TestServer{
		Server:  srv,
		App:     a,
		BaseURL: baseURL,
		MockLLM: mock,
		TempDir: tempDir,
		WorkDir: workDir,
		port:    port,
	}, nil
}

func cleanup(mock *MockLLMServer, tempDir string) {
	if mock != nil {
		mock.Close()
	}
	os.RemoveAll(tempDir)
}

// Stop shuts down the test server and cleans up
func (ts *TestServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if ts.Server != nil {
		if err := ts.Server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if ts.App != nil {
		ts.App.Close()
	}
	cleanup(ts.MockLLM, ts.TempDir)
	return nil
}

// Client returns a new test client for this server
func (ts *TestServer) Client() *TestClient {
	return NewTestClient(ts.BaseURL)
}

// SSEClient returns a new SSE client for this server
func (ts *TestServer) SSEClient() *SSEClient {
	return NewSSEClient(ts.BaseURL)
}

// buildMockConfig points the OpenAI provider at the mock LLM.
func buildMockConfig(baseURL string, ambient bool) *types.Config {
	p := types.ProviderConfig{
		BaseURL: baseURL,
		Model:   "mock-gpt",
	}
	if ambient {
		p.APIKey = MockAPIKey
	}
	return &types.Config{
		Provider:        "openai",
		CredentialStore: "file",
		Providers:       map[string]types.ProviderConfig{"openai": p},
	}
}

// findAvailablePort finds an available TCP port
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer waits for the server to be ready
func waitForServer(baseURL string, timeout time.Duration) error {
	client := NewTestClient(baseURL)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(context.Background(), "/templates")
		if err == nil && resp.IsSuccess() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %v", timeout)
}
