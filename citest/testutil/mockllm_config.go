package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// MockLLMConfig defines the YAML configuration schema for MockLLM scenarios.
type MockLLMConfig struct {
	Settings  MockSettings   `yaml:"settings"`
	Defaults  MockDefaults   `yaml:"defaults"`
	Responses []ResponseRule `yaml:"responses"`
}

// MockSettings configures MockLLM server behavior.
type MockSettings struct {
	LagMS        int `yaml:"lag_ms"`         // Artificial delay in milliseconds
	ChunkDelayMS int `yaml:"chunk_delay_ms"` // Delay between streaming chunks
	ChunkSize    int `yaml:"chunk_size"`     // Characters per streaming chunk
}

// MockDefaults defines fallback behavior.
type MockDefaults struct {
	Fallback Reply `yaml:"fallback"` // Reply when no rules match
}

// ResponseRule maps a request to a reply.
type ResponseRule struct {
	Name     string      `yaml:"name"`     // Optional rule name for debugging
	Match    MatchConfig `yaml:"match"`    // How to match the latest request
	Reply    Reply       `yaml:"reply"`    // What to answer
	Priority int         `yaml:"priority"` // Higher priority rules are checked first
}

// Reply is what the mock answers. Files are encoded as the {"files": [...]}
// object the generator expects; Raw is sent verbatim; Status answers with an
// HTTP error instead of a completion.
type Reply struct {
	Files  []MockFile `yaml:"files,omitempty"`
	Raw    string     `yaml:"raw,omitempty"`
	Fenced bool       `yaml:"fenced,omitempty"` // Wrap the JSON in a ```json fence
	Status int        `yaml:"status,omitempty"`
}

// MockFile is one generated file.
type MockFile struct {
	Filename string `yaml:"filename" json:"filename"`
	Content  string `yaml:"content" json:"content"`
}

// Content renders the completion text for the reply.
func (r Reply) Content() string {
	if r.Raw != "" || len(r.Files) == 0 {
		return r.Raw
	}
	data, _ := json.Marshal(map[string][]MockFile{"files": r.Files})
	if r.Fenced {
		return "```json\n" + string(data) + "\n```"
	}
	return string(data)
}

// MatchConfig defines how to match a request.
type MatchConfig struct {
	// Simple string matching (case-insensitive contains)
	Contains string `yaml:"contains"`

	// All strings must be present (case-insensitive)
	ContainsAll []string `yaml:"contains_all"`

	// Any string must be present (case-insensitive)
	ContainsAny []string `yaml:"contains_any"`

	// Exact match (case-insensitive)
	Exact string `yaml:"exact"`

	// Regex pattern
	Regex string `yaml:"regex"`
}

// DefaultMockLLMConfig returns the default configuration with common scenarios.
func DefaultMockLLMConfig() *MockLLMConfig {
	return &MockLLMConfig{
		Settings: MockSettings{
			ChunkDelayMS: 5,
			ChunkSize:    64,
		},
		Defaults: MockDefaults{
			Fallback: Reply{Files: HelloExtension("Hello Extension")},
		},
		Responses: []ResponseRule{
			{
				Name:  "word-counter",
				Match: MatchConfig{ContainsAll: []string{"count", "words"}},
				Reply: Reply{Files: []MockFile{
					{Filename: "manifest.json", Content: `{"manifest_version":3,"name":"Word Counter","version":"1.0","action":{"default_popup":"popup.html"},"permissions":["activeTab","scripting"]}`},
					{Filename: "popup.html", Content: `<!DOCTYPE html><html><head><link rel="stylesheet" href="style.css"></head><body><p id="count">0</p><script src="popup.js"></script></body></html>`},
					{Filename: "popup.js", Content: `document.getElementById("count").textContent = "42 words";`},
					{Filename: "style.css", Content: `body { width: 200px; }`},
				}},
				Priority: 10,
			},
			{
				Name:     "fenced",
				Match:    MatchConfig{Contains: "fenced"},
				Reply:    Reply{Files: HelloExtension("Fenced Extension"), Fenced: true},
				Priority: 10,
			},
			{
				Name:     "garbage",
				Match:    MatchConfig{Contains: "reply with prose"},
				Reply:    Reply{Raw: "Sure! Here is how you would build that extension..."},
				Priority: 20,
			},
			{
				Name:     "rejected",
				Match:    MatchConfig{Contains: "upstream rejects"},
				Reply:    Reply{Status: 401},
				Priority: 20,
			},
			{
				Name:     "dark-mode",
				Match:    MatchConfig{Regex: `(?i)dark\s+mode`},
				Reply:    Reply{Files: append(HelloExtension("Hello Extension"), MockFile{Filename: "style.css", Content: "body { background: #111; color: #eee; }"})},
				Priority: 5,
			},
		},
	}
}

// HelloExtension returns a minimal three-file extension named name.
func HelloExtension(name string) []MockFile {
	return []MockFile{
		{Filename: "manifest.json", Content: `{"manifest_version":3,"name":"` + name + `","version":"1.0","action":{"default_popup":"popup.html"},"permissions":["storage"]}`},
		{Filename: "popup.html", Content: `<!DOCTYPE html><html><body><h1>Hello</h1><script src="popup.js"></script></body></html>`},
		{Filename: "popup.js", Content: `console.log("hello");`},
	}
}

// LoadMockLLMConfig loads configuration from a YAML file.
func LoadMockLLMConfig(path string) (*MockLLMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config MockLLMConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadMockLLMConfigFromDir looks for mockllm.yaml in the given directory.
func LoadMockLLMConfigFromDir(dir string) (*MockLLMConfig, error) {
	path := filepath.Join(dir, "mockllm.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join(dir, "mockllm.yml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, err
		}
	}
	return LoadMockLLMConfig(path)
}

// SaveMockLLMConfig saves configuration to a YAML file.
func SaveMockLLMConfig(config *MockLLMConfig, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Matches checks if the request matches this rule.
func (m *MatchConfig) Matches(request string) bool {
	lower := strings.ToLower(request)

	if m.Exact != "" {
		return strings.EqualFold(strings.TrimSpace(request), m.Exact)
	}

	if m.Contains != "" {
		return strings.Contains(lower, strings.ToLower(m.Contains))
	}

	if len(m.ContainsAll) > 0 {
		for _, s := range m.ContainsAll {
			if !strings.Contains(lower, strings.ToLower(s)) {
				return false
			}
		}
		return true
	}

	if len(m.ContainsAny) > 0 {
		for _, s := range m.ContainsAny {
			if strings.Contains(lower, strings.ToLower(s)) {
				return true
			}
		}
		return false
	}

	if m.Regex != "" {
		re, err := regexp.Compile(m.Regex)
		if err != nil {
			return false
		}
		return re.MatchString(request)
	}

	return false
}

// FindMatchingResponse returns the highest-priority reply matching request,
// or the fallback.
func (c *MockLLMConfig) FindMatchingResponse(request string) (Reply, bool) {
	var bestMatch *ResponseRule
	bestPriority := -1

	for i := range c.Responses {
		rule := &c.Responses[i]
		if rule.Match.Matches(request) && rule.Priority > bestPriority {
			bestMatch = rule
			bestPriority = rule.Priority
		}
	}

	if bestMatch != nil {
		return bestMatch.Reply, true
	}
	return c.Defaults.Fallback, false
}
