package provider

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/extforge/extforge/internal/logging"
	"github.com/extforge/extforge/pkg/types"
)

var (
	ErrEmptyResponse = errors.New("Received an empty response from the AI. Please try again.")
	ErrNoFiles       = errors.New("The AI did not return any files. Please try rephrasing your request.")
	ErrInvalidFormat = errors.New("Invalid JSON format from AI. Expected an object with a 'files' array.")
)

// GenerationError is returned for every failed generation.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "Failed to generate code. " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func wrap(err error) error {
	var gen *GenerationError
	if errors.As(err, &gen) {
		return err
	}
	return &GenerationError{Err: err}
}

// ParseFiles extracts the files from a model reply. The reply may be wrapped
// in a Markdown code fence. Entries whose filename or content is not a string,
// or whose filename is empty, are dropped.
func ParseFiles(text string) ([]types.File, error) {
	text = stripFence(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var reply map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		logging.Debug().Err(err).Msg("model reply is not a JSON object")
		return nil, ErrInvalidFormat
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(reply["files"], &entries); err != nil || entries == nil {
		return nil, ErrInvalidFormat
	}

	files := make([]types.File, 0, len(entries))
	for _, raw := range entries {
		var entry map[string]any
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		name, ok1 := entry["filename"].(string)
		content, ok2 := entry["content"].(string)
		if !ok1 || !ok2 || name == "" {
			continue
		}
		files = append(files, types.File{Filename: name, Content: content})
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return files, nil
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	nl := strings.IndexByte(text, '\n')
	if nl < 0 {
		return ""
	}
	text = text[nl+1:]
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
