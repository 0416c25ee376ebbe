package provider

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/extforge/extforge/internal/logging"
	"github.com/extforge/extforge/pkg/types"
)

// Generator produces a complete file set from a conversation.
type Generator interface {
	Generate(ctx context.Context, messages []types.Message) ([]types.File, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, messages []types.Message) ([]types.File, error)

func (f GeneratorFunc) Generate(ctx context.Context, messages []types.Message) ([]types.File, error) {
	return f(ctx, messages)
}

// SystemInstruction tells the model what to build and how to answer.
const SystemInstruction = `You are an expert in building Google Chrome extensions.
Your job is to produce the code for a Chrome extension from the user's description.

- Always produce a complete, working extension.
- Make the extension look polished and work well. Keep the UI clean, modern and intuitive.
- Put styling in a separate style.css file linked from popup.html unless it is trivial. Do not use inline styles.
- When changing an existing extension, keep its current features and UI unless asked otherwise.
- Always include manifest.json, popup.html and popup.js. Add content scripts, background scripts or other files when needed.
- Do not put explanatory comments in the code.
- Never omit a file. Provide the full content of every file.
- You receive the conversation so far. Produce every file of the extension as it should be after the latest message.

Answer with a single JSON object with one key, "files": an array of objects, each with a "filename" string and a "content" string holding the full file content.`

// Transcript flattens a conversation into "role: content" blocks separated
// by blank lines.
func Transcript(messages []types.Message) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = string(m.Role) + ": " + m.Content
	}
	return strings.Join(parts, "\n\n")
}

// ModelGenerator generates files with an eino chat model.
type ModelGenerator struct {
	model  model.BaseChatModel
	system string
	opts   []model.Option
}

// NewModelGenerator wraps m. Options are passed to every call.
func NewModelGenerator(m model.BaseChatModel, opts ...model.Option) *ModelGenerator {
	return &ModelGenerator{model: m, system: SystemInstruction, opts: opts}
}

// Generate sends the conversation and parses the reply.
func (g *ModelGenerator) Generate(ctx context.Context, messages []types.Message) ([]types.File, error) {
	input := []*schema.Message{
		schema.SystemMessage(g.system),
		schema.UserMessage(Transcript(messages)),
	}

	resp, err := g.model.Generate(ctx, input, g.opts...)
	if err != nil {
		logging.Error().Err(err).Msg("chat model call failed")
		return nil, wrap(err)
	}

	var text string
	if resp != nil {
		text = resp.Content
	}
	files, err := ParseFiles(text)
	if err != nil {
		logging.Warn().Err(err).Int("responseLen", len(text)).Msg("unusable model response")
		return nil, wrap(err)
	}
	logging.Debug().Int("files", len(files)).Msg("model returned files")
	return files, nil
}
