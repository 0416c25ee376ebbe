// Package provider turns a conversation into a set of extension files by
// asking a hosted chat model.
//
// A Generator sends the whole conversation as a single transcript together
// with a fixed system instruction, and expects the model to answer with a
// JSON object of the form {"files":[{"filename":...,"content":...}]}.
// Chat models are built with eino-ext for the gemini (OpenAI-compatible
// endpoint), openai, anthropic and ark backends.
//
// Every failure is reported as a *GenerationError whose message reads
// "Failed to generate code. <detail>". No request is retried.
package provider
