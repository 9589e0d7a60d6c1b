package answer

import "context"

// Completer generates text from a system prompt and user message.
// cacheHint identifies the stable prompt prefix for providers that
// support prompt caching.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage, cacheHint string) (string, error)
}

// PromptCache stores rendered prompt artifacts scoped to the caller's
// group set.
type PromptCache interface {
	Get(template string, groups []string) (string, bool)
	Put(template string, groups []string, value string)
}
