package llm

import (
	"context"
	"encoding/json"
)

// Fake is an in-memory llm.Client for tests: it returns a fixed response or
// error regardless of input, grounded on the corpus's in-memory-fake pattern
// for external dependencies (vector store, catalog store, embedder).
type Fake struct {
	Response json.RawMessage
	Err      error
	Calls    int
}

func (f *Fake) Chat(ctx context.Context, systemPrompt, userMessage string, schema ToolSchema) (json.RawMessage, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Response, nil
}
