// Package llm defines the provider-agnostic contract for the LLM Client
// (spec component B): a single structured-output chat call with a cacheable
// system prompt.
package llm

import (
	"context"
	"encoding/json"
)

// ToolSchema is a JSON Schema object (properties/required/type) the
// response MUST conform to. It is carried to the provider as a forced tool
// call so the model's output is parseable without free-form extraction.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Client is the Provider interface every LLM backend implements.
type Client interface {
	// Chat sends systemPrompt (cacheable) and userMessage, forcing the model
	// to respond via a single call to schema, and returns the call's raw
	// JSON arguments.
	Chat(ctx context.Context, systemPrompt, userMessage string, schema ToolSchema) (json.RawMessage, error)
}
