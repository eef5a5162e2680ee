// Package anthropic implements the LLM Client (spec component B) over the
// Anthropic Messages API, with ephemeral prompt caching on the system block
// and structured output via a single forced tool call.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
	"fdbsearch/internal/llm"
	"fdbsearch/internal/logging"
	"fdbsearch/internal/telemetry"
)

const defaultMaxTokens int64 = 1024

// Client is the Anthropic-backed llm.Client.
type Client struct {
	sdk      anthropicsdk.Client
	model    string
	cacheCfg config.AnthropicPromptCacheConfig
	timeout  time.Duration
}

// New builds an Anthropic LLM Client. httpClient may be nil to use a
// default, otelhttp-instrumented client.
func New(cfg config.AnthropicConfig, httpClient *http.Client) *Client {
	httpClient = telemetry.NewHTTPClient(httpClient)
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(anthropicsdk.ModelClaude3_7SonnetLatest)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		sdk:      anthropicsdk.NewClient(opts...),
		model:    model,
		cacheCfg: cfg.PromptCache,
		timeout:  timeout,
	}
}

var _ llm.Client = (*Client)(nil)

// Chat implements llm.Client. On a non-conforming tool call it retries once
// with a stricter system directive, then returns invalid_llm_response.
func (c *Client) Chat(ctx context.Context, systemPrompt, userMessage string, schema llm.ToolSchema) (json.RawMessage, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cctx, span := telemetry.StartSpan(cctx, "llm.Chat")
	defer span.End()

	var args json.RawMessage
	err := domain.Retry(cctx, domain.DefaultRetryPolicy, func(attempt int) error {
		var callErr error
		args, callErr = c.call(cctx, systemPrompt, userMessage, schema)
		return callErr
	})
	if err == nil {
		return args, nil
	}
	if domain.KindOf(err) != domain.KindInvalidLLMResponse {
		return nil, telemetry.RecordError(span, err)
	}

	strict := systemPrompt + "\n\nYou MUST call " + schema.Name + " with valid arguments conforming exactly to its schema."
	args, err = c.call(cctx, strict, userMessage, schema)
	if err != nil {
		return nil, telemetry.RecordError(span, domain.InvalidLLM("llm response did not conform to schema after retry"))
	}
	return args, nil
}

func (c *Client) call(ctx context.Context, systemPrompt, userMessage string, schema llm.ToolSchema) (json.RawMessage, error) {
	tool := adaptTool(schema, c.cacheCfg)
	system := adaptSystem(systemPrompt, c.cacheCfg)

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		System:    system,
		Messages:  []anthropicsdk.MessageParam{anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(userMessage))},
		Tools:     []anthropicsdk.ToolUnionParam{tool},
		ToolChoice: anthropicsdk.ToolChoiceUnionParam{
			OfTool: &anthropicsdk.ToolChoiceToolParam{Name: schema.Name},
		},
		MaxTokens: defaultMaxTokens,
	}

	log := logging.FromContext(ctx)
	if reqBody, err := json.Marshal(params); err == nil {
		log.Debug().RawJSON("request", telemetry.RedactJSON(reqBody)).Msg("anthropic_chat_request")
	}

	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Dur("duration", dur).Msg("anthropic_chat_error")
		return nil, domain.Transient("anthropic chat request failed", err)
	}

	if respBody, err := json.Marshal(resp); err == nil {
		log.Debug().RawJSON("response", telemetry.RedactJSON(respBody)).Msg("anthropic_chat_response")
	}

	log.Debug().
		Str("model", c.model).
		Dur("duration", dur).
		Int64("input_tokens", resp.Usage.InputTokens).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Msg("anthropic_chat_ok")

	for _, block := range resp.Content {
		if tu, ok := block.AsAny().(anthropicsdk.ToolUseBlock); ok && tu.Name == schema.Name {
			args := tu.Input
			if len(args) == 0 {
				return nil, domain.InvalidLLM("tool call returned empty arguments")
			}
			return json.RawMessage(args), nil
		}
	}
	return nil, domain.InvalidLLM(fmt.Sprintf("response did not include a call to %s", schema.Name))
}

func adaptSystem(systemPrompt string, cacheCfg config.AnthropicPromptCacheConfig) []anthropicsdk.TextBlockParam {
	if !cacheCfg.Enabled || !cacheCfg.CacheSystem {
		return []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}
	return []anthropicsdk.TextBlockParam{{
		Text:         systemPrompt,
		CacheControl: anthropicsdk.CacheControlEphemeralParam{TTL: anthropicsdk.CacheControlEphemeralTTLTTL5m},
	}}
}

func adaptTool(schema llm.ToolSchema, cacheCfg config.AnthropicPromptCacheConfig) anthropicsdk.ToolUnionParam {
	inputSchema := anthropicsdk.ToolInputSchemaParam{
		Type: constant.ValueOf[constant.Object](),
	}
	extras := map[string]any{}
	for k, v := range schema.Parameters {
		extras[k] = v
	}
	if props, ok := extras["properties"]; ok {
		inputSchema.Properties = props
		delete(extras, "properties")
	}
	if req, ok := extras["required"]; ok {
		delete(extras, "required")
		if rs, ok := req.([]string); ok {
			inputSchema.Required = rs
		}
	}
	delete(extras, "type")
	if len(extras) > 0 {
		inputSchema.ExtraFields = extras
	}

	param := anthropicsdk.ToolParam{
		Name:        schema.Name,
		InputSchema: inputSchema,
	}
	if strings.TrimSpace(schema.Description) != "" {
		param.Description = anthropicsdk.String(schema.Description)
	}
	if cacheCfg.Enabled && cacheCfg.CacheTools {
		param.CacheControl = anthropicsdk.CacheControlEphemeralParam{TTL: anthropicsdk.CacheControlEphemeralTTLTTL5m}
	}
	return anthropicsdk.ToolUnionParam{OfTool: &param}
}
