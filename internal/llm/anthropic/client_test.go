package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fdbsearch/internal/config"
	"fdbsearch/internal/llm"
)

func TestAdaptSystem_CachingDisabledByDefault(t *testing.T) {
	blocks := adaptSystem("be precise", config.AnthropicPromptCacheConfig{})
	assert.Len(t, blocks, 1)
	assert.Equal(t, "be precise", blocks[0].Text)
}

func TestAdaptSystem_CachingEnabledSetsCacheControl(t *testing.T) {
	blocks := adaptSystem("be precise", config.AnthropicPromptCacheConfig{Enabled: true, CacheSystem: true})
	assert.Len(t, blocks, 1)
	assert.NotZero(t, blocks[0].CacheControl)
}

func TestAdaptTool_PropertiesAndRequired(t *testing.T) {
	schema := llm.ToolSchema{
		Name: "extract_query",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"drug_terms": map[string]any{"type": "array"},
			},
			"required": []string{"drug_terms"},
		},
	}
	tool := adaptTool(schema, config.AnthropicPromptCacheConfig{})
	assert.NotNil(t, tool.OfTool)
	assert.Equal(t, "extract_query", tool.OfTool.Name)
	assert.Equal(t, []string{"drug_terms"}, tool.OfTool.InputSchema.Required)
}

func TestAdaptTool_CacheControlWhenToolsCachingEnabled(t *testing.T) {
	schema := llm.ToolSchema{Name: "extract_query", Parameters: map[string]any{}}
	tool := adaptTool(schema, config.AnthropicPromptCacheConfig{Enabled: true, CacheTools: true})
	assert.NotZero(t, tool.OfTool.CacheControl)
}
