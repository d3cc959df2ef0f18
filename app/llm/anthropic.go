package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-3-5-haiku-latest"

	anthropicMaxTokens = 2048
)

type AnthropicConfig struct {
	APIKey string
	Model  string
}

var _ Client = (*AnthropicClient)(nil)

// AnthropicClient forces a single tool call whose input schema is the recipe
// object, which makes the model return structured output.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

func NewAnthropicClient(cfg AnthropicConfig, opts ...option.RequestOption) *AnthropicClient {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (c *AnthropicClient) Provider() string {
	return ProviderAnthropic
}

func (c *AnthropicClient) ExtractRecipe(ctx context.Context, prompt string) (RecipeData, error) {
	var data RecipeData

	if strings.TrimSpace(prompt) == "" {
		return data, errors.New("llm extract: prompt required")
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        recipeToolName,
				Description: anthropic.String("Record the recipe found in the content, or isRecipe=false when there is none."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: recipeProperties,
					Required:   recipeRequired,
				},
			},
		}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: recipeToolName},
		},
	})
	if err != nil {
		return data, fmt.Errorf("llm extract: %w", err)
	}

	for _, block := range message.Content {
		if block.Type != "tool_use" || block.Name != recipeToolName {
			continue
		}
		if err := json.Unmarshal(block.Input, &data); err != nil {
			return data, fmt.Errorf("llm extract: parse tool input: %w", err)
		}
		return data, nil
	}

	return data, fmt.Errorf("llm extract: no %s tool call in response (stop_reason=%s)", recipeToolName, message.StopReason)
}
