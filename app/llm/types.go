package llm

import "context"

const (
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

// RecipeData is the structured object every backend must return.
type RecipeData struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	IsRecipe     bool     `json:"isRecipe"`
}

// Client performs one structured recipe extraction call.
type Client interface {
	ExtractRecipe(ctx context.Context, prompt string) (RecipeData, error)
	Provider() string
}

const recipeToolName = "record_recipe"

var recipeProperties = map[string]any{
	"title": map[string]any{
		"type":        "string",
		"description": "Recipe title",
	},
	"ingredients": map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Ingredients with quantities when available",
	},
	"instructions": map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Sequential cooking steps",
	},
	"isRecipe": map[string]any{
		"type":        "boolean",
		"description": "Whether the content contains a recipe",
	},
}

var recipeRequired = []string{"title", "ingredients", "instructions", "isRecipe"}

const jsonSystemPrompt = `You extract recipes from social media posts.
Respond with a single JSON object and nothing else, using exactly these keys:
{"title": string, "ingredients": [string], "instructions": [string], "isRecipe": boolean}`
