package recipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lysyi3m/recipe-comb/app/llm"
	"github.com/lysyi3m/recipe-comb/app/scraper"
)

var (
	ErrNoContent  = errors.New("no content available for extraction")
	ErrNotRecipe  = errors.New("content does not contain a recipe")
	ErrIncomplete = errors.New("incomplete recipe data extracted")
)

// AIError wraps a failed model call.
type AIError struct {
	Err error
}

func (e *AIError) Error() string {
	return "AI extraction failed: " + e.Err.Error()
}

func (e *AIError) Unwrap() error {
	return e.Err
}

// Input is the text available for one post. Nil fields are skipped.
type Input struct {
	Title         *string
	TextContent   *string
	Hashtags      []string
	Transcription *string
	Platform      scraper.Platform
}

// Extraction is a validated recipe with its locally computed confidence.
type Extraction struct {
	Title         string
	Ingredients   []string
	Instructions  []string
	Confidence    float64
	AIProvider    string
	Transcription *string
}

type Extractor struct {
	client llm.Client
}

func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, in Input) (*Extraction, error) {
	text := CombineText(in)
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoContent
	}

	data, err := e.client.ExtractRecipe(ctx, BuildPrompt(in.Platform, text))
	if err != nil {
		return nil, &AIError{Err: err}
	}

	if !data.IsRecipe {
		return nil, ErrNotRecipe
	}

	title := strings.TrimSpace(data.Title)
	ingredients := compact(data.Ingredients)
	instructions := compact(data.Instructions)
	if title == "" || len(ingredients) == 0 || len(instructions) == 0 {
		return nil, ErrIncomplete
	}

	extraction := &Extraction{
		Title:         title,
		Ingredients:   ingredients,
		Instructions:  instructions,
		Confidence:    Confidence(title, ingredients, instructions),
		AIProvider:    e.client.Provider(),
		Transcription: in.Transcription,
	}

	slog.Debug("Recipe extracted", "title", title, "ingredients", len(ingredients),
		"instructions", len(instructions), "confidence", extraction.Confidence)

	return extraction, nil
}

// CombineText joins the non-empty caption, text, hashtag and transcript parts
// with blank lines. Text identical to the caption is included once.
func CombineText(in Input) string {
	var parts []string
	if in.Title != nil && *in.Title != "" {
		parts = append(parts, *in.Title)
	}
	if in.TextContent != nil && *in.TextContent != "" && (in.Title == nil || *in.TextContent != *in.Title) {
		parts = append(parts, *in.TextContent)
	}
	if tags := strings.Join(in.Hashtags, " "); tags != "" {
		parts = append(parts, tags)
	}
	if in.Transcription != nil && *in.Transcription != "" {
		parts = append(parts, *in.Transcription)
	}
	return strings.Join(parts, "\n\n")
}

// Confidence scores how substantive a recipe is: 0.2 for a title, up to 0.4 each
// for ingredients and instructions (full marks from three entries).
func Confidence(title string, ingredients, instructions []string) float64 {
	score := 0.0
	if title != "" {
		score += 0.2
	}
	score += listScore(len(ingredients))
	score += listScore(len(instructions))

	return math.Min(math.Round(score*10000)/10000, 1.0)
}

func listScore(n int) float64 {
	switch {
	case n >= 3:
		return 0.4
	case n >= 1:
		return 0.2
	default:
		return 0
	}
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Message turns an extraction error into the sentence shown to API clients.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}

func BuildPrompt(platform scraper.Platform, content string) string {
	return fmt.Sprintf(promptTemplate, platform, content)
}

const promptTemplate = `You are a recipe extraction AI. Analyze the following social media content from %s and determine if it contains a recipe.

Content:
%s

Instructions:
1. If this content contains a recipe, extract the title, ingredients (with quantities when available), and step-by-step cooking instructions.
2. If this is NOT a recipe (e.g., just food photos, restaurant reviews, general cooking tips), set isRecipe to false and return empty arrays.
3. Be strict: only extract if there are clear ingredients AND cooking instructions.
4. Format ingredients with quantities when available (e.g., "2 cups flour", "1 tbsp salt").
5. Make instructions clear and sequential.
6. Combine information from captions and transcription if both are available.`
