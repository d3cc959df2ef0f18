package api

import (
	"context"
	"time"

	"github.com/lysyi3m/recipe-comb/app/cache"
	"github.com/lysyi3m/recipe-comb/app/database"
	"github.com/lysyi3m/recipe-comb/app/ratelimit"
	"github.com/lysyi3m/recipe-comb/app/scraper"
	"github.com/lysyi3m/recipe-comb/app/workflow"
)

type ScraperRegistry interface {
	Get(p scraper.Platform) (scraper.Scraper, bool)
}

type RateLimiter interface {
	Check(ctx context.Context, id string) (ratelimit.Result, error)
	Window() time.Duration
}

type ExtractionWorkflow interface {
	Run(ctx context.Context, content *scraper.Content, contentID int64, userID string) workflow.Result
}

// HealthChecker reports the state of an optional backing service.
type HealthChecker interface {
	Health(ctx context.Context) map[string]any
}

var (
	_ ScraperRegistry    = (*scraper.Registry)(nil)
	_ RateLimiter        = (*ratelimit.Limiter)(nil)
	_ ExtractionWorkflow = (*workflow.Workflow)(nil)
	_ HealthChecker      = (*cache.Cache)(nil)
)

type Handler struct {
	contentRepo    database.ContentRepository
	recipeRepo     database.RecipeRepository
	collectionRepo database.UserRecipeRepository
	logRepo        database.LogRepository
	scrapers       ScraperRegistry
	limiter        RateLimiter
	workflow       ExtractionWorkflow
	redis          HealthChecker
	version        string
}

type scrapeRequest struct {
	URL     string `json:"url" binding:"required"`
	Force   bool   `json:"force"`
	Extract *bool  `json:"extract"`
}

// ScrapeResponse is the body of every POST /api/scraper reply.
type ScrapeResponse struct {
	Success             bool             `json:"success"`
	Data                *scraper.Content `json:"data"`
	Error               *string          `json:"error"`
	RecipeID            string           `json:"recipeId,omitempty"`
	TranscriptionStatus string           `json:"transcriptionStatus,omitempty"`
}

type saveRecipeRequest struct {
	RecipeID string `json:"recipeId" binding:"required,uuid"`
}

type editRecipeRequest struct {
	CustomTitle        *string  `json:"customTitle" binding:"omitempty,min=1"`
	CustomIngredients  []string `json:"customIngredients" binding:"omitempty,dive,min=1"`
	CustomInstructions []string `json:"customInstructions" binding:"omitempty,dive,min=1"`
}

type recipeSummary struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Ingredients      []string `json:"ingredients"`
	Instructions     []string `json:"instructions"`
	ScrapedContentID int64    `json:"scrapedContentId"`
	Confidence       *float64 `json:"confidence"`
	AIProvider       string   `json:"aiProvider"`
	CreatedAt        string   `json:"createdAt"`
	UpdatedAt        string   `json:"updatedAt"`
}

type recipeDetail struct {
	recipeSummary
	OriginalData  *database.RecipeData `json:"originalData"`
	Transcription *string              `json:"transcription"`
}

type collectionRecipe struct {
	UserRecipeID      string   `json:"userRecipeId"`
	RecipeID          string   `json:"recipeId"`
	Title             string   `json:"title"`
	Ingredients       []string `json:"ingredients"`
	Instructions      []string `json:"instructions"`
	ScrapedContentID  int64    `json:"scrapedContentId"`
	Confidence        *float64 `json:"confidence"`
	AIProvider        string   `json:"aiProvider"`
	HasCustomizations bool     `json:"hasCustomizations"`
	SavedAt           string   `json:"savedAt"`
	UpdatedAt         string   `json:"updatedAt"`
}
