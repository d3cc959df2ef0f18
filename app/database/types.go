package database

import (
	"time"
)

type ScrapeStatus string

const (
	ScrapeStatusSuccess     ScrapeStatus = "success"
	ScrapeStatusFailed      ScrapeStatus = "failed"
	ScrapeStatusRateLimited ScrapeStatus = "rate_limited"
)

// RequestMetadata describes the client request that produced a scraping log entry.
type RequestMetadata struct {
	IP                 *string `json:"ip"`
	UserAgent          *string `json:"userAgent"`
	RateLimitRemaining *int    `json:"rateLimitRemaining"`
	RateLimitReset     *string `json:"rateLimitReset"`
}

type ScrapingLog struct {
	ID                int64
	URL               string
	Platform          string
	Status            ScrapeStatus
	ScrapeDurationMs  int64
	HTTPStatusCode    *int
	ErrorMessage      string
	ErrorStack        string
	RequestMetadata   *RequestMetadata
	UnavailableFields []string
	ScrapedContentID  *int64
	CreatedAt         time.Time
}

// RecipeData is the structured part of a recipe as produced by extraction.
type RecipeData struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

type Recipe struct {
	ID               string
	Title            string
	Ingredients      []string
	Instructions     []string
	OriginalData     *RecipeData
	ScrapedContentID int64
	Confidence       *float64
	AIProvider       string
	Transcription    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewRecipe is the input for InsertRecipe.
type NewRecipe struct {
	Title            string
	Ingredients      []string
	Instructions     []string
	ScrapedContentID int64
	Confidence       float64
	AIProvider       string
	Transcription    *string
}

// UserRecipe is a recipe in a user's collection with any customisations applied.
type UserRecipe struct {
	UserRecipeID      string
	RecipeID          string
	Title             string
	Ingredients       []string
	Instructions      []string
	ScrapedContentID  int64
	Confidence        *float64
	AIProvider        string
	HasCustomizations bool
	SavedAt           time.Time
	UpdatedAt         time.Time
}

// RecipeCustomization holds optional per-user overrides; nil fields are left unchanged.
type RecipeCustomization struct {
	Title        *string
	Ingredients  []string
	Instructions []string
}
