package database

import (
	"errors"
	"time"

	"github.com/lysyi3m/recipe-comb/app/scraper"
)

var ErrNotFound = errors.New("record not found")

// StoredContent is a cached scrape together with its database identity.
type StoredContent struct {
	ID        int64
	Content   scraper.Content
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ContentRepository interface {
	GetContentByURL(url string) (*StoredContent, error)
	GetContentCount() (int, error)

	UpsertContent(content *scraper.Content) (int64, error)
}

type RecipeRepository interface {
	GetRecipe(id string) (*Recipe, error)
	GetRecipeByScrapedContentID(scrapedContentID int64) (*Recipe, error)
	ListRecipes() ([]Recipe, error)
	GetRecipeCount() (int, error)

	InsertRecipe(recipe NewRecipe) (string, bool, error)
}

type UserRecipeRepository interface {
	ListUserRecipes(userID string) ([]UserRecipe, error)

	SaveUserRecipe(userID, recipeID string) error
	UpdateUserRecipe(userID, recipeID string, custom RecipeCustomization) error
	RemoveUserRecipe(userID, recipeID string) error
}

type LogRepository interface {
	GetFailureCount() (int, error)

	LogFailure(entry ScrapingLog) error
}
