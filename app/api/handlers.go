package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/recipe-comb/app/database"
)

func NewHandler(contentRepo database.ContentRepository, recipeRepo database.RecipeRepository,
	collectionRepo database.UserRecipeRepository, logRepo database.LogRepository,
	scrapers ScraperRegistry, limiter RateLimiter, workflow ExtractionWorkflow,
	redis HealthChecker, version string) *Handler {
	return &Handler{
		contentRepo:    contentRepo,
		recipeRepo:     recipeRepo,
		collectionRepo: collectionRepo,
		logRepo:        logRepo,
		scrapers:       scrapers,
		limiter:        limiter,
		workflow:       workflow,
		redis:          redis,
		version:        version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"extraction": map[string]bool{
			"enabled": h.workflow != nil,
		},
	}

	if count, err := h.contentRepo.GetContentCount(); err == nil {
		health["scraped_content"] = count
	} else {
		slog.Error("Database error", "operation", "get_content_count", "error", err)
		health["status"] = "degraded"
	}

	if count, err := h.recipeRepo.GetRecipeCount(); err == nil {
		health["recipes"] = count
	}

	if count, err := h.logRepo.GetFailureCount(); err == nil {
		health["failed_scrapes"] = count
	}

	if h.redis != nil {
		redis := h.redis.Health(c.Request.Context())
		health["redis"] = redis
		if redis["status"] != "healthy" {
			health["status"] = "degraded"
		}
	}

	c.JSON(http.StatusOK, health)
}
