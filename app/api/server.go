package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/recipe-comb/app/metrics"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, jwtSecret, baseURL string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Expose-Headers", "X-RateLimit-Remaining, X-RateLimit-Reset")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, jwtSecret, baseURL)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, jwtSecret, baseURL string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	// Anonymous scrapes are allowed; a valid token only attributes the saved recipe.
	api.POST("/scraper", optionalAuth(jwtSecret), handler.Scrape)

	if jwtSecret != "" {
		recipes := api.Group("/recipes")
		recipes.Use(requireAuth(jwtSecret))
		{
			recipes.GET("", handler.ListRecipes)
			recipes.GET("/my-collection", handler.ListCollection)
			recipes.GET("/:id", handler.GetRecipe)
			recipes.PUT("/:id/edit", handler.EditRecipe)
			recipes.POST("/save", handler.SaveRecipe)
			recipes.DELETE("/save/:recipeId", handler.RemoveRecipe)
		}
		slog.Info("Recipe endpoints enabled with authentication")
	} else {
		slog.Info("Recipe endpoints disabled (JWT_SECRET not set)")
	}

	// Endpoint paths are absolute when a public base URL is configured.
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"scraper": baseURL + "/api/scraper (POST)",
			"health":  baseURL + "/health",
			"metrics": baseURL + "/metrics",
		}

		if jwtSecret != "" {
			endpoints["recipes"] = baseURL + "/api/recipes (requires Authorization: Bearer <token>)"
			endpoints["recipe"] = baseURL + "/api/recipes/<id> (requires Authorization: Bearer <token>)"
			endpoints["collection"] = baseURL + "/api/recipes/my-collection (requires Authorization: Bearer <token>)"
			endpoints["save"] = baseURL + "/api/recipes/save (POST), " + baseURL + "/api/recipes/save/<id> (DELETE)"
			endpoints["edit"] = baseURL + "/api/recipes/<id>/edit (PUT)"
		}

		c.JSON(200, gin.H{
			"service":     "Recipe Comb",
			"version":     handler.version,
			"description": "Instagram and TikTok recipe extraction with transcription and structured LLM output",
			"endpoints":   endpoints,
			"auth": map[string]any{
				"enabled": jwtSecret != "",
				"header":  "Authorization",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
