package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/recipe-comb/app/database"
)

const isoMillis = "2006-01-02T15:04:05.000Z"

func (h *Handler) ListRecipes(c *gin.Context) {
	recipes, err := h.recipeRepo.ListRecipes()
	if err != nil {
		slog.Error("Failed to fetch recipes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
		return
	}

	summaries := make([]recipeSummary, 0, len(recipes))
	for _, r := range recipes {
		summaries = append(summaries, toSummary(r))
	}

	c.JSON(http.StatusOK, gin.H{"recipes": summaries})
}

func (h *Handler) GetRecipe(c *gin.Context) {
	recipe, err := h.recipeRepo.GetRecipe(c.Param("id"))
	if err != nil {
		slog.Error("Failed to fetch recipe", "recipe_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipe"})
		return
	}
	if recipe == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipe": recipeDetail{
		recipeSummary: toSummary(*recipe),
		OriginalData:  recipe.OriginalData,
		Transcription: recipe.Transcription,
	}})
}

func (h *Handler) SaveRecipe(c *gin.Context) {
	var req saveRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	err := h.collectionRepo.SaveUserRecipe(userID(c), req.RecipeID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}
	if err != nil {
		slog.Error("Failed to save recipe", "recipe_id", req.RecipeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save recipe"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Recipe saved successfully"})
}

func (h *Handler) RemoveRecipe(c *gin.Context) {
	recipeID := c.Param("recipeId")
	if err := h.collectionRepo.RemoveUserRecipe(userID(c), recipeID); err != nil {
		slog.Error("Failed to remove recipe", "recipe_id", recipeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove recipe"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe removed from collection"})
}

func (h *Handler) ListCollection(c *gin.Context) {
	saved, err := h.collectionRepo.ListUserRecipes(userID(c))
	if err != nil {
		slog.Error("Failed to fetch user recipes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user recipes"})
		return
	}

	recipes := make([]collectionRecipe, 0, len(saved))
	for _, r := range saved {
		recipes = append(recipes, collectionRecipe{
			UserRecipeID:      r.UserRecipeID,
			RecipeID:          r.RecipeID,
			Title:             r.Title,
			Ingredients:       r.Ingredients,
			Instructions:      r.Instructions,
			ScrapedContentID:  r.ScrapedContentID,
			Confidence:        r.Confidence,
			AIProvider:        r.AIProvider,
			HasCustomizations: r.HasCustomizations,
			SavedAt:           formatTime(r.SavedAt),
			UpdatedAt:         formatTime(r.UpdatedAt),
		})
	}

	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *Handler) EditRecipe(c *gin.Context) {
	var req editRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	recipeID := c.Param("id")
	err := h.collectionRepo.UpdateUserRecipe(userID(c), recipeID, database.RecipeCustomization{
		Title:        req.CustomTitle,
		Ingredients:  req.CustomIngredients,
		Instructions: req.CustomInstructions,
	})
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found in user collection"})
		return
	}
	if err != nil {
		slog.Error("Failed to update recipe", "recipe_id", recipeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipe"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe updated successfully"})
}

func toSummary(r database.Recipe) recipeSummary {
	return recipeSummary{
		ID:               r.ID,
		Title:            r.Title,
		Ingredients:      r.Ingredients,
		Instructions:     r.Instructions,
		ScrapedContentID: r.ScrapedContentID,
		Confidence:       r.Confidence,
		AIProvider:       r.AIProvider,
		CreatedAt:        formatTime(r.CreatedAt),
		UpdatedAt:        formatTime(r.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
