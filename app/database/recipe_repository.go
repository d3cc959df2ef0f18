package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

var (
	_ RecipeRepository     = (*RecipeRepo)(nil)
	_ UserRecipeRepository = (*RecipeRepo)(nil)
)

// RecipeRepo handles recipes and the per-user recipe collections that reference them.
type RecipeRepo struct {
	db *DB
}

func NewRecipeRepository(db *DB) *RecipeRepo {
	return &RecipeRepo{db: db}
}

const recipeColumns = `id, title, ingredients, instructions, original_data, scraped_content_id,
		       confidence, ai_provider, transcription, created_at, updated_at`

func (r *RecipeRepo) GetRecipe(id string) (*Recipe, error) {
	recipe, err := scanRecipe(r.db.QueryRow(`SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return recipe, nil
}

func (r *RecipeRepo) GetRecipeByScrapedContentID(scrapedContentID int64) (*Recipe, error) {
	recipe, err := scanRecipe(r.db.QueryRow(`SELECT `+recipeColumns+` FROM recipes WHERE scraped_content_id = ?`, scrapedContentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe by scraped content: %w", err)
	}
	return recipe, nil
}

func (r *RecipeRepo) ListRecipes() ([]Recipe, error) {
	rows, err := r.db.Query(`SELECT ` + recipeColumns + ` FROM recipes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, *recipe)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	return recipes, nil
}

func (r *RecipeRepo) GetRecipeCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM recipes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}

// InsertRecipe stores a recipe for a scraped post. At most one recipe exists per post:
// when another writer got there first, the existing id is returned with created=false.
func (r *RecipeRepo) InsertRecipe(recipe NewRecipe) (string, bool, error) {
	ingredients, err := encodeStrings(recipe.Ingredients)
	if err != nil {
		return "", false, err
	}
	instructions, err := encodeStrings(recipe.Instructions)
	if err != nil {
		return "", false, err
	}
	original, err := encodeJSON(RecipeData{
		Title:        recipe.Title,
		Ingredients:  recipe.Ingredients,
		Instructions: recipe.Instructions,
	})
	if err != nil {
		return "", false, err
	}

	id := uuid.NewString()
	now := nowTimestamp()

	result, err := r.db.Exec(`
		INSERT INTO recipes (
			id, title, ingredients, instructions, original_data, scraped_content_id,
			confidence, ai_provider, transcription, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scraped_content_id) DO NOTHING
	`, id, recipe.Title, ingredients, instructions, original, recipe.ScrapedContentID,
		recipe.Confidence, recipe.AIProvider, nullString(recipe.Transcription), now, now)
	if err != nil {
		return "", false, fmt.Errorf("failed to insert recipe: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if affected == 1 {
		return id, true, nil
	}

	existing, err := r.GetRecipeByScrapedContentID(recipe.ScrapedContentID)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return "", false, fmt.Errorf("recipe for scraped content %d conflicted but was not found", recipe.ScrapedContentID)
	}

	return existing.ID, false, nil
}

// SaveUserRecipe adds a recipe to a user's collection. Saving the same recipe twice is a no-op.
func (r *RecipeRepo) SaveUserRecipe(userID, recipeID string) error {
	recipe, err := r.GetRecipe(recipeID)
	if err != nil {
		return err
	}
	if recipe == nil {
		return ErrNotFound
	}

	now := nowTimestamp()
	_, err = r.db.Exec(`
		INSERT INTO user_recipes (id, user_id, recipe_id, saved_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, recipe_id) DO NOTHING
	`, uuid.NewString(), userID, recipeID, now, now)
	if err != nil {
		return fmt.Errorf("failed to save user recipe: %w", err)
	}

	return nil
}

func (r *RecipeRepo) UpdateUserRecipe(userID, recipeID string, custom RecipeCustomization) error {
	var ingredients, instructions sql.NullString
	if custom.Ingredients != nil {
		encoded, err := encodeStrings(custom.Ingredients)
		if err != nil {
			return err
		}
		ingredients = sql.NullString{String: encoded, Valid: true}
	}
	if custom.Instructions != nil {
		encoded, err := encodeStrings(custom.Instructions)
		if err != nil {
			return err
		}
		instructions = sql.NullString{String: encoded, Valid: true}
	}

	result, err := r.db.Exec(`
		UPDATE user_recipes
		SET custom_title = COALESCE(?, custom_title),
		    custom_ingredients = COALESCE(?, custom_ingredients),
		    custom_instructions = COALESCE(?, custom_instructions),
		    updated_at = ?
		WHERE user_id = ? AND recipe_id = ?
	`, nullString(custom.Title), ingredients, instructions, nowTimestamp(), userID, recipeID)
	if err != nil {
		return fmt.Errorf("failed to update user recipe: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *RecipeRepo) RemoveUserRecipe(userID, recipeID string) error {
	_, err := r.db.Exec(`DELETE FROM user_recipes WHERE user_id = ? AND recipe_id = ?`, userID, recipeID)
	if err != nil {
		return fmt.Errorf("failed to remove user recipe: %w", err)
	}
	return nil
}

func (r *RecipeRepo) ListUserRecipes(userID string) ([]UserRecipe, error) {
	rows, err := r.db.Query(`
		SELECT ur.id, r.id, r.title, r.ingredients, r.instructions, r.scraped_content_id,
		       r.confidence, COALESCE(r.ai_provider, ''),
		       ur.custom_title, ur.custom_ingredients, ur.custom_instructions,
		       ur.saved_at, ur.updated_at
		FROM user_recipes ur
		JOIN recipes r ON r.id = ur.recipe_id
		WHERE ur.user_id = ?
		ORDER BY ur.saved_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user recipes: %w", err)
	}
	defer rows.Close()

	var recipes []UserRecipe
	for rows.Next() {
		var (
			ur                                    UserRecipe
			ingredients, instructions             sql.NullString
			confidence                            sql.NullFloat64
			customTitle                           sql.NullString
			customIngredients, customInstructions sql.NullString
			savedAt, updatedAt                    string
		)

		err := rows.Scan(&ur.UserRecipeID, &ur.RecipeID, &ur.Title, &ingredients, &instructions,
			&ur.ScrapedContentID, &confidence, &ur.AIProvider,
			&customTitle, &customIngredients, &customInstructions, &savedAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user recipe: %w", err)
		}

		if ur.Ingredients, err = decodeStrings(ingredients); err != nil {
			return nil, err
		}
		if ur.Instructions, err = decodeStrings(instructions); err != nil {
			return nil, err
		}

		if customTitle.Valid && customTitle.String != "" {
			ur.Title = customTitle.String
			ur.HasCustomizations = true
		}
		if custom, err := decodeStrings(customIngredients); err != nil {
			return nil, err
		} else if custom != nil {
			ur.Ingredients = custom
			ur.HasCustomizations = true
		}
		if custom, err := decodeStrings(customInstructions); err != nil {
			return nil, err
		} else if custom != nil {
			ur.Instructions = custom
			ur.HasCustomizations = true
		}

		if confidence.Valid {
			v := confidence.Float64
			ur.Confidence = &v
		}
		ur.SavedAt = parseTimestamp(savedAt)
		ur.UpdatedAt = parseTimestamp(updatedAt)

		recipes = append(recipes, ur)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user recipes: %w", err)
	}

	return recipes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (*Recipe, error) {
	var (
		recipe                    Recipe
		ingredients, instructions sql.NullString
		original                  sql.NullString
		confidence                sql.NullFloat64
		aiProvider, transcription sql.NullString
		createdAt, updatedAt      string
	)

	err := row.Scan(&recipe.ID, &recipe.Title, &ingredients, &instructions, &original,
		&recipe.ScrapedContentID, &confidence, &aiProvider, &transcription, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if recipe.Ingredients, err = decodeStrings(ingredients); err != nil {
		return nil, err
	}
	if recipe.Instructions, err = decodeStrings(instructions); err != nil {
		return nil, err
	}

	if original.Valid && original.String != "" {
		var data RecipeData
		if err := json.Unmarshal([]byte(original.String), &data); err != nil {
			return nil, fmt.Errorf("failed to decode original recipe data: %w", err)
		}
		recipe.OriginalData = &data
	}

	if confidence.Valid {
		v := confidence.Float64
		recipe.Confidence = &v
	}
	recipe.AIProvider = aiProvider.String
	recipe.Transcription = stringPtr(transcription)
	recipe.CreatedAt = parseTimestamp(createdAt)
	recipe.UpdatedAt = parseTimestamp(updatedAt)

	return &recipe, nil
}
