package database

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/recipe-comb/app/scraper"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func strPtr(s string) *string { return &s }

func testContent(url string) *scraper.Content {
	likes := int64(42)
	posted := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &scraper.Content{
		Platform: scraper.PlatformInstagram,
		PostID:   "ABC123",
		URL:      url,
		Title:    strPtr("Best pasta #dinner @chef"),
		Author: scraper.Author{
			Username:   "chef",
			ProfileURL: "https://instagram.com/chef",
		},
		VideoURL:   strPtr("https://cdn.example.com/video.mp4"),
		Engagement: scraper.Engagement{Likes: &likes},
		Hashtags:   []string{"dinner"},
		Mentions:   []string{"chef"},
		Timestamp:  &posted,
	}
}

func TestContentRepo_UpsertAndGet(t *testing.T) {
	repo := NewContentRepository(setupTestDB(t))

	url := "https://instagram.com/p/ABC123"
	id, err := repo.UpsertContent(testContent(url))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if id == 0 {
		t.Fatal("Expected non-zero id")
	}

	stored, err := repo.GetContentByURL(url)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected stored content")
	}
	if stored.ID != id {
		t.Errorf("Expected id %d, got %d", id, stored.ID)
	}
	if stored.Content.PostID != "ABC123" {
		t.Errorf("Expected post id 'ABC123', got '%s'", stored.Content.PostID)
	}
	if stored.Content.Title == nil || *stored.Content.Title != "Best pasta #dinner @chef" {
		t.Errorf("Unexpected title: %v", stored.Content.Title)
	}
	if stored.Content.Engagement.Likes == nil || *stored.Content.Engagement.Likes != 42 {
		t.Errorf("Expected 42 likes, got %v", stored.Content.Engagement.Likes)
	}
	if stored.Content.Engagement.Shares != nil {
		t.Errorf("Expected nil shares, got %v", *stored.Content.Engagement.Shares)
	}
	if len(stored.Content.Hashtags) != 1 || stored.Content.Hashtags[0] != "dinner" {
		t.Errorf("Unexpected hashtags: %v", stored.Content.Hashtags)
	}
	if stored.Content.Timestamp == nil || !stored.Content.Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected timestamp: %v", stored.Content.Timestamp)
	}
	if stored.Content.MusicInfo != nil {
		t.Errorf("Expected nil music info, got %+v", stored.Content.MusicInfo)
	}
}

func TestContentRepo_GetMissing(t *testing.T) {
	repo := NewContentRepository(setupTestDB(t))

	stored, err := repo.GetContentByURL("https://instagram.com/p/missing")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stored != nil {
		t.Errorf("Expected nil for missing URL, got %+v", stored)
	}
}

func TestContentRepo_UpsertOverwritesSameURL(t *testing.T) {
	repo := NewContentRepository(setupTestDB(t))

	url := "https://instagram.com/p/ABC123"
	firstID, err := repo.UpsertContent(testContent(url))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	updated := testContent(url)
	updated.Title = strPtr("Updated caption")
	updated.VideoURL = nil
	secondID, err := repo.UpsertContent(updated)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if firstID != secondID {
		t.Errorf("Expected upsert to keep id %d, got %d", firstID, secondID)
	}

	count, err := repo.GetContentCount()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row, got %d", count)
	}

	stored, _ := repo.GetContentByURL(url)
	if stored.Content.Title == nil || *stored.Content.Title != "Updated caption" {
		t.Errorf("Expected updated title, got %v", stored.Content.Title)
	}
	if stored.Content.VideoURL != nil {
		t.Errorf("Expected video URL to be cleared, got %v", *stored.Content.VideoURL)
	}
}

func TestRecipeRepo_InsertIsUniquePerContent(t *testing.T) {
	db := setupTestDB(t)
	contentID, err := NewContentRepository(db).UpsertContent(testContent("https://instagram.com/p/ABC123"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	repo := NewRecipeRepository(db)

	recipe := NewRecipe{
		Title:            "Pasta",
		Ingredients:      []string{"200g pasta", "salt"},
		Instructions:     []string{"Boil water", "Cook pasta"},
		ScrapedContentID: contentID,
		Confidence:       0.6,
		AIProvider:       "groq",
	}

	firstID, created, err := repo.InsertRecipe(recipe)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !created {
		t.Error("Expected first insert to create a recipe")
	}

	secondID, created, err := repo.InsertRecipe(recipe)
	if err != nil {
		t.Fatalf("Expected conflicting insert to succeed, got: %v", err)
	}
	if created {
		t.Error("Expected second insert to reuse the existing recipe")
	}
	if firstID != secondID {
		t.Errorf("Expected id %s, got %s", firstID, secondID)
	}

	count, _ := repo.GetRecipeCount()
	if count != 1 {
		t.Errorf("Expected 1 recipe, got %d", count)
	}

	stored, err := repo.GetRecipe(firstID)
	if err != nil || stored == nil {
		t.Fatalf("Expected stored recipe, got %v (err %v)", stored, err)
	}
	if stored.OriginalData == nil || stored.OriginalData.Title != "Pasta" {
		t.Errorf("Expected original data to be recorded, got %+v", stored.OriginalData)
	}
	if stored.Confidence == nil || *stored.Confidence != 0.6 {
		t.Errorf("Expected confidence 0.6, got %v", stored.Confidence)
	}
}

func TestRecipeRepo_ConcurrentInsertsYieldOneRecipe(t *testing.T) {
	db := setupTestDB(t)
	contentID, err := NewContentRepository(db).UpsertContent(testContent("https://instagram.com/p/RACE"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	repo := NewRecipeRepository(db)

	const writers = 5
	ids := make([]string, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _, errs[i] = repo.InsertRecipe(NewRecipe{
				Title:            "Race",
				Ingredients:      []string{"a"},
				Instructions:     []string{"b"},
				ScrapedContentID: contentID,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		if errs[i] != nil {
			t.Fatalf("Writer %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("Writer %d got id %s, expected %s", i, ids[i], ids[0])
		}
	}
}

func TestRecipeRepo_UserCollection(t *testing.T) {
	db := setupTestDB(t)
	contentID, _ := NewContentRepository(db).UpsertContent(testContent("https://instagram.com/p/ABC123"))
	repo := NewRecipeRepository(db)

	recipeID, _, err := repo.InsertRecipe(NewRecipe{
		Title:            "Pasta",
		Ingredients:      []string{"pasta"},
		Instructions:     []string{"cook"},
		ScrapedContentID: contentID,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	userID := "5f0c8f5e-9a4e-4c55-9d43-2c7a7b1c1d11"
	if err := repo.SaveUserRecipe(userID, recipeID); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := repo.SaveUserRecipe(userID, recipeID); err != nil {
		t.Fatalf("Expected repeated save to be a no-op, got: %v", err)
	}

	if err := repo.SaveUserRecipe(userID, "00000000-0000-0000-0000-000000000000"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for unknown recipe, got: %v", err)
	}

	list, err := repo.ListUserRecipes(userID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 saved recipe, got %d", len(list))
	}
	if list[0].HasCustomizations {
		t.Error("Expected no customizations")
	}

	title := "Grandma's pasta"
	err = repo.UpdateUserRecipe(userID, recipeID, RecipeCustomization{Title: &title})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	list, _ = repo.ListUserRecipes(userID)
	if list[0].Title != title {
		t.Errorf("Expected custom title, got '%s'", list[0].Title)
	}
	if !list[0].HasCustomizations {
		t.Error("Expected customizations to be reported")
	}
	if len(list[0].Ingredients) != 1 || list[0].Ingredients[0] != "pasta" {
		t.Errorf("Expected original ingredients, got %v", list[0].Ingredients)
	}

	if err := repo.UpdateUserRecipe("other-user", recipeID, RecipeCustomization{Title: &title}); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for other user, got: %v", err)
	}

	if err := repo.RemoveUserRecipe(userID, recipeID); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	list, _ = repo.ListUserRecipes(userID)
	if len(list) != 0 {
		t.Errorf("Expected empty collection, got %d", len(list))
	}
}

func TestLogRepo_LogFailure(t *testing.T) {
	repo := NewLogRepository(setupTestDB(t))

	ip := "203.0.113.7"
	remaining := 4
	err := repo.LogFailure(ScrapingLog{
		URL:               "https://www.tiktok.com/@chef/video/123",
		Platform:          "tiktok",
		Status:            ScrapeStatusFailed,
		ScrapeDurationMs:  812,
		ErrorMessage:      "failed to scrape TikTok URL: timeout",
		RequestMetadata:   &RequestMetadata{IP: &ip, RateLimitRemaining: &remaining},
		UnavailableFields: []string{"musicInfo"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	count, err := repo.GetFailureCount()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 failure, got %d", count)
	}

	logs, err := repo.GetLogsForURL("https://www.tiktok.com/@chef/video/123")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("Expected 1 log, got %d", len(logs))
	}
	if logs[0].ScrapeDurationMs != 812 {
		t.Errorf("Expected duration 812, got %d", logs[0].ScrapeDurationMs)
	}
	if len(logs[0].UnavailableFields) != 1 || logs[0].UnavailableFields[0] != "musicInfo" {
		t.Errorf("Unexpected unavailable fields: %v", logs[0].UnavailableFields)
	}
}
