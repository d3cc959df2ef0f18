package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/recipe-comb/app/database"
	"github.com/lysyi3m/recipe-comb/app/media"
	"github.com/lysyi3m/recipe-comb/app/metrics"
	"github.com/lysyi3m/recipe-comb/app/recipe"
	"github.com/lysyi3m/recipe-comb/app/scraper"
	"github.com/lysyi3m/recipe-comb/app/transcribe"
)

type TranscriptionStatus string

const (
	TranscriptionNone    TranscriptionStatus = ""
	TranscriptionSuccess TranscriptionStatus = "success"
	TranscriptionFailed  TranscriptionStatus = "failed"
	TranscriptionSkipped TranscriptionStatus = "skipped"
)

const defaultFailure = "Recipe extraction failed"

type VideoPipeline interface {
	Download(ctx context.Context, tracker *media.Tracker, videoURL string) (string, error)
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ValidateDuration(seconds float64) error
	ExtractAudio(ctx context.Context, tracker *media.Tracker, videoPath, destPath string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, cacheKey string) (string, error)
}

type RecipeExtractor interface {
	Extract(ctx context.Context, in recipe.Input) (*recipe.Extraction, error)
}

var (
	_ VideoPipeline   = (*media.Pipeline)(nil)
	_ Transcriber     = (*transcribe.Service)(nil)
	_ RecipeExtractor = (*recipe.Extractor)(nil)
)

// Result is the outcome of one extraction run. Error holds a client-facing
// message; Err keeps the underlying error for logging.
type Result struct {
	Success             bool
	RecipeID            string
	ProcessingTimeMs    int64
	Error               string
	Err                 error
	TranscriptionStatus TranscriptionStatus
}

type Workflow struct {
	recipes     database.RecipeRepository
	collections database.UserRecipeRepository
	video       VideoPipeline
	transcriber Transcriber
	extractor   RecipeExtractor
	remover     media.Remover
}

// NewWorkflow wires the extraction steps. video and transcriber may be nil, in
// which case recipes are extracted from the caption alone.
func NewWorkflow(
	recipes database.RecipeRepository,
	collections database.UserRecipeRepository,
	video VideoPipeline,
	transcriber Transcriber,
	extractor RecipeExtractor,
	remover media.Remover,
) *Workflow {
	return &Workflow{
		recipes:     recipes,
		collections: collections,
		video:       video,
		transcriber: transcriber,
		extractor:   extractor,
		remover:     remover,
	}
}

// Run turns scraped content into a stored recipe. A recipe already linked to
// contentID is returned without any model call. Every temporary file created
// along the way is removed before Run returns, whatever the outcome.
func (w *Workflow) Run(ctx context.Context, content *scraper.Content, contentID int64, userID string) (result Result) {
	start := time.Now()
	tracker := media.NewTracker(w.remover)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recipe extraction panicked", "content_id", contentID, "panic", r)
			result = Result{
				Error:               fmt.Sprint(r),
				Err:                 fmt.Errorf("panic: %v", r),
				TranscriptionStatus: TranscriptionFailed,
			}
		}

		if removed := tracker.Cleanup(); removed > 0 {
			metrics.RecordMediaRemoved(removed)
		}

		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		metrics.RecordExtraction(outcome(result), time.Since(start))
	}()

	existing, err := w.recipes.GetRecipeByScrapedContentID(contentID)
	if err != nil {
		return failure(fmt.Errorf("failed to look up recipe: %w", err), TranscriptionFailed)
	}
	if existing != nil {
		slog.Debug("Recipe already extracted", "content_id", contentID, "recipe_id", existing.ID)
		return Result{Success: true, RecipeID: existing.ID}
	}

	transcript, status := w.enrich(ctx, tracker, content)
	metrics.RecordTranscription(string(status))

	// Scraped posts have no body separate from the caption.
	in := recipe.Input{
		Title:         content.Title,
		Hashtags:      content.Hashtags,
		Transcription: transcript,
		Platform:      content.Platform,
	}

	extraction, err := w.extractor.Extract(ctx, in)
	if err != nil {
		slog.Warn("Recipe extraction failed", "content_id", contentID, "error", err)
		return failure(err, status)
	}
	if extraction == nil {
		return failure(errors.New(defaultFailure), status)
	}

	recipeID, created, err := w.recipes.InsertRecipe(database.NewRecipe{
		Title:            extraction.Title,
		Ingredients:      extraction.Ingredients,
		Instructions:     extraction.Instructions,
		ScrapedContentID: contentID,
		Confidence:       extraction.Confidence,
		AIProvider:       extraction.AIProvider,
		Transcription:    extraction.Transcription,
	})
	if err != nil {
		return Result{
			Error:               "Failed to save recipe: " + err.Error(),
			Err:                 err,
			TranscriptionStatus: status,
		}
	}
	if !created {
		slog.Info("Recipe saved concurrently, using existing", "content_id", contentID, "recipe_id", recipeID)
	}

	if userID != "" && w.collections != nil {
		if err := w.collections.SaveUserRecipe(userID, recipeID); err != nil {
			slog.Error("Failed to auto-save recipe to user", "user_id", userID, "recipe_id", recipeID, "error", err)
		}
	}

	slog.Info("Recipe extracted", "content_id", contentID, "recipe_id", recipeID,
		"transcription", status, "confidence", extraction.Confidence)

	return Result{Success: true, RecipeID: recipeID, TranscriptionStatus: status}
}

// enrich downloads the post video and transcribes its audio. Problems with the
// video itself skip transcription; failures after the audio step mark it failed.
func (w *Workflow) enrich(ctx context.Context, tracker *media.Tracker, content *scraper.Content) (transcript *string, status TranscriptionStatus) {
	status = TranscriptionSkipped
	if content.VideoURL == nil || *content.VideoURL == "" || w.video == nil || w.transcriber == nil {
		return nil, status
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Video processing panicked", "url", content.URL, "panic", r)
			transcript, status = nil, TranscriptionFailed
		}
	}()

	videoPath, err := w.video.Download(ctx, tracker, *content.VideoURL)
	if err != nil {
		slog.Warn("Video download failed", "url", content.URL, "error", err)
		return nil, TranscriptionSkipped
	}

	duration, err := w.video.ProbeDuration(ctx, videoPath)
	if err != nil {
		slog.Warn("Duration check failed", "url", content.URL, "error", err)
		return nil, TranscriptionSkipped
	}
	if err := w.video.ValidateDuration(duration); err != nil {
		slog.Warn("Video duration exceeds limit", "url", content.URL, "error", err)
		return nil, TranscriptionSkipped
	}

	audioPath, err := w.video.ExtractAudio(ctx, tracker, videoPath, "")
	if err != nil {
		slog.Error("Audio extraction failed", "url", content.URL, "error", err)
		return nil, TranscriptionFailed
	}

	text, err := w.transcriber.Transcribe(ctx, audioPath, transcribe.CacheKey(content.URL))
	if err != nil {
		slog.Error("Transcription failed", "url", content.URL, "error", err)
		return nil, TranscriptionFailed
	}

	if text == "" {
		return nil, TranscriptionSuccess
	}
	return &text, TranscriptionSuccess
}

func failure(err error, status TranscriptionStatus) Result {
	msg := recipe.Message(err)
	if msg == "" {
		msg = defaultFailure
	}
	return Result{Error: msg, Err: err, TranscriptionStatus: status}
}

func outcome(r Result) string {
	switch {
	case !r.Success:
		return metrics.OutcomeFailed
	case r.TranscriptionStatus == TranscriptionNone:
		return metrics.OutcomeExisting
	default:
		return metrics.OutcomeCreated
	}
}
