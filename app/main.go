package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/recipe-comb/app/api"
	"github.com/lysyi3m/recipe-comb/app/cache"
	"github.com/lysyi3m/recipe-comb/app/cfg"
	"github.com/lysyi3m/recipe-comb/app/database"
	"github.com/lysyi3m/recipe-comb/app/llm"
	"github.com/lysyi3m/recipe-comb/app/media"
	"github.com/lysyi3m/recipe-comb/app/ratelimit"
	"github.com/lysyi3m/recipe-comb/app/recipe"
	"github.com/lysyi3m/recipe-comb/app/scraper"
	"github.com/lysyi3m/recipe-comb/app/tasks"
	"github.com/lysyi3m/recipe-comb/app/transcribe"
	"github.com/lysyi3m/recipe-comb/app/workflow"
)

const transcriptTTL = 24 * time.Hour

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if config == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if config.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Recipe Comb server", "version", config.Version)

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		fatal("Failed to connect to database", err)
	}
	defer db.Close()
	slog.Info("Connected to database", "path", config.DBPath)

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		fatal("Failed to run migrations", err)
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	contentRepo := database.NewContentRepository(db)
	recipeRepo := database.NewRecipeRepository(db)
	logRepo := database.NewLogRepository(db)

	var redisCache *cache.Cache
	if config.RedisAddr != "" {
		redisCache, err = cache.NewCache(context.Background(), config.RedisAddr)
		if err != nil {
			fatal("Failed to connect to Redis", err)
		}
		defer redisCache.Close()
	}

	var (
		rateStore       ratelimit.Store  = ratelimit.NewMemoryStore()
		transcriptCache transcribe.Cache = transcribe.NewMemoryCache()
		redisHealth     api.HealthChecker
	)
	if redisCache != nil {
		rateStore = ratelimit.NewRedisStore(redisCache)
		transcriptCache = transcribe.NewRedisCache(redisCache, transcriptTTL)
		redisHealth = redisCache
	}

	limiter := ratelimit.NewLimiter(rateStore, config.RateLimitMaxRequests, config.RateLimitWindow)

	settings, err := scraper.LoadSettings(config.PlatformsFile)
	if err != nil {
		fatal("Failed to load platform settings", err)
	}
	httpClient := &http.Client{}
	registry := scraper.NewDefaultRegistry(httpClient, settings, scraper.PlatformSettings{
		UserAgent: config.UserAgent,
		Timeout:   int(config.ScrapeTimeout / time.Second),
	})

	pipeline := media.NewPipeline(media.Config{
		TempDir:            config.MediaTempDir,
		FFmpegBinary:       config.FFmpegBinary,
		FFprobeBinary:      config.FFprobeBinary,
		MaxSizeBytes:       config.MaxVideoSizeBytes(),
		MaxDurationSeconds: config.MaxVideoDurationSeconds,
		AudioBitrateKbps:   config.AudioBitrateKbps,
		DownloadTimeout:    config.VideoDownloadTimeout,
	}, httpClient)
	if err := os.MkdirAll(pipeline.TempDir(), 0o755); err != nil {
		fatal("Failed to create media temp dir", err)
	}

	var extraction api.ExtractionWorkflow
	if config.DisableExtraction {
		slog.Info("Recipe extraction disabled")
	} else if client, err := newLLMClient(config); err != nil {
		slog.Warn("Recipe extraction disabled", "reason", err)
	} else {
		var (
			video       workflow.VideoPipeline
			transcriber workflow.Transcriber
		)
		if config.GroqAPIKey != "" {
			video = pipeline
			transcriber = transcribe.NewService(transcribe.Config{
				APIKey: config.GroqAPIKey,
				URL:    config.TranscriptionURL,
				Model:  config.TranscriptionModel,
			}, nil, transcriptCache)
		} else {
			slog.Warn("Video transcription disabled (GROQ_API_KEY not set)")
		}

		extraction = workflow.NewWorkflow(recipeRepo, recipeRepo, video, transcriber,
			recipe.NewExtractor(client), nil)
		slog.Info("Recipe extraction enabled", "provider", client.Provider(), "transcription", transcriber != nil)
	}

	slog.Info("Starting background scheduler", "workers", config.WorkerCount)
	scheduler := tasks.NewScheduler(limiter, pipeline, tasks.Options{
		Interval:    time.Duration(config.SchedulerInterval) * time.Second,
		WorkerCount: config.WorkerCount,
		MediaMaxAge: config.TempFileMaxAge,
	})
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(contentRepo, recipeRepo, recipeRepo, logRepo,
		registry, limiter, extraction, redisHealth, config.Version)
	server := api.NewServer(handler, config.JWTSecret, config.BaseUrl)

	// Extraction runs inline with the request: download, transcription and
	// the model call all fit inside the write timeout.
	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Recipe Comb server shutdown complete")
}

func newLLMClient(config *cfg.Cfg) (llm.Client, error) {
	switch config.LLMProvider {
	case cfg.ProviderAnthropic:
		if config.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		return llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey: config.AnthropicAPIKey,
			Model:  config.AnthropicModel,
		}), nil
	default:
		if config.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY not set")
		}
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  config.GroqAPIKey,
			BaseURL: config.LLMBaseURL,
			Model:   config.LLMModel,
		}), nil
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
