package cfg

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const (
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

type rawCfg struct {
	// Storage configuration
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/recipe-comb.db" description:"Path to the SQLite database file"`
	RedisAddr string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for shared rate limit and transcription stores (optional)"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL used in the endpoint listing at / (e.g., https://recipes.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for maintenance tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	JWTSecret         string `long:"jwt-secret" env:"JWT_SECRET" description:"Secret used to verify user access tokens (optional, enables collections)"`
	DisableExtraction bool   `long:"disable-extraction" env:"DISABLE_EXTRACTION" description:"Only scrape and cache posts, never run recipe extraction"`
	PlatformsFile     string `long:"platforms-file" env:"PLATFORMS_FILE" description:"YAML file with per-platform fetch settings (optional)"`

	// Rate limiting
	RateLimitMaxRequests int `long:"rate-limit-max-requests" env:"RATE_LIMIT_MAX_REQUESTS" default:"10" description:"Requests allowed per client within one window"`
	RateLimitWindowMs    int `long:"rate-limit-window-ms" env:"RATE_LIMIT_WINDOW_MS" default:"60000" description:"Rate limit window in milliseconds"`

	// Scraping and media
	ScrapeTimeout           int    `long:"scrape-timeout" env:"SCRAPE_TIMEOUT" default:"30" description:"Page fetch timeout in seconds"`
	VideoDownloadTimeout    int    `long:"video-download-timeout" env:"VIDEO_DOWNLOAD_TIMEOUT" default:"60" description:"Video download timeout in seconds"`
	MaxVideoSizeMB          int    `long:"max-video-size-mb" env:"MAX_VIDEO_SIZE_MB" default:"100" description:"Largest video accepted for transcription"`
	MaxVideoDurationSeconds int    `long:"max-video-duration" env:"MAX_VIDEO_DURATION_SECONDS" default:"300" description:"Longest video accepted for transcription, in seconds"`
	AudioBitrateKbps        int    `long:"audio-bitrate" env:"AUDIO_BITRATE_KBPS" default:"128" description:"Bitrate of the extracted audio track"`
	FFmpegBinary            string `long:"ffmpeg" env:"FFMPEG_BINARY" default:"ffmpeg" description:"Path to the ffmpeg binary"`
	FFprobeBinary           string `long:"ffprobe" env:"FFPROBE_BINARY" default:"ffprobe" description:"Path to the ffprobe binary"`
	MediaTempDir            string `long:"media-temp-dir" env:"MEDIA_TEMP_DIR" description:"Directory for temporary video and audio files (defaults to the system temp dir)"`
	TempFileMaxAge          int    `long:"temp-file-max-age" env:"TEMP_FILE_MAX_AGE" default:"86400" description:"Age in seconds after which leftover media files are removed"`

	// Language model and transcription backends
	LLMProvider        string `long:"llm-provider" env:"LLM_PROVIDER" default:"groq" choice:"groq" choice:"anthropic" description:"Recipe extraction backend"`
	GroqAPIKey         string `long:"groq-api-key" env:"GROQ_API_KEY" description:"API key for the Groq chat and transcription endpoints"`
	LLMBaseURL         string `long:"llm-base-url" env:"LLM_BASE_URL" default:"https://api.groq.com/openai/v1/chat/completions" description:"OpenAI-compatible chat completions endpoint"`
	LLMModel           string `long:"llm-model" env:"LLM_MODEL" default:"llama-3.3-70b-versatile" description:"Model used by the OpenAI-compatible backend"`
	AnthropicAPIKey    string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"API key for the Anthropic backend"`
	AnthropicModel     string `long:"anthropic-model" env:"ANTHROPIC_MODEL" default:"claude-3-5-haiku-latest" description:"Model used by the Anthropic backend"`
	TranscriptionURL   string `long:"transcription-url" env:"TRANSCRIPTION_URL" default:"https://api.groq.com/openai/v1/audio/transcriptions" description:"Speech-to-text endpoint"`
	TranscriptionModel string `long:"transcription-model" env:"TRANSCRIPTION_MODEL" default:"whisper-large-v3-turbo" description:"Speech-to-text model"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for outbound page fetches"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:                  raw.DBPath,
		RedisAddr:               strings.TrimSpace(raw.RedisAddr),
		Port:                    raw.Port,
		BaseUrl:                 strings.TrimRight(strings.TrimSpace(raw.BaseUrl), "/"),
		WorkerCount:             raw.WorkerCount,
		SchedulerInterval:       raw.SchedulerInterval,
		JWTSecret:               raw.JWTSecret,
		DisableExtraction:       raw.DisableExtraction,
		PlatformsFile:           raw.PlatformsFile,
		RateLimitMaxRequests:    raw.RateLimitMaxRequests,
		RateLimitWindow:         time.Duration(raw.RateLimitWindowMs) * time.Millisecond,
		ScrapeTimeout:           time.Duration(raw.ScrapeTimeout) * time.Second,
		VideoDownloadTimeout:    time.Duration(raw.VideoDownloadTimeout) * time.Second,
		MaxVideoSizeMB:          raw.MaxVideoSizeMB,
		MaxVideoDurationSeconds: raw.MaxVideoDurationSeconds,
		AudioBitrateKbps:        raw.AudioBitrateKbps,
		FFmpegBinary:            raw.FFmpegBinary,
		FFprobeBinary:           raw.FFprobeBinary,
		MediaTempDir:            cmp.Or(raw.MediaTempDir, filepath.Join(os.TempDir(), "recipe-comb")),
		TempFileMaxAge:          time.Duration(raw.TempFileMaxAge) * time.Second,
		LLMProvider:             raw.LLMProvider,
		GroqAPIKey:              raw.GroqAPIKey,
		LLMBaseURL:              raw.LLMBaseURL,
		LLMModel:                raw.LLMModel,
		AnthropicAPIKey:         raw.AnthropicAPIKey,
		AnthropicModel:          raw.AnthropicModel,
		TranscriptionURL:        raw.TranscriptionURL,
		TranscriptionModel:      raw.TranscriptionModel,
		UserAgent:               raw.UserAgent,
		Timezone:                raw.Timezone,
		Debug:                   raw.Debug,
		Version:                 GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.RateLimitMaxRequests <= 0 {
		return fmt.Errorf("rate limit max requests must be positive")
	}
	if cfg.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if cfg.MaxVideoSizeMB <= 0 {
		return fmt.Errorf("max video size must be positive")
	}
	if cfg.MaxVideoDurationSeconds <= 0 {
		return fmt.Errorf("max video duration must be positive")
	}
	if cfg.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if cfg.SchedulerInterval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
