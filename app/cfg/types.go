package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath    string
	RedisAddr string

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	JWTSecret         string
	DisableExtraction bool
	PlatformsFile     string

	// Rate limiting
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	// Scraping and media
	ScrapeTimeout           time.Duration
	VideoDownloadTimeout    time.Duration
	MaxVideoSizeMB          int
	MaxVideoDurationSeconds int
	AudioBitrateKbps        int
	FFmpegBinary            string
	FFprobeBinary           string
	MediaTempDir            string
	TempFileMaxAge          time.Duration

	// Language model and transcription backends
	LLMProvider        string
	GroqAPIKey         string
	LLMBaseURL         string
	LLMModel           string
	AnthropicAPIKey    string
	AnthropicModel     string
	TranscriptionURL   string
	TranscriptionModel string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// MaxVideoSizeBytes returns the download ceiling in bytes.
func (c *Cfg) MaxVideoSizeBytes() int64 {
	return int64(c.MaxVideoSizeMB) * 1024 * 1024
}
