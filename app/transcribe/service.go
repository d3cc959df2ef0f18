package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"
)

const (
	DefaultURL   = "https://api.groq.com/openai/v1/audio/transcriptions"
	DefaultModel = "whisper-large-v3-turbo"

	defaultTimeout = 120 * time.Second
)

var ErrEmptyAudio = errors.New("audio file is empty")

// APIError is a non-2xx response from the speech-to-text backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("transcription API error: %d - %s", e.StatusCode, e.Body)
}

type Config struct {
	APIKey  string
	URL     string
	Model   string
	Timeout time.Duration
}

// Service sends audio files to a Whisper-compatible transcription endpoint.
type Service struct {
	cfg    Config
	client *http.Client
	cache  Cache
}

func NewService(cfg Config, client *http.Client, cache Cache) *Service {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Service{cfg: cfg, client: client, cache: cache}
}

// CacheKey is the transcript cache key used for a post's video.
func CacheKey(videoSourceURL string) string {
	return "video-" + videoSourceURL
}

// Transcribe returns the transcript of the audio file at audioPath. A non-empty
// cacheKey is consulted first and filled on success. An empty transcript is not
// an error and is never cached.
func (s *Service) Transcribe(ctx context.Context, audioPath, cacheKey string) (string, error) {
	if cacheKey != "" {
		transcript, found, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			slog.Warn("Transcription cache lookup failed", "key", cacheKey, "error", err)
		} else if found && transcript != "" {
			slog.Debug("Transcription cache hit", "key", cacheKey)
			return transcript, nil
		}
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	transcript, err := s.request(ctx, audio)
	if err != nil {
		return "", err
	}

	if cacheKey != "" && transcript != "" {
		if err := s.cache.Set(ctx, cacheKey, transcript); err != nil {
			slog.Warn("Failed to cache transcription", "key", cacheKey, "error", err)
		}
	}

	return transcript, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (s *Service) request(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	body, contentType, err := encodeForm(audio, s.cfg.Model)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call transcription API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcription response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return strings.TrimSpace(result.Text), nil
}

func encodeForm(audio []byte, model string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="audio.mp3"`)
	header.Set("Content-Type", "audio/mpeg")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("failed to write form file: %w", err)
	}

	if err := w.WriteField("model", model); err != nil {
		return nil, "", fmt.Errorf("failed to write form field: %w", err)
	}
	if err := w.WriteField("response_format", "json"); err != nil {
		return nil, "", fmt.Errorf("failed to write form field: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
