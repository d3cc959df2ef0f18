package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTooLarge         = errors.New("video file too large")
	ErrDurationExceeded = errors.New("video duration exceeds maximum allowed")
)

// DurationError reports a video longer than the configured ceiling.
type DurationError struct {
	Seconds    float64
	MaxSeconds int
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("video duration %ss exceeds maximum allowed %ds",
		strconv.FormatFloat(e.Seconds, 'f', -1, 64), e.MaxSeconds)
}

func (e *DurationError) Is(target error) bool {
	return target == ErrDurationExceeded
}

// CommandRunner runs an external binary and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

type Config struct {
	TempDir            string
	FFmpegBinary       string
	FFprobeBinary      string
	MaxSizeBytes       int64
	MaxDurationSeconds int
	AudioBitrateKbps   int
	DownloadTimeout    time.Duration
}

// Pipeline downloads videos to local temporary storage, probes them and
// extracts their audio track.
type Pipeline struct {
	cfg    Config
	client *http.Client
	run    CommandRunner
}

func NewPipeline(cfg Config, client *http.Client) *Pipeline {
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if cfg.FFprobeBinary == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = filepath.Join(os.TempDir(), "recipe-comb")
	}
	if cfg.AudioBitrateKbps == 0 {
		cfg.AudioBitrateKbps = 128
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Pipeline{cfg: cfg, client: client, run: execRunner}
}

// WithCommandRunner sets a custom command runner (for testing).
func (p *Pipeline) WithCommandRunner(run CommandRunner) *Pipeline {
	p.run = run
	return p
}

func (p *Pipeline) TempDir() string {
	return p.cfg.TempDir
}

// Download streams videoURL into a tracked temporary file. Oversized videos are
// rejected from Content-Length when present, otherwise once the limit is crossed,
// and the partial file is removed straight away.
func (p *Pipeline) Download(ctx context.Context, tracker *Tracker, videoURL string) (string, error) {
	if p.cfg.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.DownloadTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to download video: HTTP %d", resp.StatusCode)
	}

	if p.cfg.MaxSizeBytes > 0 && resp.ContentLength > p.cfg.MaxSizeBytes {
		return "", p.tooLarge(resp.ContentLength)
	}

	if err := os.MkdirAll(p.cfg.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	file, err := os.CreateTemp(p.cfg.TempDir, "video-*.mp4")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := file.Name()
	tracker.Track(path)

	var body io.Reader = resp.Body
	if p.cfg.MaxSizeBytes > 0 {
		body = io.LimitReader(resp.Body, p.cfg.MaxSizeBytes+1)
	}

	written, copyErr := io.Copy(file, body)
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		tracker.Release(path)
		return "", fmt.Errorf("failed to download video: %w", copyErr)
	case closeErr != nil:
		tracker.Release(path)
		return "", fmt.Errorf("failed to write video: %w", closeErr)
	case p.cfg.MaxSizeBytes > 0 && written > p.cfg.MaxSizeBytes:
		tracker.Release(path)
		return "", p.tooLarge(written)
	case written == 0:
		tracker.Release(path)
		return "", errors.New("downloaded video is empty")
	}

	slog.Debug("Video downloaded", "url", videoURL, "path", path, "bytes", written)

	return path, nil
}

func (p *Pipeline) tooLarge(size int64) error {
	return fmt.Errorf("%w: %.2fMB (max: %dMB)", ErrTooLarge,
		float64(size)/(1024*1024), p.cfg.MaxSizeBytes/(1024*1024))
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration reads the container duration without decoding the streams.
func (p *Pipeline) ProbeDuration(ctx context.Context, path string) (float64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("ffprobe inspect: empty path")
	}

	output, err := p.run(ctx, p.cfg.FFprobeBinary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result probeFormat
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil || math.IsNaN(duration) || duration < 0 {
		return 0, fmt.Errorf("ffprobe parse: invalid duration %q", result.Format.Duration)
	}

	return duration, nil
}

// ValidateDuration accepts durations up to and including the ceiling.
func (p *Pipeline) ValidateDuration(seconds float64) error {
	if p.cfg.MaxDurationSeconds > 0 && seconds > float64(p.cfg.MaxDurationSeconds) {
		return &DurationError{Seconds: seconds, MaxSeconds: p.cfg.MaxDurationSeconds}
	}
	return nil
}

// ExtractAudio encodes the audio track of videoPath as MP3. An empty destPath
// places the output next to the video.
func (p *Pipeline) ExtractAudio(ctx context.Context, tracker *Tracker, videoPath, destPath string) (string, error) {
	if destPath == "" {
		destPath = strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".mp3"
	}

	// ffmpeg may leave a partial file behind on failure.
	tracker.Track(destPath)

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", p.cfg.AudioBitrateKbps),
		destPath,
	}
	if output, err := p.run(ctx, p.cfg.FFmpegBinary, args...); err != nil {
		return "", fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return "", fmt.Errorf("ffmpeg extract: missing output: %w", err)
	}
	if info.Size() == 0 {
		return "", errors.New("ffmpeg extract: empty output")
	}

	return destPath, nil
}

// SweepStale removes leftover media files older than maxAge, such as those
// orphaned by a crash mid-pipeline.
func (p *Pipeline) SweepStale(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(p.cfg.TempDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read temp dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isMediaFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(p.cfg.TempDir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to remove stale media file", "path", path, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

func isMediaFile(name string) bool {
	return strings.HasPrefix(name, "video-") &&
		(strings.HasSuffix(name, ".mp4") || strings.HasSuffix(name, ".mp3"))
}
