package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lysyi3m/recipe-comb/app/cache"
)

func writeAudio(t *testing.T, data string) string {
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("Failed to write audio file: %v", err)
	}
	return path
}

func newTranscriptionServer(t *testing.T, calls *int32, status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Unexpected Authorization header: %s", r.Header.Get("Authorization"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Expected multipart form: %v", err)
		} else {
			if r.FormValue("model") != DefaultModel {
				t.Errorf("Unexpected model: %s", r.FormValue("model"))
			}
			if r.FormValue("response_format") != "json" {
				t.Errorf("Unexpected response_format: %s", r.FormValue("response_format"))
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Errorf("Expected file part: %v", err)
			} else {
				data, _ := io.ReadAll(file)
				if header.Filename != "audio.mp3" || string(data) != "ID3audio" {
					t.Errorf("Unexpected file part %s: %q", header.Filename, data)
				}
			}
		}

		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestTranscribe(t *testing.T) {
	var calls int32
	server := newTranscriptionServer(t, &calls, http.StatusOK, `{"text": " Add two cups of flour. "}`)
	defer server.Close()

	s := NewService(Config{APIKey: "test-key", URL: server.URL}, server.Client(), nil)
	audio := writeAudio(t, "ID3audio")
	key := CacheKey("https://tiktok.com/@a/video/1")

	transcript, err := s.Transcribe(context.Background(), audio, key)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if transcript != "Add two cups of flour." {
		t.Errorf("Unexpected transcript: %q", transcript)
	}

	again, err := s.Transcribe(context.Background(), audio, key)
	if err != nil || again != transcript {
		t.Errorf("Expected cached transcript, got %q err=%v", again, err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected 1 API call, got %d", calls)
	}
}

func TestTranscribe_NoCacheKeyAlwaysCalls(t *testing.T) {
	var calls int32
	server := newTranscriptionServer(t, &calls, http.StatusOK, `{"text": "hello"}`)
	defer server.Close()

	s := NewService(Config{APIKey: "test-key", URL: server.URL}, server.Client(), nil)
	audio := writeAudio(t, "ID3audio")

	s.Transcribe(context.Background(), audio, "")
	s.Transcribe(context.Background(), audio, "")

	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Expected 2 API calls, got %d", calls)
	}
}

func TestTranscribe_EmptyTextIsNotCached(t *testing.T) {
	var calls int32
	server := newTranscriptionServer(t, &calls, http.StatusOK, `{"text": ""}`)
	defer server.Close()

	memory := NewMemoryCache()
	s := NewService(Config{APIKey: "test-key", URL: server.URL}, server.Client(), memory)

	transcript, err := s.Transcribe(context.Background(), writeAudio(t, "ID3audio"), "key")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if transcript != "" {
		t.Errorf("Expected empty transcript, got %q", transcript)
	}
	if _, found, _ := memory.Get(context.Background(), "key"); found {
		t.Error("Expected empty transcript not to be cached")
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	s := NewService(Config{APIKey: "test-key", URL: "http://127.0.0.1:0"}, nil, nil)

	_, err := s.Transcribe(context.Background(), writeAudio(t, ""), "")
	if !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Expected ErrEmptyAudio, got: %v", err)
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	s := NewService(Config{APIKey: "test-key"}, nil, nil)

	if _, err := s.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.mp3"), ""); err == nil {
		t.Error("Expected error for missing audio file")
	}
}

func TestTranscribe_APIError(t *testing.T) {
	var calls int32
	server := newTranscriptionServer(t, &calls, http.StatusTooManyRequests, `{"error": "slow down"}`)
	defer server.Close()

	s := NewService(Config{APIKey: "test-key", URL: server.URL}, server.Client(), nil)

	_, err := s.Transcribe(context.Background(), writeAudio(t, "ID3audio"), "key")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got: %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", apiErr.StatusCode)
	}
	if err.Error() != `transcription API error: 429 - {"error": "slow down"}` {
		t.Errorf("Unexpected error message: %s", err.Error())
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(cache.NewFromClient(client), time.Hour)
	ctx := context.Background()

	if _, found, err := c.Get(ctx, "video-x"); err != nil || found {
		t.Fatalf("Expected miss, got found=%v err=%v", found, err)
	}

	if err := c.Set(ctx, "video-x", "transcript"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	transcript, found, err := c.Get(ctx, "video-x")
	if err != nil || !found || transcript != "transcript" {
		t.Errorf("Expected cached transcript, got %q found=%v err=%v", transcript, found, err)
	}

	key := cache.GenerateKey(redisKeyPrefix, "video-x")
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("Expected 1h TTL, got %v", ttl)
	}
}
