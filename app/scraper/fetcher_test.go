package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == "" {
			t.Error("Expected Accept header to be set")
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), PlatformSettings{})
	body, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestFetcher_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), PlatformSettings{})
	_, err := f.Fetch(context.Background(), server.URL)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected *StatusError, got: %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", statusErr.StatusCode)
	}
	if err.Error() != "HTTP 404" {
		t.Errorf("Unexpected error message: %s", err.Error())
	}
}

func TestFetcher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), PlatformSettings{})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := f.Fetch(ctx, server.URL); err == nil {
		t.Error("Expected timeout error, got nil")
	}
}
