package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const instagramPage = `<!DOCTYPE html>
<html><head>
<meta property="og:description" content="should not be used">
<script type="application/json">{"unrelated": true}</script>
<script type="application/json">not json at all</script>
<script type="application/json">
{"require": [["ScheduledServerJS", "handle", null, [{"__bbox": {"result": {"data": {
  "xdt_api__v1__media__shortcode__web_info": {"items": [{
    "code": "C9xyz",
    "pk": "3312345678901234567",
    "taken_at": 1714564800,
    "caption": {"text": "Easy ramen 🍜 #ramen #noodles thanks @mom"},
    "owner": {"username": "noodlechef", "full_name": "Noodle Chef", "profile_pic_url": "https://cdn.example.com/avatar.jpg"},
    "video_versions": [{"url": "https://cdn.example.com/video.mp4"}],
    "image_versions2": {"candidates": [{"url": "https://cdn.example.com/cover.jpg"}]},
    "like_count": 1200,
    "comment_count": 34,
    "view_count": null
  }]}
}}}}]]]}
</script>
</head><body></body></html>`

func TestParseInstagram_EmbeddedPayload(t *testing.T) {
	content, err := ParseInstagram([]byte(instagramPage), "https://www.instagram.com/reel/C9xyz/")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if content.Platform != PlatformInstagram {
		t.Errorf("Expected platform instagram, got %s", content.Platform)
	}
	if content.PostID != "C9xyz" {
		t.Errorf("Expected post id 'C9xyz', got '%s'", content.PostID)
	}
	if content.Title == nil || !strings.HasPrefix(*content.Title, "Easy ramen") {
		t.Errorf("Unexpected title: %v", content.Title)
	}
	if content.Author.Username != "noodlechef" {
		t.Errorf("Expected username 'noodlechef', got '%s'", content.Author.Username)
	}
	if content.Author.ProfileURL != "https://instagram.com/noodlechef" {
		t.Errorf("Unexpected profile URL: %s", content.Author.ProfileURL)
	}
	if content.VideoURL == nil || *content.VideoURL != "https://cdn.example.com/video.mp4" {
		t.Errorf("Unexpected video URL: %v", content.VideoURL)
	}
	if content.CoverImageURL == nil || *content.CoverImageURL != "https://cdn.example.com/cover.jpg" {
		t.Errorf("Unexpected cover URL: %v", content.CoverImageURL)
	}
	if content.Engagement.Likes == nil || *content.Engagement.Likes != 1200 {
		t.Errorf("Expected 1200 likes, got %v", content.Engagement.Likes)
	}
	if content.Engagement.Views != nil {
		t.Errorf("Expected nil views, got %v", *content.Engagement.Views)
	}
	if content.Engagement.Shares != nil {
		t.Errorf("Expected nil shares, got %v", *content.Engagement.Shares)
	}
	if content.Timestamp == nil || content.Timestamp.Unix() != 1714564800 {
		t.Errorf("Unexpected timestamp: %v", content.Timestamp)
	}
	if len(content.Hashtags) != 2 || content.Hashtags[0] != "ramen" {
		t.Errorf("Unexpected hashtags: %v", content.Hashtags)
	}
	if len(content.Mentions) != 1 || content.Mentions[0] != "mom" {
		t.Errorf("Unexpected mentions: %v", content.Mentions)
	}
	if content.MusicInfo != nil {
		t.Errorf("Expected nil music info")
	}
	if !containsField(content.UnavailableFields, "engagement.views") {
		t.Errorf("Expected engagement.views to be reported unavailable, got %v", content.UnavailableFields)
	}
}

func TestParseInstagram_MetaFallback(t *testing.T) {
	page := `<html><head>
<meta property="og:description" content="Banana bread #baking">
<meta property="og:image" content="https://cdn.example.com/og.jpg">
</head></html>`

	content, err := ParseInstagram([]byte(page), "https://instagram.com/p/BREAD1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if content.PostID != "BREAD1" {
		t.Errorf("Expected post id from URL, got '%s'", content.PostID)
	}
	if content.Title == nil || *content.Title != "Banana bread #baking" {
		t.Errorf("Unexpected title: %v", content.Title)
	}
	if content.CoverImageURL == nil {
		t.Error("Expected cover image from og:image")
	}
	if content.VideoURL != nil {
		t.Errorf("Expected nil video URL, got %v", *content.VideoURL)
	}
	if len(content.Hashtags) != 1 || content.Hashtags[0] != "baking" {
		t.Errorf("Unexpected hashtags: %v", content.Hashtags)
	}
	if !containsField(content.UnavailableFields, "videoUrl") {
		t.Errorf("Expected videoUrl to be reported unavailable, got %v", content.UnavailableFields)
	}
}

func TestParseInstagram_NoData(t *testing.T) {
	_, err := ParseInstagram([]byte(`<html><head><title>Login</title></head></html>`), "https://instagram.com/p/X")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got: %v", err)
	}
}

func TestInstagramScraper_WrapsFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := NewInstagramScraper(NewFetcher(server.Client(), PlatformSettings{}))
	_, err := s.Scrape(context.Background(), server.URL+"/p/ABC")

	var scrapeErr *Error
	if !errors.As(err, &scrapeErr) {
		t.Fatalf("Expected *Error, got: %v", err)
	}
	if scrapeErr.Platform != PlatformInstagram {
		t.Errorf("Expected platform instagram, got %s", scrapeErr.Platform)
	}
	if !strings.HasPrefix(err.Error(), "failed to scrape Instagram URL: ") {
		t.Errorf("Unexpected error message: %s", err.Error())
	}
	if HTTPStatus(err) != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", HTTPStatus(err))
	}
}

func TestInstagramScraper_FetchesWithBrowserHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte(instagramPage))
	}))
	defer server.Close()

	s := NewInstagramScraper(NewFetcher(server.Client(), PlatformSettings{UserAgent: "Mozilla/5.0 Test"}))
	content, err := s.Scrape(context.Background(), server.URL+"/reel/C9xyz/")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if gotUA != "Mozilla/5.0 Test" {
		t.Errorf("Expected configured user agent, got '%s'", gotUA)
	}
	if gotLang != defaultAcceptLanguage {
		t.Errorf("Expected default Accept-Language, got '%s'", gotLang)
	}
	if content.Author.Username != "noodlechef" {
		t.Errorf("Expected username 'noodlechef', got '%s'", content.Author.Username)
	}
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
