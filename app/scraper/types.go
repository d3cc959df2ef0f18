package scraper

import (
	"context"
	"time"
)

type Platform string

const (
	PlatformNone      Platform = ""
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

// DisplayName returns the capitalised platform name used in error messages.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformInstagram:
		return "Instagram"
	case PlatformTikTok:
		return "TikTok"
	default:
		return "Unknown"
	}
}

// Content is the normalized record produced for one social post.
// Nullable fields are pointers; Hashtags and Mentions are never nil.
type Content struct {
	Platform      Platform   `json:"platform"`
	PostID        string     `json:"postId"`
	URL           string     `json:"url"`
	Title         *string    `json:"title"`
	Author        Author     `json:"author"`
	VideoURL      *string    `json:"videoUrl"`
	CoverImageURL *string    `json:"coverImageUrl"`
	Engagement    Engagement `json:"engagement"`
	Hashtags      []string   `json:"hashtags"`
	Mentions      []string   `json:"mentions"`
	Timestamp     *time.Time `json:"timestamp"`
	MusicInfo     *MusicInfo `json:"musicInfo"`

	// Fields the scraper could not populate; kept for diagnostics only.
	UnavailableFields []string `json:"-"`
}

type Author struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"displayName"`
	ProfileURL  string  `json:"profileUrl"`
	AvatarURL   *string `json:"avatarUrl"`
}

type Engagement struct {
	Likes    *int64 `json:"likes"`
	Comments *int64 `json:"comments"`
	Shares   *int64 `json:"shares"`
	Views    *int64 `json:"views"`
}

type MusicInfo struct {
	Title  *string `json:"title"`
	Artist *string `json:"artist"`
	URL    *string `json:"url"`
}

// Scraper fetches one post page and normalizes it into Content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Content, error)
	Platform() Platform
}

func (c *Content) markUnavailable(field string) {
	c.UnavailableFields = append(c.UnavailableFields, field)
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}
