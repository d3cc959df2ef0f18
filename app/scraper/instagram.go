package scraper

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

const instagramMediaKey = "xdt_api__v1__media__shortcode__web_info"

var _ Scraper = (*InstagramScraper)(nil)

type InstagramScraper struct {
	fetcher *Fetcher
}

func NewInstagramScraper(fetcher *Fetcher) *InstagramScraper {
	return &InstagramScraper{fetcher: fetcher}
}

func (s *InstagramScraper) Platform() Platform {
	return PlatformInstagram
}

func (s *InstagramScraper) Scrape(ctx context.Context, url string) (*Content, error) {
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &Error{Platform: PlatformInstagram, Err: err}
	}

	content, err := ParseInstagram(body, url)
	if err != nil {
		return nil, &Error{Platform: PlatformInstagram, Err: err}
	}

	return content, nil
}

// ParseInstagram builds Content from an Instagram post page, preferring the embedded
// media payload and falling back to Open Graph tags.
func ParseInstagram(body []byte, url string) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	content := &Content{
		Platform: PlatformInstagram,
		PostID:   ExtractPostID(url),
		URL:      url,
	}

	var media any
	doc.Find(`script[type="application/json"]`).Each(func(_ int, sel *goquery.Selection) {
		if found, ok := findKey(sel.Text(), instagramMediaKey); ok && found != nil {
			media = found
		}
	})

	if item := dig(media, "items", "0"); item != nil {
		fillInstagramFromMedia(content, item)
	} else if !fillInstagramFromMeta(content, doc) {
		return nil, fmt.Errorf("%w: %s not found and no meta tags present", ErrNoData, instagramMediaKey)
	}

	content.Hashtags = ExtractHashtags(content.Title)
	content.Mentions = ExtractMentions(content.Title)

	return content, nil
}

func fillInstagramFromMedia(c *Content, item any) {
	if id := firstStr(dig(item, "code"), dig(item, "pk"), dig(item, "id")); id != "" {
		c.PostID = id
	}

	c.Title = stringPtr(str(dig(item, "caption", "text")))
	if c.Title == nil {
		c.markUnavailable("title")
	}

	owner := dig(item, "owner")
	if owner == nil {
		owner = dig(item, "user")
	}
	c.Author.Username = str(dig(owner, "username"))
	if c.Author.Username != "" {
		c.Author.ProfileURL = "https://instagram.com/" + c.Author.Username
	} else {
		c.markUnavailable("author.username")
	}
	c.Author.DisplayName = stringPtr(str(dig(owner, "full_name")))
	if c.Author.DisplayName == nil {
		c.markUnavailable("author.displayName")
	}
	c.Author.AvatarURL = stringPtr(str(dig(owner, "profile_pic_url")))
	if c.Author.AvatarURL == nil {
		c.markUnavailable("author.avatarUrl")
	}

	c.VideoURL = stringPtr(str(dig(item, "video_versions", "0", "url")))
	if c.VideoURL == nil {
		c.markUnavailable("videoUrl")
	}
	c.CoverImageURL = stringPtr(str(dig(item, "image_versions2", "candidates", "0", "url")))
	if c.CoverImageURL == nil {
		c.markUnavailable("coverImageUrl")
	}

	c.Engagement.Likes = count(dig(item, "like_count"))
	c.Engagement.Comments = count(dig(item, "comment_count"))
	c.Engagement.Views = count(dig(item, "view_count"))
	if c.Engagement.Views == nil {
		c.Engagement.Views = count(dig(item, "play_count"))
	}
	c.markMissingEngagement()

	c.Timestamp = unixTime(dig(item, "taken_at"))
	if c.Timestamp == nil {
		c.markUnavailable("timestamp")
	}

	c.markUnavailable("musicInfo")
}

func fillInstagramFromMeta(c *Content, doc *goquery.Document) bool {
	title := metaContent(doc, `meta[property="og:description"]`, `meta[property="og:title"]`, `meta[name="description"]`)
	image := metaContent(doc, `meta[property="og:image"]`)
	video := metaContent(doc, `meta[property="og:video"]`, `meta[property="og:video:secure_url"]`)

	if title == "" && image == "" && video == "" {
		return false
	}

	c.Title = stringPtr(title)
	c.CoverImageURL = stringPtr(image)
	c.VideoURL = stringPtr(video)

	if title == "" {
		c.markUnavailable("title")
	}
	if video == "" {
		c.markUnavailable("videoUrl")
	}
	if image == "" {
		c.markUnavailable("coverImageUrl")
	}

	c.markUnavailable("author.username")
	c.markUnavailable("author.displayName")
	c.markUnavailable("author.avatarUrl")
	c.markMissingEngagement()
	c.markUnavailable("timestamp")
	c.markUnavailable("musicInfo")

	return true
}

func (c *Content) markMissingEngagement() {
	if c.Engagement.Likes == nil {
		c.markUnavailable("engagement.likes")
	}
	if c.Engagement.Comments == nil {
		c.markUnavailable("engagement.comments")
	}
	if c.Engagement.Shares == nil {
		c.markUnavailable("engagement.shares")
	}
	if c.Engagement.Views == nil {
		c.markUnavailable("engagement.views")
	}
}
