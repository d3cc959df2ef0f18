package scraper

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

var _ Scraper = (*TikTokScraper)(nil)

type TikTokScraper struct {
	fetcher *Fetcher
}

func NewTikTokScraper(fetcher *Fetcher) *TikTokScraper {
	return &TikTokScraper{fetcher: fetcher}
}

func (s *TikTokScraper) Platform() Platform {
	return PlatformTikTok
}

func (s *TikTokScraper) Scrape(ctx context.Context, url string) (*Content, error) {
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &Error{Platform: PlatformTikTok, Err: err}
	}

	content, err := ParseTikTok(body, url)
	if err != nil {
		return nil, &Error{Platform: PlatformTikTok, Err: err}
	}

	return content, nil
}

// tiktokSource is whichever structured payload the page carried.
type tiktokSource struct {
	item    any // webapp.video-detail itemInfo.itemStruct
	ldVideo any // schema.org VideoObject
}

// ParseTikTok builds Content from a TikTok video page. Sources are tried in order:
// the rehydration payload, an ld+json VideoObject, then meta tags.
func ParseTikTok(body []byte, url string) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	src := tiktokSource{}
	doc.Find(`script#__UNIVERSAL_DATA_FOR_REHYDRATION__`).Each(func(_ int, sel *goquery.Selection) {
		payload, ok := decodePayload(sel.Text())
		if !ok {
			return
		}
		if item := dig(payload, "__DEFAULT_SCOPE__", "webapp.video-detail", "itemInfo", "itemStruct"); item != nil {
			src.item = item
		}
	})

	if src.item == nil {
		doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
			payload, ok := decodePayload(sel.Text())
			if !ok {
				return
			}
			if str(dig(payload, "@type")) == "VideoObject" {
				src.ldVideo = payload
			}
		})
	}

	content := &Content{
		Platform: PlatformTikTok,
		PostID:   ExtractPostID(url),
		URL:      url,
	}

	extractTikTokTitle(content, src, doc)
	extractTikTokAuthor(content, src, url)
	extractTikTokMedia(content, src, doc)

	if src.item == nil && src.ldVideo == nil && content.Title == nil &&
		content.VideoURL == nil && content.CoverImageURL == nil {
		return nil, fmt.Errorf("%w: no embedded data or meta tags present", ErrNoData)
	}

	extractTikTokEngagement(content, src)
	content.Hashtags = ExtractHashtags(content.Title)
	content.Mentions = ExtractMentions(content.Title)
	extractTikTokTimestamp(content, src)
	extractTikTokMusic(content, src)

	return content, nil
}

func extractTikTokTitle(c *Content, src tiktokSource, doc *goquery.Document) {
	title := firstStr(dig(src.item, "desc"), dig(src.ldVideo, "description"))
	if title == "" {
		title = metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`)
	}
	c.Title = stringPtr(title)
	if c.Title == nil {
		c.markUnavailable("title")
	}
}

func extractTikTokAuthor(c *Content, src tiktokSource, url string) {
	var displayName, avatarURL string

	switch {
	case dig(src.item, "author") != nil:
		author := dig(src.item, "author")
		c.Author.Username = firstStr(dig(author, "uniqueId"), dig(author, "id"))
		displayName = str(dig(author, "nickname"))
		avatarURL = firstStr(dig(author, "avatarThumb"), dig(author, "avatarMedium"))
		if c.Author.Username != "" {
			c.Author.ProfileURL = "https://tiktok.com/@" + c.Author.Username
		}
	case dig(src.ldVideo, "author") != nil:
		author := dig(src.ldVideo, "author")
		c.Author.Username = firstStr(dig(author, "identifier", "value"), handleFromURL(str(dig(author, "url"))), dig(author, "name"))
		displayName = str(dig(author, "name"))
		avatarURL = str(dig(author, "image"))
		c.Author.ProfileURL = str(dig(author, "url"))
		if c.Author.ProfileURL == "" && c.Author.Username != "" {
			c.Author.ProfileURL = "https://tiktok.com/@" + c.Author.Username
		}
	}

	if c.Author.Username == "" {
		if handle := handleFromURL(url); handle != "" {
			c.Author.Username = handle
			c.Author.ProfileURL = "https://tiktok.com/@" + handle
		} else {
			c.markUnavailable("author.username")
		}
	}

	c.Author.AvatarURL = stringPtr(avatarURL)
	if c.Author.AvatarURL == nil {
		c.markUnavailable("author.avatarUrl")
	}
	c.Author.DisplayName = stringPtr(displayName)
	if c.Author.DisplayName == nil {
		c.markUnavailable("author.displayName")
	}
}

func extractTikTokMedia(c *Content, src tiktokSource, doc *goquery.Document) {
	var videoURL, coverURL string

	if video := dig(src.item, "video"); video != nil {
		videoURL = firstStr(dig(video, "playAddr"), dig(video, "downloadAddr"))
		coverURL = firstStr(dig(video, "cover"), dig(video, "dynamicCover"))
	} else if src.ldVideo != nil {
		videoURL = str(dig(src.ldVideo, "contentUrl"))
		coverURL = firstStr(dig(src.ldVideo, "thumbnailUrl"), dig(src.ldVideo, "thumbnailUrl", "0"))
	}

	if videoURL == "" {
		videoURL = metaContent(doc, `meta[property="og:video"]`)
	}
	if coverURL == "" {
		coverURL = metaContent(doc, `meta[property="og:image"]`)
	}

	c.VideoURL = stringPtr(videoURL)
	if c.VideoURL == nil {
		c.markUnavailable("videoUrl")
	}
	c.CoverImageURL = stringPtr(coverURL)
	if c.CoverImageURL == nil {
		c.markUnavailable("coverImageUrl")
	}
}

func extractTikTokEngagement(c *Content, src tiktokSource) {
	if stats := dig(src.item, "stats"); stats != nil {
		c.Engagement.Likes = count(dig(stats, "diggCount"))
		c.Engagement.Comments = count(dig(stats, "commentCount"))
		c.Engagement.Shares = count(dig(stats, "shareCount"))
		c.Engagement.Views = count(dig(stats, "playCount"))
	} else if stats, ok := dig(src.ldVideo, "interactionStatistic").([]any); ok {
		for _, stat := range stats {
			n := count(dig(stat, "userInteractionCount"))
			switch str(dig(stat, "interactionType")) {
			case "http://schema.org/LikeAction":
				c.Engagement.Likes = n
			case "http://schema.org/CommentAction":
				c.Engagement.Comments = n
			case "http://schema.org/ShareAction":
				c.Engagement.Shares = n
			case "http://schema.org/WatchAction":
				c.Engagement.Views = n
			}
		}
	}
	c.markMissingEngagement()
}

func extractTikTokTimestamp(c *Content, src tiktokSource) {
	c.Timestamp = unixTime(dig(src.item, "createTime"))
	if c.Timestamp == nil {
		c.Timestamp = isoTime(dig(src.ldVideo, "uploadDate"))
	}
	if c.Timestamp == nil {
		c.markUnavailable("timestamp")
	}
}

func extractTikTokMusic(c *Content, src tiktokSource) {
	music := dig(src.item, "music")
	if music == nil {
		c.markUnavailable("musicInfo")
		return
	}
	c.MusicInfo = &MusicInfo{
		Title:  stringPtr(str(dig(music, "title"))),
		Artist: stringPtr(str(dig(music, "authorName"))),
		URL:    stringPtr(str(dig(music, "playUrl"))),
	}
}
