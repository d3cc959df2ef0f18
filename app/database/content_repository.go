package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lysyi3m/recipe-comb/app/scraper"
)

var _ ContentRepository = (*ContentRepo)(nil)

// ContentRepo persists scraped posts keyed by their unique URL.
type ContentRepo struct {
	db *DB
}

func NewContentRepository(db *DB) *ContentRepo {
	return &ContentRepo{db: db}
}

func (r *ContentRepo) GetContentByURL(url string) (*StoredContent, error) {
	row := r.db.QueryRow(`
		SELECT id, platform, post_id, url, title,
		       author_username, author_display_name, author_profile_url, author_avatar_url,
		       video_url, cover_image_url, likes, comments, shares, views,
		       hashtags, mentions, post_timestamp, music_info, created_at, updated_at
		FROM scraped_content
		WHERE url = ?
	`, url)

	stored, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scraped content: %w", err)
	}

	return stored, nil
}

func (r *ContentRepo) GetContentCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM scraped_content`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count scraped content: %w", err)
	}
	return count, nil
}

// UpsertContent inserts the post or overwrites every field of the existing row for the same URL.
// Concurrent writers for one URL resolve as last-write-wins.
func (r *ContentRepo) UpsertContent(content *scraper.Content) (int64, error) {
	hashtags, err := encodeStrings(content.Hashtags)
	if err != nil {
		return 0, err
	}
	mentions, err := encodeStrings(content.Mentions)
	if err != nil {
		return 0, err
	}

	var musicInfo sql.NullString
	if content.MusicInfo != nil {
		encoded, err := encodeJSON(content.MusicInfo)
		if err != nil {
			return 0, err
		}
		musicInfo = sql.NullString{String: encoded, Valid: true}
	}

	var postTimestamp sql.NullString
	if content.Timestamp != nil {
		postTimestamp = sql.NullString{String: formatTimestamp(*content.Timestamp), Valid: true}
	}

	now := nowTimestamp()

	var id int64
	err = r.db.QueryRow(`
		INSERT INTO scraped_content (
			platform, post_id, url, title,
			author_username, author_display_name, author_profile_url, author_avatar_url,
			video_url, cover_image_url, likes, comments, shares, views,
			hashtags, mentions, post_timestamp, music_info, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			platform = excluded.platform,
			post_id = excluded.post_id,
			title = excluded.title,
			author_username = excluded.author_username,
			author_display_name = excluded.author_display_name,
			author_profile_url = excluded.author_profile_url,
			author_avatar_url = excluded.author_avatar_url,
			video_url = excluded.video_url,
			cover_image_url = excluded.cover_image_url,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares,
			views = excluded.views,
			hashtags = excluded.hashtags,
			mentions = excluded.mentions,
			post_timestamp = excluded.post_timestamp,
			music_info = excluded.music_info,
			updated_at = excluded.updated_at
		RETURNING id
	`, string(content.Platform), content.PostID, content.URL, nullString(content.Title),
		content.Author.Username, nullString(content.Author.DisplayName), content.Author.ProfileURL,
		nullString(content.Author.AvatarURL), nullString(content.VideoURL), nullString(content.CoverImageURL),
		nullInt64(content.Engagement.Likes), nullInt64(content.Engagement.Comments),
		nullInt64(content.Engagement.Shares), nullInt64(content.Engagement.Views),
		hashtags, mentions, postTimestamp, musicInfo, now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert scraped content: %w", err)
	}

	return id, nil
}

func scanContent(row *sql.Row) (*StoredContent, error) {
	var (
		stored                         StoredContent
		platform                       string
		title, displayName, avatarURL  sql.NullString
		videoURL, coverImageURL        sql.NullString
		likes, comments, shares, views sql.NullInt64
		hashtags, mentions             sql.NullString
		postTimestamp, musicInfo       sql.NullString
		createdAt, updatedAt           string
	)

	c := &stored.Content
	err := row.Scan(&stored.ID, &platform, &c.PostID, &c.URL, &title,
		&c.Author.Username, &displayName, &c.Author.ProfileURL, &avatarURL,
		&videoURL, &coverImageURL, &likes, &comments, &shares, &views,
		&hashtags, &mentions, &postTimestamp, &musicInfo, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.Platform = scraper.Platform(platform)
	c.Title = stringPtr(title)
	c.Author.DisplayName = stringPtr(displayName)
	c.Author.AvatarURL = stringPtr(avatarURL)
	c.VideoURL = stringPtr(videoURL)
	c.CoverImageURL = stringPtr(coverImageURL)
	c.Engagement = scraper.Engagement{
		Likes:    int64Ptr(likes),
		Comments: int64Ptr(comments),
		Shares:   int64Ptr(shares),
		Views:    int64Ptr(views),
	}

	if c.Hashtags, err = decodeStrings(hashtags); err != nil {
		return nil, err
	}
	if c.Mentions, err = decodeStrings(mentions); err != nil {
		return nil, err
	}
	if c.Hashtags == nil {
		c.Hashtags = []string{}
	}
	if c.Mentions == nil {
		c.Mentions = []string{}
	}

	if postTimestamp.Valid {
		if ts := parseTimestamp(postTimestamp.String); !ts.IsZero() {
			c.Timestamp = &ts
		}
	}

	if musicInfo.Valid && musicInfo.String != "" && musicInfo.String != "null" {
		var music scraper.MusicInfo
		if err := json.Unmarshal([]byte(musicInfo.String), &music); err != nil {
			return nil, fmt.Errorf("failed to decode music info: %w", err)
		}
		c.MusicInfo = &music
	}

	stored.CreatedAt = parseTimestamp(createdAt)
	stored.UpdatedAt = parseTimestamp(updatedAt)

	return &stored, nil
}
