package database

import (
	"database/sql"
	"fmt"
)

var _ LogRepository = (*LogRepo)(nil)

// LogRepo is the append-only store of failed scrape and extraction attempts.
type LogRepo struct {
	db *DB
}

func NewLogRepository(db *DB) *LogRepo {
	return &LogRepo{db: db}
}

func (r *LogRepo) LogFailure(entry ScrapingLog) error {
	status := entry.Status
	if status == "" {
		status = ScrapeStatusFailed
	}

	var metadata, unavailable sql.NullString
	if entry.RequestMetadata != nil {
		encoded, err := encodeJSON(entry.RequestMetadata)
		if err != nil {
			return err
		}
		metadata = sql.NullString{String: encoded, Valid: true}
	}
	if entry.UnavailableFields != nil {
		encoded, err := encodeStrings(entry.UnavailableFields)
		if err != nil {
			return err
		}
		unavailable = sql.NullString{String: encoded, Valid: true}
	}

	var httpStatus sql.NullInt64
	if entry.HTTPStatusCode != nil {
		httpStatus = sql.NullInt64{Int64: int64(*entry.HTTPStatusCode), Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO scraping_logs (
			url, platform, status, scrape_duration_ms, http_status_code,
			error_message, error_stack, request_metadata, unavailable_fields,
			scraped_content_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.URL, entry.Platform, string(status), entry.ScrapeDurationMs, httpStatus,
		sql.NullString{String: entry.ErrorMessage, Valid: entry.ErrorMessage != ""},
		sql.NullString{String: entry.ErrorStack, Valid: entry.ErrorStack != ""},
		metadata, unavailable, nullInt64(entry.ScrapedContentID), nowTimestamp())
	if err != nil {
		return fmt.Errorf("failed to insert scraping log: %w", err)
	}

	return nil
}

func (r *LogRepo) GetFailureCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM scraping_logs WHERE status != ?`, string(ScrapeStatusSuccess)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scraping logs: %w", err)
	}
	return count, nil
}

// GetLogsForURL returns log entries for url, newest first.
func (r *LogRepo) GetLogsForURL(url string) ([]ScrapingLog, error) {
	rows, err := r.db.Query(`
		SELECT id, url, platform, status, COALESCE(scrape_duration_ms, 0),
		       COALESCE(error_message, ''), COALESCE(error_stack, ''),
		       unavailable_fields, scraped_content_id, created_at
		FROM scraping_logs
		WHERE url = ?
		ORDER BY id DESC
	`, url)
	if err != nil {
		return nil, fmt.Errorf("failed to query scraping logs: %w", err)
	}
	defer rows.Close()

	var logs []ScrapingLog
	for rows.Next() {
		var (
			entry       ScrapingLog
			status      string
			unavailable sql.NullString
			contentID   sql.NullInt64
			createdAt   string
		)
		err := rows.Scan(&entry.ID, &entry.URL, &entry.Platform, &status, &entry.ScrapeDurationMs,
			&entry.ErrorMessage, &entry.ErrorStack, &unavailable, &contentID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scraping log: %w", err)
		}
		entry.Status = ScrapeStatus(status)
		if entry.UnavailableFields, err = decodeStrings(unavailable); err != nil {
			return nil, err
		}
		entry.ScrapedContentID = int64Ptr(contentID)
		entry.CreatedAt = parseTimestamp(createdAt)
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scraping logs: %w", err)
	}

	return logs, nil
}
