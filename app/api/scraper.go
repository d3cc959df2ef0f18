package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/recipe-comb/app/database"
	"github.com/lysyi3m/recipe-comb/app/metrics"
	"github.com/lysyi3m/recipe-comb/app/ratelimit"
	"github.com/lysyi3m/recipe-comb/app/scraper"
)

const (
	msgInvalidBody = "Invalid request body. Expected { url: string, force?: boolean }"
	msgRateLimited = "Rate limit exceeded. Please try again later."
	msgInvalidURL  = "Invalid URL format. Expected Instagram post/reel or TikTok video URL."
)

// Scrape handles POST /api/scraper: rate limit, classify, serve from cache
// unless forced, otherwise scrape, store and optionally extract a recipe.
func (h *Handler) Scrape(c *gin.Context) {
	start := time.Now()

	clientID := clientIdentifier(c)
	limit := h.checkRateLimit(c.Request.Context(), clientID)

	if !limit.Allowed {
		metrics.RecordRateLimited()
		c.Header("X-RateLimit-Remaining", "0")
		c.Header("X-RateLimit-Reset", limit.ResetString())
		c.JSON(http.StatusTooManyRequests, failed(msgRateLimited))
		return
	}

	c.Header("X-RateLimit-Remaining", strconv.Itoa(limit.Remaining))
	c.Header("X-RateLimit-Reset", limit.ResetString())

	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failed(msgInvalidBody))
		return
	}

	platform := scraper.Classify(req.URL)
	s, ok := h.scrapers.Get(platform)
	if !ok {
		c.JSON(http.StatusBadRequest, failed(msgInvalidURL))
		return
	}

	if !req.Force {
		if resp, hit := h.fromCache(req.URL); hit {
			metrics.RecordScrape(string(platform), metrics.OutcomeCached, 0)
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	content, err := s.Scrape(c.Request.Context(), req.URL)
	if err == nil && content == nil {
		err = scraper.ErrNoData
	}
	if err != nil {
		metrics.RecordScrape(string(platform), metrics.OutcomeFailed, time.Since(start))
		h.logFailure(c, req.URL, platform, start, err, limit, nil, nil)
		c.JSON(http.StatusInternalServerError, failed("Failed to scrape URL: "+err.Error()))
		return
	}
	metrics.RecordScrape(string(platform), metrics.OutcomeScraped, time.Since(start))

	if len(content.UnavailableFields) > 0 {
		slog.Debug("Scraped with missing fields", "url", req.URL, "fields", content.UnavailableFields)
	}

	contentID, err := h.contentRepo.UpsertContent(content)
	if err != nil {
		h.logFailure(c, req.URL, platform, start, err, limit, content.UnavailableFields, nil)
		c.JSON(http.StatusInternalServerError, failed("Failed to scrape URL: "+err.Error()))
		return
	}

	resp := ScrapeResponse{Success: true, Data: content}

	if h.shouldExtract(req) {
		result := h.workflow.Run(c.Request.Context(), content, contentID, userID(c))
		resp.TranscriptionStatus = string(result.TranscriptionStatus)

		if !result.Success {
			cause := result.Err
			if cause == nil {
				cause = errors.New(result.Error)
			}
			h.logFailure(c, req.URL, platform, start, cause, limit, content.UnavailableFields, &contentID)

			msg := "Failed to extract recipe: " + result.Error
			c.JSON(http.StatusInternalServerError, ScrapeResponse{
				Error:               &msg,
				TranscriptionStatus: resp.TranscriptionStatus,
			})
			return
		}

		resp.RecipeID = result.RecipeID
		slog.Info("Recipe ready", "url", req.URL, "recipe_id", result.RecipeID,
			"transcription", result.TranscriptionStatus, "duration_ms", result.ProcessingTimeMs)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) shouldExtract(req scrapeRequest) bool {
	if h.workflow == nil {
		return false
	}
	return req.Extract == nil || *req.Extract
}

// fromCache looks up stored content. Lookup errors are logged and treated as a miss.
func (h *Handler) fromCache(url string) (ScrapeResponse, bool) {
	stored, err := h.contentRepo.GetContentByURL(url)
	if err != nil {
		slog.Error("Cache lookup error", "url", url, "error", err)
		return ScrapeResponse{}, false
	}
	if stored == nil {
		return ScrapeResponse{}, false
	}

	resp := ScrapeResponse{Success: true, Data: &stored.Content}

	if existing, err := h.recipeRepo.GetRecipeByScrapedContentID(stored.ID); err != nil {
		slog.Warn("Recipe lookup error", "content_id", stored.ID, "error", err)
	} else if existing != nil {
		resp.RecipeID = existing.ID
	}

	return resp, true
}

// checkRateLimit fails open when the store is unreachable.
func (h *Handler) checkRateLimit(ctx context.Context, clientID string) ratelimit.Result {
	result, err := h.limiter.Check(ctx, clientID)
	if err != nil {
		slog.Error("Rate limit check failed, allowing request", "client", clientID, "error", err)
		return ratelimit.Result{Allowed: true, ResetAt: time.Now().Add(h.limiter.Window())}
	}
	return result
}

func (h *Handler) logFailure(c *gin.Context, url string, platform scraper.Platform, start time.Time,
	cause error, limit ratelimit.Result, unavailable []string, contentID *int64) {
	ip := clientIdentifier(c)
	userAgent := c.Request.UserAgent()
	remaining := limit.Remaining
	reset := limit.ResetString()

	if unavailable == nil {
		unavailable = []string{}
	}

	entry := database.ScrapingLog{
		URL:              url,
		Platform:         string(platform),
		Status:           database.ScrapeStatusFailed,
		ScrapeDurationMs: time.Since(start).Milliseconds(),
		ErrorMessage:     cause.Error(),
		ErrorStack:       errorChain(cause),
		RequestMetadata: &database.RequestMetadata{
			IP:                 &ip,
			UserAgent:          nonEmpty(userAgent),
			RateLimitRemaining: &remaining,
			RateLimitReset:     &reset,
		},
		UnavailableFields: unavailable,
		ScrapedContentID:  contentID,
	}
	if status := scraper.HTTPStatus(cause); status > 0 {
		entry.HTTPStatusCode = &status
	}

	if err := h.logRepo.LogFailure(entry); err != nil {
		slog.Error("Failed to log scraping error", "url", url, "error", err)
	}
}

// clientIdentifier keys rate limiting: first X-Forwarded-For hop, then
// X-Real-IP, then the connection address.
func clientIdentifier(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return realIP
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// errorChain renders each wrapped layer of err on its own line.
func errorChain(err error) string {
	var lines []string
	for depth := 0; err != nil; depth++ {
		lines = append(lines, fmt.Sprintf("%d: %T: %v", depth, err, err))
		err = errors.Unwrap(err)
	}
	return strings.Join(lines, "\n")
}

func failed(msg string) ScrapeResponse {
	return ScrapeResponse{Error: &msg}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
