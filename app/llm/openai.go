package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGroqURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultGroqModel = "llama-3.3-70b-versatile"

	defaultHTTPTimeout = 60 * time.Second
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

var _ Client = (*OpenAIClient)(nil)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint in
// JSON mode. Groq is the default.
type OpenAIClient struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	retry      retryPolicy
}

type Option func(*OpenAIClient)

func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenAIClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *OpenAIClient) {
		c.retry.maxAttempts = attempts
	}
}

func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *OpenAIClient) {
		c.retry.baseDelay = baseDelay
		c.retry.maxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *OpenAIClient) {
		c.retry.sleeper = sleeper
	}
}

func NewOpenAIClient(cfg OpenAIConfig, opts ...Option) *OpenAIClient {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}

	client := &OpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *OpenAIClient) Provider() string {
	return ProviderGroq
}

func (c *OpenAIClient) ExtractRecipe(ctx context.Context, prompt string) (RecipeData, error) {
	var data RecipeData

	content, err := c.CompleteJSON(ctx, jsonSystemPrompt, prompt)
	if err != nil {
		return data, err
	}
	if err := DecodeLLMJSON(content, &data); err != nil {
		return data, fmt.Errorf("llm extract: parse payload: %w", err)
	}
	return data, nil
}

// CompleteJSON issues a JSON-only chat completion and returns the raw JSON content.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm complete: api key required")
	}

	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	var content string
	err := c.retry.do(ctx, func() error {
		completion, body, err := c.send(ctx, payload)
		if err != nil {
			return err
		}
		content = completion.content()
		if content == "" {
			return &emptyContentError{Snippet: summarizePayloadSnippet(string(body))}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	return content, nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r chatCompletionResponse) content() string {
	for _, choice := range r.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content
		}
	}
	return ""
}

type emptyContentError struct {
	Snippet string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("empty content (response_snippet=%s)", e.Snippet)
}

func (c *OpenAIClient) send(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse

	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, body, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}
