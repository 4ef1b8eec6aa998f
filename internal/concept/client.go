// Package concept is a rate-limited HTTP client for the external concept
// service, an Anthropic-style messages API used to generate edge labels,
// merge suggestions, similarity classifications and concept expansions.
// All calls are cancellable through their context; a session dragging a
// half-built edge away cancels the label request it no longer needs.
package concept

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the default messages API base URL.
	BaseURL = "https://api.anthropic.com"

	// DefaultChatModel handles conversational calls with concept extraction.
	DefaultChatModel = "claude-sonnet-4-20250514"

	// DefaultTaskModel handles short structured tasks (labels, merges,
	// classification).
	DefaultTaskModel = "claude-haiku-4-5-20251001"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit is the request rate cap in requests per second.
	RateLimit = 5.0

	apiVersion   = "2023-06-01"
	messagesPath = "/v1/messages"
)

// Client is a rate-limited HTTP client for the concept service.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	chatModel  string
	taskModel  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithModels overrides the chat and task models.
func WithModels(chat, task string) ClientOption {
	return func(c *Client) {
		if chat != "" {
			c.chatModel = chat
		}
		if task != "" {
			c.taskModel = task
		}
	}
}

// NewClient creates a new concept service client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		chatModel:  DefaultChatModel,
		taskModel:  DefaultTaskModel,
	}

	// Check for API key in environment
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []ChatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// complete sends one messages request and returns the concatenated text
// content of the response.
func (c *Client) complete(ctx context.Context, model string, maxTokens int, system string, messages []ChatMessage) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", apiVersion)
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		if resp.StatusCode >= 400 {
			return "", &APIError{StatusCode: resp.StatusCode, Type: "api_error", Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if mr.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Type: mr.Error.Type, Message: mr.Error.Message}
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Type: "api_error", Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var text string
	for _, block := range mr.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("%w: no text content", ErrInvalidResponse)
	}
	return text, nil
}

// completeJSON sends a task request whose response must be JSON. A response
// that fails to decode is retried once with a fresh request before giving up.
func (c *Client) completeJSON(ctx context.Context, maxTokens int, system, user string, out any) error {
	messages := []ChatMessage{{Role: "user", Content: user}}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, err := c.complete(ctx, c.taskModel, maxTokens, system, messages)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(cleanJSON(text)), out); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: decoding task result: %v", ErrInvalidResponse, lastErr)
}

// cleanJSON strips markdown code fences that models sometimes wrap around
// JSON despite instructions.
func cleanJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
