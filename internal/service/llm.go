package service

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

	"github.com/sirupsen/logrus"
)

// ErrProviderFailure wraps every error caused by the model provider
var ErrProviderFailure = errors.New("model provider failure")

// ImageURL points at an image, usually a base64 data URL
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one part of a multimodal message
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// Message represents a message in the chat. Content is either a string or a []ContentPart.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ChatRequest represents a request to an OpenAI compatible chat completions API
type ChatRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Temperature    float64           `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Completer sends a chat request and returns the text of the first choice
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatClient talks to the chat completions endpoint
type ChatClient struct {
	apiKey     string
	apiURL     string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	log        logrus.FieldLogger
}

// NewChatClient creates a client for apiURL. timeout bounds every single attempt.
func NewChatClient(apiKey, apiURL string, timeout time.Duration, log logrus.FieldLogger) *ChatClient {
	return &ChatClient{
		apiKey:     apiKey,
		apiURL:     apiURL,
		client:     &http.Client{Timeout: timeout},
		maxRetries: 3,
		retryDelay: time.Second,
		log:        log.WithField("component", "chat"),
	}
}

// Complete sends req, retrying transport failures, 429 and 5xx answers
func (c *ChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		content, retry, err := c.completeAttempt(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err

		logger := c.log.WithFields(logrus.Fields{"attempt": attempt, "model": req.Model})
		if !retry || attempt == c.maxRetries {
			logger.WithError(err).Warn("chat completion failed")
			break
		}
		logger.WithError(err).Info("chat completion attempt failed, retrying")

		// Wait before retry
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrProviderFailure, ctx.Err())
		case <-time.After(time.Duration(attempt) * c.retryDelay):
		}
	}

	return "", fmt.Errorf("%w: %v", ErrProviderFailure, lastErr)
}

// completeAttempt performs a single request and reports whether a failure is worth retrying
func (c *ChatClient) completeAttempt(ctx context.Context, req ChatRequest) (string, bool, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retry, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", false, fmt.Errorf("no choices in API response")
	}

	return result.Choices[0].Message.Content, false, nil
}

// extractJSON strips markdown code fences models like to wrap JSON answers in
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag, e.g. ```json
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
