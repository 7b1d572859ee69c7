// Package llm generates Beancount entries from natural-language prompts
// using the Gemini API. Responses are strict JSON; the package owns the
// system prompt, response parsing, and retry policy.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultMaxRetries = 3

// ClientConfig represents the configuration for the generation client.
type ClientConfig struct {
	APIKey     string
	Model      string
	MaxRetries int // Default: 3
}

// Client generates accounting entries through the Gemini API.
type Client struct {
	genai      *genai.Client
	model      string
	maxRetries int
	logger     *slog.Logger
}

// NewClient creates a new generation client.
func NewClient(ctx context.Context, config ClientConfig, logger *slog.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		genai:      client,
		model:      config.Model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// GenerateEntries asks the model for Beancount entries matching the
// prompt. Empty responses and malformed JSON are retried with exponential
// backoff; a response carrying only a summary is passed through so the
// user sees why no entries could be produced.
func (c *Client) GenerateEntries(ctx context.Context, prompt string) (*Result, error) {
	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: systemPrompt},
				{Text: prompt},
			},
		},
	}
	return c.generate(ctx, contents)
}

// GenerateText runs one generation over caller-assembled content parts,
// used for statement files sent as inline data, and returns the raw
// response text. Transport errors and empty responses are retried.
func (c *Client) GenerateText(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: parts,
		},
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
		if err != nil {
			lastErr = fmt.Errorf("generation request failed: %w", err)
			c.logger.Warn("generation attempt failed", "attempt", attempt, "error", err)
		} else if text := resp.Text(); strings.TrimSpace(text) == "" {
			lastErr = fmt.Errorf("model response is empty")
			c.logger.Warn("empty generation result", "attempt", attempt)
		} else {
			return text, nil
		}

		if attempt < c.maxRetries {
			if err := c.backoff(ctx, attempt); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
		if err != nil {
			lastErr = fmt.Errorf("generation request failed: %w", err)
			c.logger.Warn("generation attempt failed", "attempt", attempt, "error", err)
		} else {
			result, parseErr := parseResult(resp.Text())
			if parseErr != nil {
				lastErr = parseErr
				c.logger.Warn("generation response unusable", "attempt", attempt, "error", parseErr)
			} else {
				if len(result.Entries) == 0 && result.Summary == "" {
					lastErr = fmt.Errorf("model returned neither entries nor summary")
					c.logger.Warn("empty generation result", "attempt", attempt)
				} else {
					return result, nil
				}
			}
		}

		if attempt < c.maxRetries {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("generation failed after %d attempts: %w", c.maxRetries, lastErr)
}

// backoff waits 1s, 2s, 4s... between attempts, honoring cancellation.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	wait := time.Duration(1<<(attempt-1)) * time.Second
	c.logger.Info("retrying generation", "attempt", attempt+1, "wait", wait)
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
