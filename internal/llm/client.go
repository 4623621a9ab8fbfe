// Package llm is the remote advice generator, speaking the OpenAI chat
// completions API. Any compatible endpoint works, including Gemini's
// OpenAI compatibility layer, by setting BaseURL.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultRateLimit = 2.0 // requests per second
	defaultBurst     = 4
)

// Prompt is one generation request.
type Prompt struct {
	System string
	User   string
}

func (p Prompt) messages() []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})
}

// Config configures a Client.
type Config struct {
	APIKey  string `json:"-"`
	Model   string
	BaseURL string

	// HTTPClient overrides the transport; tests point it at httptest servers.
	HTTPClient *http.Client

	// RateLimit is requests per second; zero uses the default.
	RateLimit float64
	Burst     int
}

// Client generates text through an OpenAI-compatible endpoint.
// Each call makes exactly one request; retry policy belongs to the caller.
type Client struct {
	api     *openai.Client
	model   string
	limiter *rate.Limiter
}

// New creates a Client. An API key is required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &Error{Kind: KindAuth, Err: errors.New("api key required")}
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	return &Client{
		api:     openai.NewClientWithConfig(oc),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate returns the complete response text.
func (c *Client) Generate(ctx context.Context, p Prompt) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{Kind: KindTransient, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: p.messages(),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", malformed("response has no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", malformed("response content is empty")
	}
	return text, nil
}

// GenerateStream streams the response, calling onPartial with the full
// accumulated text each time it grows. It returns the final text. When the
// stream breaks after some output, the partial text is returned alongside
// the error.
func (c *Client) GenerateStream(ctx context.Context, p Prompt, onPartial func(string)) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{Kind: KindTransient, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: p.messages(),
		Stream:   true,
	})
	if err != nil {
		return "", classify(err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return full.String(), classify(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onPartial != nil {
			onPartial(full.String())
		}
	}

	if strings.TrimSpace(full.String()) == "" {
		return "", malformed("stream produced no content")
	}
	return full.String(), nil
}
