// Package extract asks a language model for the user's action items in a transcript.
package extract

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"action-items/internal/model"
)

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 2048
)

// Config holds everything an extraction client needs besides the API key.
type Config struct {
	Model              string
	BaseURL            string
	MaxTokens          int64
	HighPriorityAuthor string
	HTTPClient         *http.Client
	Now                func() time.Time
}

// Client extracts action items through the Anthropic Messages API.
type Client struct {
	api       anthropic.Client
	model     string
	maxTokens int64
	system    string
	now       func() time.Time
}

func New(apiKey string, cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	c := &Client{
		api:       anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		system:    systemPrompt(cfg.HighPriorityAuthor),
		now:       cfg.Now,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Extract returns the action items found in msgs. An empty msgs makes no call.
// A reply that is not valid JSON yields no items and no error; API failures
// are returned as is.
func (c *Client) Extract(ctx context.Context, label string, msgs []model.Message) ([]Candidate, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	prompt := userPrompt(label, buildTranscript(msgs), c.now())
	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: c.system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extract: messages.new: %w", err)
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	items, err := parseCandidates(text)
	if err != nil {
		log.Printf("[info] extract %q: no items, %v", label, err)
		return nil, nil
	}
	return items, nil
}
