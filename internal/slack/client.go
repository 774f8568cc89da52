// Package slack reads conversations, history and user names from a Slack workspace.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	slackapi "github.com/slack-go/slack"

	"action-items/internal/model"
)

const (
	conversationTypesPublic  = "public_channel"
	conversationTypesPrivate = "private_channel"
	conversationTypesIM      = "im"
	conversationTypesMpIM    = "mpim"
	listPageSize             = 200
)

// APIError is a Slack response that carried ok=false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

// Client wraps the Slack Web API for a single bot token.
type Client struct {
	api *slackapi.Client
}

type options struct {
	apiURL     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*options)

// WithAPIURL points the client at another Web API base URL, e.g. a test server.
func WithAPIURL(u string) Option {
	return func(o *options) { o.apiURL = u }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func New(token string, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var apiOpts []slackapi.Option
	if o.apiURL != "" {
		u := o.apiURL
		if u[len(u)-1] != '/' {
			u += "/"
		}
		apiOpts = append(apiOpts, slackapi.OptionAPIURL(u))
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, slackapi.OptionHTTPClient(o.httpClient))
	}

	return &Client{api: slackapi.New(token, apiOpts...)}
}

// ListConversations pages through every non-archived channel, private
// channel, DM and group DM visible to the token.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var out []model.Conversation
	cursor := ""
	for {
		channels, next, err := c.api.GetConversationsContext(ctx, &slackapi.GetConversationsParameters{
			Cursor:          cursor,
			ExcludeArchived: true,
			Limit:           listPageSize,
			Types: []string{
				conversationTypesPublic,
				conversationTypesPrivate,
				conversationTypesIM,
				conversationTypesMpIM,
			},
		})
		if err != nil {
			return nil, wrapErr("conversations.list", err)
		}

		for _, ch := range channels {
			out = append(out, model.Conversation{
				ID:        ch.ID,
				Name:      ch.Name,
				IsChannel: ch.IsChannel,
				IsIM:      ch.IsIM,
				IsMpIM:    ch.IsMpIM,
				IsPrivate: ch.IsPrivate,
				User:      ch.User,
			})
		}

		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

// History returns at most limit recent text messages not older than oldest.
func (c *Client) History(ctx context.Context, conversationID string, limit int, oldest time.Time) ([]model.Message, error) {
	params := &slackapi.GetConversationHistoryParameters{
		ChannelID: conversationID,
		Limit:     limit,
	}
	if !oldest.IsZero() {
		params.Oldest = strconv.FormatInt(oldest.Unix(), 10)
	}

	resp, err := c.api.GetConversationHistoryContext(ctx, params)
	if err != nil {
		return nil, wrapErr("conversations.history", err)
	}

	var out []model.Message
	for _, m := range resp.Messages {
		if m.Type != "message" || m.Text == "" {
			continue
		}
		out = append(out, model.Message{
			User:            m.User,
			Text:            m.Text,
			Timestamp:       m.Timestamp,
			ThreadTimestamp: m.ThreadTimestamp,
		})
	}
	return out, nil
}

// ResolveDisplayNames looks each distinct id up once. A failed lookup maps the
// id to itself; errors are logged, never returned.
func (c *Client) ResolveDisplayNames(ctx context.Context, userIDs []string) map[string]string {
	names := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, seen := names[id]; seen {
			continue
		}

		user, err := c.api.GetUserInfoContext(ctx, id)
		switch {
		case err != nil:
			log.Printf("[warn] resolve user %s: %v", id, wrapErr("users.info", err))
			names[id] = id
		case user.RealName != "":
			names[id] = user.RealName
		case user.Name != "":
			names[id] = user.Name
		default:
			names[id] = id
		}
	}
	return names
}

func wrapErr(method string, err error) error {
	var slackErr slackapi.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return &APIError{Method: method, Code: slackErr.Err}
	}
	return fmt.Errorf("slack %s: %w", method, err)
}
