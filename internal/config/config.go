package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	keySlackToken         = "SLACK_BOT_TOKEN"
	keyAnthropicKey       = "ANTHROPIC_API_KEY"
	keyDatabaseURL        = "DATABASE_URL"
	keyHTTPAddr           = "HTTP_ADDR"
	keyHighPriorityAuthor = "HIGH_PRIORITY_AUTHOR"
	keyAnthropicModel     = "ANTHROPIC_MODEL"
	keyAnthropicBaseURL   = "ANTHROPIC_BASE_URL"
	keySlackAPIURL        = "SLACK_API_URL"
	keySyncInterval       = "SYNC_INTERVAL"
	keyTelegramToken      = "TELEGRAM_TOKEN"
	keyTelegramChatID     = "TELEGRAM_CHAT_ID"
	keyDigestAt           = "DIGEST_AT"
)

// Config keeps runtime settings for the service.
type Config struct {
	DatabaseURL        string
	HTTPAddr           string
	HighPriorityAuthor string
	AnthropicModel     string
	AnthropicBaseURL   string
	SlackAPIURL        string
	SyncInterval       time.Duration
	TelegramToken      string
	TelegramChatID     int64
	// DigestAt is an HH:MM local time for the daily Telegram digest; empty disables it.
	DigestAt           string

	v *viper.Viper
}

// Credentials are the two secrets a sync pass needs.
type Credentials struct {
	SlackToken   string
	AnthropicKey string
}

// Missing names the credentials that are not set.
func (c Credentials) Missing() []string {
	var missing []string
	if c.SlackToken == "" {
		missing = append(missing, keySlackToken)
	}
	if c.AnthropicKey == "" {
		missing = append(missing, keyAnthropicKey)
	}
	return missing
}

// Load reads configuration from environment variables and, when path is
// not empty, a YAML file. Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(keyDatabaseURL, "action_items.db")
	v.SetDefault(keyHTTPAddr, ":8080")
	v.SetDefault(keyHighPriorityAuthor, "Dhara Tanwani")
	v.SetDefault(keyAnthropicModel, "claude-sonnet-4-20250514")
	v.SetDefault(keySyncInterval, "0")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		DatabaseURL:        strings.TrimSpace(v.GetString(keyDatabaseURL)),
		HTTPAddr:           strings.TrimSpace(v.GetString(keyHTTPAddr)),
		HighPriorityAuthor: strings.TrimSpace(v.GetString(keyHighPriorityAuthor)),
		AnthropicModel:     strings.TrimSpace(v.GetString(keyAnthropicModel)),
		AnthropicBaseURL:   strings.TrimSpace(v.GetString(keyAnthropicBaseURL)),
		SlackAPIURL:        strings.TrimSpace(v.GetString(keySlackAPIURL)),
		TelegramToken:      strings.TrimSpace(v.GetString(keyTelegramToken)),
		DigestAt:           strings.TrimSpace(v.GetString(keyDigestAt)),
		v:                  v,
	}

	interval, err := parseInterval(v.GetString(keySyncInterval))
	if err != nil {
		return nil, err
	}
	cfg.SyncInterval = interval

	if raw := strings.TrimSpace(v.GetString(keyTelegramChatID)); raw != "" {
		chatID, err := parseChatID(raw)
		if err != nil {
			return nil, err
		}
		cfg.TelegramChatID = chatID
	}

	return cfg, nil
}

// Credentials re-reads the sync secrets so a changed environment is picked
// up by the next pass.
func (c *Config) Credentials() Credentials {
	return Credentials{
		SlackToken:   strings.TrimSpace(c.v.GetString(keySlackToken)),
		AnthropicKey: strings.TrimSpace(c.v.GetString(keyAnthropicKey)),
	}
}

// TelegramEnabled reports whether the bot has both a token and a chat.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// parseInterval accepts a Go duration or a bare number of minutes.
func parseInterval(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		d, err = time.ParseDuration(raw + "m")
	}
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", keySyncInterval, raw)
	}
	return d, nil
}

func parseChatID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s: invalid chat id %q", keyTelegramChatID, raw)
	}
	return id, nil
}
