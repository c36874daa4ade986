package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	defaultCSRFCookie     = "csrftoken"
	defaultCSRFHeader     = "X-CSRFToken"
	defaultURLPlaceholder = "PLACEHOLDER"
	defaultRequestTimeout = 15 * time.Second
)

// Config holds the configuration for the page client.
type Config struct {
	BaseURL       string
	GroceryListID string

	// CSRF
	CSRFCookieName string
	CSRFHeaderName string

	// DeleteURLTemplate and ExtraDeleteURLTemplate are used for planned
	// recipes and planned extras that arrive without a delete_url.
	// URLPlaceholder inside them is replaced by the record id at render time.
	DeleteURLTemplate      string
	ExtraDeleteURLTemplate string
	URLPlaceholder         string

	RequestTimeout time.Duration
	DatabasePath   string
	LogLevel       slog.Level

	// Telegram Config (optional, failure notices go to the log otherwise)
	TelegramBotToken    string
	TelegramAlertChatID int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	baseURL := strings.TrimRight(os.Getenv("FOODPLANNER_BASE_URL"), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("FOODPLANNER_BASE_URL environment variable not set")
	}

	csrfCookie := os.Getenv("FOODPLANNER_CSRF_COOKIE")
	if csrfCookie == "" {
		csrfCookie = defaultCSRFCookie
	}

	csrfHeader := os.Getenv("FOODPLANNER_CSRF_HEADER")
	if csrfHeader == "" {
		csrfHeader = defaultCSRFHeader
	}

	placeholder := os.Getenv("FOODPLANNER_URL_PLACEHOLDER")
	if placeholder == "" {
		placeholder = defaultURLPlaceholder
	}

	deleteTemplate, err := urlTemplate("FOODPLANNER_DELETE_URL_TEMPLATE", baseURL+"/plannedrecipes/"+placeholder+"/delete/", placeholder)
	if err != nil {
		return nil, err
	}
	extraDeleteTemplate, err := urlTemplate("FOODPLANNER_EXTRA_DELETE_URL_TEMPLATE", baseURL+"/plannedextras/"+placeholder+"/delete/", placeholder)
	if err != nil {
		return nil, err
	}

	timeout := defaultRequestTimeout
	if raw := os.Getenv("FOODPLANNER_REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid FOODPLANNER_REQUEST_TIMEOUT %q: %w", raw, err)
		}
		timeout = d
	}

	var level slog.Level
	if raw := os.Getenv("FOODPLANNER_LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid FOODPLANNER_LOG_LEVEL %q: %w", raw, err)
		}
	}

	var alertChatID int64
	if raw := os.Getenv("TELEGRAM_ALERT_CHAT_ID"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &alertChatID); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALERT_CHAT_ID %q: %w", raw, err)
		}
	}

	return &Config{
		BaseURL:                baseURL,
		GroceryListID:          os.Getenv("FOODPLANNER_GROCERY_LIST_ID"),
		CSRFCookieName:         csrfCookie,
		CSRFHeaderName:         csrfHeader,
		DeleteURLTemplate:      deleteTemplate,
		ExtraDeleteURLTemplate: extraDeleteTemplate,
		URLPlaceholder:         placeholder,
		RequestTimeout:         timeout,
		DatabasePath:           os.Getenv("FOODPLANNER_DATABASE_PATH"),
		LogLevel:               level,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAlertChatID:    alertChatID,
	}, nil
}

// TelegramEnabled reports whether failure notices should also go to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAlertChatID != 0
}

// urlTemplate reads a delete URL template. Without the placeholder every
// record would share one endpoint, so such a template is rejected.
func urlTemplate(key, fallback, placeholder string) (string, error) {
	template := os.Getenv(key)
	if template == "" {
		return fallback, nil
	}
	if !strings.Contains(template, placeholder) {
		return "", fmt.Errorf("invalid %s %q: missing placeholder %q", key, template, placeholder)
	}
	return template, nil
}
