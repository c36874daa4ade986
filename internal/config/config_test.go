package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	t.Run("Defaults", func(t *testing.T) {
		setEnv("FOODPLANNER_BASE_URL", "http://planner.test/")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.BaseURL != "http://planner.test" {
			t.Errorf("Expected trailing slash to be trimmed, got '%s'", cfg.BaseURL)
		}
		if cfg.CSRFCookieName != "csrftoken" {
			t.Errorf("Expected default cookie 'csrftoken', got '%s'", cfg.CSRFCookieName)
		}
		if cfg.CSRFHeaderName != "X-CSRFToken" {
			t.Errorf("Expected default header 'X-CSRFToken', got '%s'", cfg.CSRFHeaderName)
		}
		if cfg.DeleteURLTemplate != "http://planner.test/plannedrecipes/PLACEHOLDER/delete/" {
			t.Errorf("Unexpected default delete template '%s'", cfg.DeleteURLTemplate)
		}
		if cfg.ExtraDeleteURLTemplate != "http://planner.test/plannedextras/PLACEHOLDER/delete/" {
			t.Errorf("Unexpected default extra delete template '%s'", cfg.ExtraDeleteURLTemplate)
		}
		if cfg.RequestTimeout != 15*time.Second {
			t.Errorf("Expected default timeout 15s, got %s", cfg.RequestTimeout)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Errorf("Expected INFO level, got %s", cfg.LogLevel)
		}
		if cfg.TelegramEnabled() {
			t.Error("Expected Telegram to be disabled without a token")
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		setEnv("FOODPLANNER_BASE_URL", "http://planner.test")
		setEnv("FOODPLANNER_URL_PLACEHOLDER", "__ID__")
		setEnv("FOODPLANNER_DELETE_URL_TEMPLATE", "/plan/__ID__/delete/")
		setEnv("FOODPLANNER_EXTRA_DELETE_URL_TEMPLATE", "/extra/__ID__/delete/")
		setEnv("FOODPLANNER_REQUEST_TIMEOUT", "2s")
		setEnv("FOODPLANNER_LOG_LEVEL", "debug")
		setEnv("TELEGRAM_BOT_TOKEN", "token")
		setEnv("TELEGRAM_ALERT_CHAT_ID", "42")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DeleteURLTemplate != "/plan/__ID__/delete/" || cfg.URLPlaceholder != "__ID__" {
			t.Errorf("Unexpected template config: %s / %s", cfg.DeleteURLTemplate, cfg.URLPlaceholder)
		}
		if cfg.ExtraDeleteURLTemplate != "/extra/__ID__/delete/" {
			t.Errorf("Unexpected extra template '%s'", cfg.ExtraDeleteURLTemplate)
		}
		if cfg.RequestTimeout != 2*time.Second {
			t.Errorf("Expected timeout 2s, got %s", cfg.RequestTimeout)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Errorf("Expected DEBUG level, got %s", cfg.LogLevel)
		}
		if !cfg.TelegramEnabled() || cfg.TelegramAlertChatID != 42 {
			t.Errorf("Expected Telegram enabled for chat 42, got %d", cfg.TelegramAlertChatID)
		}
	})

	t.Run("MissingBaseURL", func(t *testing.T) {
		setEnv("FOODPLANNER_BASE_URL", "")
		os.Unsetenv("FOODPLANNER_BASE_URL")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing FOODPLANNER_BASE_URL, got nil")
		}
		expectedError := "FOODPLANNER_BASE_URL environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("InvalidTimeout", func(t *testing.T) {
		setEnv("FOODPLANNER_BASE_URL", "http://planner.test")
		setEnv("FOODPLANNER_REQUEST_TIMEOUT", "soon")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for an unparsable timeout, got nil")
		}
	})

	t.Run("TemplateWithoutPlaceholder", func(t *testing.T) {
		setEnv("FOODPLANNER_BASE_URL", "http://planner.test")

		setEnv("FOODPLANNER_URL_PLACEHOLDER", "")
		setEnv("FOODPLANNER_REQUEST_TIMEOUT", "")

		keys := []string{"FOODPLANNER_DELETE_URL_TEMPLATE", "FOODPLANNER_EXTRA_DELETE_URL_TEMPLATE"}
		for _, key := range keys {
			t.Run(key, func(t *testing.T) {
				for _, other := range keys {
					t.Setenv(other, "")
				}
				t.Setenv(key, "/plan/delete/")

				_, err := NewFromEnv()
				if err == nil {
					t.Fatal("Expected an error for a template without the placeholder, got nil")
				}
				if !strings.Contains(err.Error(), key) {
					t.Errorf("Expected error to name %s, got '%s'", key, err.Error())
				}
			})
		}
	})
}
