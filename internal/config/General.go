package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment
// variables. These are populated at startup by the LoadConfig function.
var (
	// Chain is the chain identifier the agent scans (e.g. "eth").
	Chain string

	// ScanInterval is the pause between two scan cycles.
	ScanInterval time.Duration

	// TelegramBotToken is the bot token for operator notifications.
	// Optional: when empty, notifications fall back to the console.
	TelegramBotToken string
	// TelegramChatID is the chat the bot posts alerts to.
	TelegramChatID string
)

const (
	defaultChain               = "eth"
	defaultScanIntervalSeconds = 3600
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. Endpoint variables are required; notification
// variables are optional.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	Chain = getEnvOptional("CHAIN", defaultChain)

	intervalSeconds, err := getEnvAsIntOptional("SCAN_INTERVAL_SECONDS", defaultScanIntervalSeconds)
	if err != nil {
		return err
	}
	if intervalSeconds <= 0 {
		return errors.New("SCAN_INTERVAL_SECONDS must be positive")
	}
	ScanInterval = time.Duration(intervalSeconds) * time.Second

	TelegramBotToken = getEnvOptional("TELEGRAM_BOT_TOKEN", "")
	TelegramChatID = getEnvOptional("TELEGRAM_CHAT_ID", "")
	if TelegramBotToken == "" || TelegramChatID == "" {
		log.Warn().Msg("Telegram notifier not configured. Alerts will be printed to the console.")
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("Chain", Chain).
		Dur("ScanInterval", ScanInterval).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOptional retrieves a string environment variable with a fallback.
func getEnvOptional(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsIntOptional retrieves an environment variable as an int, falling
// back to a default when unset. Returns error if set but invalid.
func getEnvAsIntOptional(key string, fallback int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
