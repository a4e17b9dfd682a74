package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sessions
	SessionLifetime    time.Duration
	SessionTokenLength int
	ReaperInterval     time.Duration

	// Accounts
	MinPasswordLength int

	// Entries
	ScopeDeleteToOwner bool

	// Logging
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kakeibo.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kakeibo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "entry_events"),

		SessionLifetime:    getEnvDuration("SESSION_LIFETIME", time.Hour),
		SessionTokenLength: getEnvInt("SESSION_TOKEN_LENGTH", 100),
		ReaperInterval:     getEnvDuration("REAPER_INTERVAL", 60*time.Second),

		MinPasswordLength: getEnvInt("MIN_PASSWORD_LENGTH", 8),

		ScopeDeleteToOwner: getEnvBool("SCOPE_DELETE_TO_OWNER", true),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate SQLite configuration
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate session configuration
	if c.SessionLifetime < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session lifetime %v: must be at least 1 minute", c.SessionLifetime))
	} else if c.SessionLifetime > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session lifetime %v: must be at most 24 hours", c.SessionLifetime))
	}

	if c.SessionTokenLength < 32 {
		errors = append(errors, fmt.Sprintf("invalid session token length %d: must be at least 32", c.SessionTokenLength))
	} else if c.SessionTokenLength > 512 {
		errors = append(errors, fmt.Sprintf("invalid session token length %d: must be at most 512", c.SessionTokenLength))
	}

	if c.ReaperInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reaper interval %v: must be at least 1 second", c.ReaperInterval))
	} else if c.ReaperInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reaper interval %v: must be at most 24 hours", c.ReaperInterval))
	}

	if c.MinPasswordLength < 1 {
		errors = append(errors, fmt.Sprintf("invalid minimum password length %d: must be at least 1", c.MinPasswordLength))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
