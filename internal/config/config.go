package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	IMAPHost     string
	IMAPPort     string
	IMAPUseTLS   bool
	SMTPHost     string
	SMTPPort     string
	EmailAddress string
	Password     string
	RulesDBPath  string
	ChunkSize    int
	ChunkDelay   time.Duration
	TrashFolder  string
	SpamFolder   string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("BRIDGEMAIL_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:  env,
		IMAPHost:     getEnvOrDefault("BRIDGE_IMAP_HOST", "127.0.0.1"),
		IMAPPort:     getEnvOrDefault("BRIDGE_IMAP_PORT", "1143"),
		IMAPUseTLS:   getEnvOrDefault("BRIDGEMAIL_IMAP_TLS", "false") == "true",
		SMTPHost:     getEnvOrDefault("BRIDGE_SMTP_HOST", "127.0.0.1"),
		SMTPPort:     getEnvOrDefault("BRIDGE_SMTP_PORT", "1025"),
		EmailAddress: os.Getenv("BRIDGE_EMAIL"),
		Password:     os.Getenv("BRIDGE_PASSWORD"),
		RulesDBPath:  getEnvOrDefault("BRIDGEMAIL_RULES_DB", "bridgemail-rules.db"),
		ChunkSize:    getEnvIntOrDefault("BRIDGEMAIL_CHUNK_SIZE", 50),
		ChunkDelay:   time.Duration(getEnvIntOrDefault("BRIDGEMAIL_CHUNK_DELAY_MS", 200)) * time.Millisecond,
		TrashFolder:  getEnvOrDefault("BRIDGEMAIL_TRASH_FOLDER", "Trash"),
		SpamFolder:   getEnvOrDefault("BRIDGEMAIL_SPAM_FOLDER", "Spam"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EmailAddress == "" {
		return fmt.Errorf("BRIDGE_EMAIL is required")
	}

	if c.Password == "" {
		return fmt.Errorf("BRIDGE_PASSWORD is required")
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("BRIDGEMAIL_CHUNK_SIZE must be positive")
	}

	return nil
}

// IMAPAddress returns the host:port pair for the bridge's IMAP endpoint.
func (c *Config) IMAPAddress() string {
	return c.IMAPHost + ":" + c.IMAPPort
}

// SMTPAddress returns the host:port pair for the bridge's SMTP endpoint.
func (c *Config) SMTPAddress() string {
	return c.SMTPHost + ":" + c.SMTPPort
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
