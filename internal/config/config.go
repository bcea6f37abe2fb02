package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	APIToken            string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	Port                string
	Timezone            string
	GoogleClientID      string
	GoogleClientSecret  string
	SMTPHost            string
	SMTPPort            string
	SMTPUsername        string
	SMTPPassword        string
	SMTPFrom            string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("INBOXNUKE_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("INBOXNUKE_ENCRYPTION_KEY_BASE64"),
		APIToken:            os.Getenv("INBOXNUKE_API_TOKEN"),
		DBHost:              getEnvOrDefault("INBOXNUKE_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("INBOXNUKE_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("INBOXNUKE_DB_USER", "inboxnuke"),
		DBPassword:          os.Getenv("INBOXNUKE_DB_PASSWORD"),
		DBName:              getEnvOrDefault("INBOXNUKE_DB_NAME", "inboxnuke"),
		DBSSLMode:           getEnvOrDefault("INBOXNUKE_DB_SSLMODE", "disable"),
		Port:                getEnvOrDefault("PORT", "8080"),
		Timezone:            getEnvOrDefault("TZ", "UTC"),
		GoogleClientID:      os.Getenv("INBOXNUKE_GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("INBOXNUKE_GOOGLE_CLIENT_SECRET"),
		SMTPHost:            getEnvOrDefault("INBOXNUKE_SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:            getEnvOrDefault("INBOXNUKE_SMTP_PORT", "587"),
		SMTPUsername:        os.Getenv("INBOXNUKE_SMTP_USER"),
		SMTPPassword:        os.Getenv("INBOXNUKE_SMTP_PASSWORD"),
		SMTPFrom:            os.Getenv("INBOXNUKE_SMTP_FROM"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("INBOXNUKE_ENCRYPTION_KEY_BASE64 is required")
	}

	key, err := base64.StdEncoding.DecodeString(c.EncryptionKeyBase64)
	if err != nil {
		return fmt.Errorf("INBOXNUKE_ENCRYPTION_KEY_BASE64 is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("INBOXNUKE_ENCRYPTION_KEY_BASE64 must decode to 32 bytes, got %d", len(key))
	}

	if c.APIToken == "" {
		return fmt.Errorf("INBOXNUKE_API_TOKEN is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("INBOXNUKE_DB_PASSWORD is required")
	}

	if !isValidPort(c.DBPort) {
		return fmt.Errorf("INBOXNUKE_DB_PORT is not a valid port number: %s", c.DBPort)
	}

	if !isValidPort(c.Port) {
		return fmt.Errorf("PORT is not a valid port number: %s", c.Port)
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.DBUsername),
		url.QueryEscape(c.DBPassword),
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func isValidPort(port string) bool {
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
