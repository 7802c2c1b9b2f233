package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment
// variables. Only HTTP serving and the chat widget are unconditionally
// configured; enquiries (Postgres), Slack notifications and the Notion FAQ
// source switch on when their variables are present.
type Config struct {
	AppEnv   string
	HTTPPort string

	// Widget session settings.
	JWTSecret       string
	SessionTTL      time.Duration
	SessionCapacity int
	WidgetTokenTTL  time.Duration
	AllowedOrigins  []string
	RateLimitPerMin int
	RateLimitBurst  int

	// Chat persona and assistance API.
	AgentName             string
	TaskPrompt            string
	Greeting              string
	AgentPictureURL       string
	ClientPictureURL      string
	AssistanceURL         string
	AssistanceMaxInFlight int64

	// Google sign-in.
	GoogleClientID string

	// Enquiries (optional).
	DatabaseURL   string
	EncryptionKey []byte // Raw key bytes (32 for AES-256)

	// Notifications and FAQ (optional).
	SlackBotToken     string
	SlackChannelID    string
	NotionSecret      string
	NotionFAQDatabase string
	FAQCacheTTL       time.Duration
}

// LoadConfig loads configuration from environment variables. It looks for a
// .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		SessionTTL:      time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)),
		SessionCapacity: getEnvInt("SESSION_CAPACITY", 10000),
		AllowedOrigins:  splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),

		AgentName: getEnv("CHAT_AGENT_NAME", "Avery"),
		TaskPrompt: getEnv("CHAT_TASK_PROMPT",
			"You are a friendly course advisor for Aldercrest College. Answer questions from prospective students about programmes, fees, scholarships and student life."),
		Greeting: getEnv("CHAT_GREETING",
			"Hi! I'm Avery, the Aldercrest course advisor. Ask me anything about studying here."),
		AgentPictureURL:       getEnv("CHAT_AGENT_PICTURE_URL", "/static/img/agent.svg"),
		ClientPictureURL:      getEnv("CHAT_CLIENT_PICTURE_URL", "/static/img/visitor.svg"),
		AssistanceURL:         getEnv("ASSISTANCE_API_URL", ""),
		AssistanceMaxInFlight: int64(getEnvInt("ASSISTANCE_MAX_IN_FLIGHT", 8)),

		GoogleClientID: getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		SlackBotToken:     getEnv("SLACK_BOT_TOKEN", ""),
		SlackChannelID:    getEnv("SLACK_CHANNEL_ID", ""),
		NotionSecret:      getEnv("NOTION_INTEGRATION_SECRET", ""),
		NotionFAQDatabase: getEnv("NOTION_FAQ_DATABASE_ID", ""),
		FAQCacheTTL:       time.Minute * time.Duration(getEnvInt("FAQ_CACHE_TTL_MINUTES", 10)),
	}

	// The widget token should not outlive the session it unlocks.
	cfg.WidgetTokenTTL = cfg.SessionTTL

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	// The encryption key is only needed when enquiries are stored.
	if cfg.DatabaseURL != "" {
		keyHex := getEnv("ENCRYPTION_KEY", "")
		if keyHex == "" {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be set when DATABASE_URL is configured")
		}
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ENCRYPTION_KEY from hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (64 hex characters), got %d bytes", len(key))
		}
		cfg.EncryptionKey = key
	}

	log.Printf("Loaded config: Env=%s Port=%s SessionTTL=%s Assistance=%t Enquiries=%t Slack=%t NotionFAQ=%t",
		cfg.AppEnv, cfg.HTTPPort, cfg.SessionTTL,
		cfg.AssistanceURL != "", cfg.DatabaseURL != "",
		cfg.SlackBotToken != "", cfg.NotionSecret != "")

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable, falling back (with a
// warning) on absence or a bad value.
func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
