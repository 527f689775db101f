package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the interview backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string
	TokenTTL         time.Duration

	LLMMode       string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	FeedbackModel string

	DatabaseURL string
	DataDir     string
	PromptsDir  string

	DefaultInterviewMinutes int
	ConclusionGraceSeconds  int
	HeartbeatInterval       time.Duration
	DedupeWindow            time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "prepdeck"),
		AllowAnyOrigin:   false,
		LiveKitURL:       stringsTrimSpace("LIVEKIT_URL"),
		LiveKitAPIKey:    stringsTrimSpace("LIVEKIT_API_KEY"),
		LiveKitAPISecret: stringsTrimSpace("LIVEKIT_API_SECRET"),
		LLMMode:          envOrDefault("LLM_MODE", "auto"),
		OpenAIAPIKey:     stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		FeedbackModel:    envOrDefault("FEEDBACK_MODEL", "gpt-4o-mini"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		DataDir:          stringsTrimSpace("APP_DATA_DIR"),
		PromptsDir:       envOrDefault("APP_PROMPTS_DIR", "prompts"),

		ShutdownTimeout: 15 * time.Second,
		TokenTTL:        2 * time.Hour,

		DefaultInterviewMinutes: 30,
		ConclusionGraceSeconds:  45,
		HeartbeatInterval:       10 * time.Second,
		DedupeWindow:            5 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenTTL, err = durationFromEnv("APP_TOKEN_TTL", cfg.TokenTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.HeartbeatInterval, err = durationFromEnv("APP_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.DedupeWindow, err = durationFromEnv("APP_DEDUPE_WINDOW", cfg.DedupeWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultInterviewMinutes, err = intFromEnv("APP_DEFAULT_INTERVIEW_MINUTES", cfg.DefaultInterviewMinutes)
	if err != nil {
		return Config{}, err
	}
	cfg.ConclusionGraceSeconds, err = intFromEnv("APP_CONCLUSION_GRACE_SECONDS", cfg.ConclusionGraceSeconds)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.DefaultInterviewMinutes < 1 || cfg.DefaultInterviewMinutes > 120 {
		return Config{}, fmt.Errorf("APP_DEFAULT_INTERVIEW_MINUTES must be between 1 and 120")
	}
	if cfg.ConclusionGraceSeconds < 10 {
		return Config{}, fmt.Errorf("APP_CONCLUSION_GRACE_SECONDS must be at least 10")
	}
	if cfg.HeartbeatInterval < time.Second {
		return Config{}, fmt.Errorf("APP_HEARTBEAT_INTERVAL must be at least 1s")
	}
	if cfg.DedupeWindow <= 0 {
		return Config{}, fmt.Errorf("APP_DEDUPE_WINDOW must be positive")
	}
	if cfg.TokenTTL < time.Minute {
		return Config{}, fmt.Errorf("APP_TOKEN_TTL must be at least 1m")
	}

	return cfg, nil
}

// SigningConfigured reports whether room access tokens can be minted.
func (c Config) SigningConfigured() bool {
	return c.LiveKitAPIKey != "" && c.LiveKitAPISecret != "" && c.LiveKitURL != ""
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
