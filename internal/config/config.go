package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the session API.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	EventChannel     string
	JWTSecret        string
	GradingURL       string
	GradingTimeout   time.Duration
	AutosaveTTL      time.Duration
	DefaultLanguage  string
	SubmitRateMax    int
	SubmitRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}
	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODESCREEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeScreen Session API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("event.channel", "codescreen")
	v.SetDefault("grading.timeout_ms", 30000)
	v.SetDefault("autosave.ttl", "24h")
	v.SetDefault("default.language", "python")
	v.SetDefault("submit.rate_max", 5)
	v.SetDefault("submit.rate_window", "10s")

	autosaveTTL, err := time.ParseDuration(v.GetString("autosave.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid autosave ttl: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("submit.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit rate window: %w", err)
	}

	timeoutMs := v.GetInt("grading.timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 30000
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventChannel:     v.GetString("event.channel"),
		JWTSecret:        v.GetString("jwt.secret"),
		GradingURL:       v.GetString("grading.url"),
		GradingTimeout:   time.Duration(timeoutMs) * time.Millisecond,
		AutosaveTTL:      autosaveTTL,
		DefaultLanguage:  strings.ToLower(v.GetString("default.language")),
		SubmitRateMax:    v.GetInt("submit.rate_max"),
		SubmitRateWindow: rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.GradingURL == "" {
		return Config{}, fmt.Errorf("grading service url must be provided")
	}

	return cfg, nil
}
