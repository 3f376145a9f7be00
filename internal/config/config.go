package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	JWTSecret       string
	RubricCacheTTL  time.Duration
	MustGrade       int
	MustBeGradedBy  int
	ScoreEventTopic string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PEERGRADE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PeerGrade API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("rubric.cache_ttl", "1h")
	v.SetDefault("must.grade", 5)
	v.SetDefault("must.be_graded_by", 3)
	v.SetDefault("score.event_topic", "peergrade:scores")

	ttlString := v.GetString("rubric.cache_ttl")
	if ttlString == "" {
		ttlString = "1h"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rubric cache ttl: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		JWTSecret:       v.GetString("jwt.secret"),
		RubricCacheTTL:  ttl,
		MustGrade:       v.GetInt("must.grade"),
		MustBeGradedBy:  v.GetInt("must.be_graded_by"),
		ScoreEventTopic: v.GetString("score.event_topic"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MustGrade <= 0 || cfg.MustBeGradedBy <= 0 {
		return Config{}, fmt.Errorf("grading requirements must be positive")
	}

	if cfg.MustGrade < cfg.MustBeGradedBy {
		return Config{}, fmt.Errorf("must_grade (%d) cannot be lower than must_be_graded_by (%d)", cfg.MustGrade, cfg.MustBeGradedBy)
	}

	return cfg, nil
}
