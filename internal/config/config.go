package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string
	Env  string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	// Mines game tuning. GridSize is a fixed constant of the game
	// configuration; verifiers depend on it, so it is not overridable
	// per session. The house edge lives in the fair package for the
	// same reason.
	GridSize int
	MinStake int64
	MaxStake int64

	SessionTTL      time.Duration
	StaleSessionAge time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),
		JWTSecret: getEnv("JWT_SECRET", ""),

		GridSize: 25,
		MinStake: 10,
		MaxStake: 100000,

		SessionTTL:      7 * 24 * time.Hour,
		StaleSessionAge: 30 * time.Minute,
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %v", err)
	}
	cfg.RedisDB = db

	if cfg.Env == "production" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
