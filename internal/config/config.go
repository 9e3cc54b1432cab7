// Package config holds runtime configuration read from the environment.
// cmd loads a .env file first (godotenv), so local development works without
// exporting anything.
package config

import "os"

type Config struct {
	Port        string
	PostgresDSN string
	RedisAddr   string
	RedisPass   string
	JWTSecret   string
}

func Load() Config {
	return Config{
		Port:        getenv("PORT", "8080"),
		PostgresDSN: getenv("POSTGRES_DSN", "host=localhost user=user password=password dbname=talklink port=5432 sslmode=disable"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   os.Getenv("REDIS_PASS"),
		JWTSecret:   getenv("JWT_SECRET", "dev-only-secret"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
