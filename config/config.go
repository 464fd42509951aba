package config

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"os"
)

type Config struct {
	ServerPort    string
	DBPath        string
	SessionSecret string
}

func Load() *Config {
	return &Config{
		ServerPort:    envOr("BSHIPS_ADDR", ":8080"),
		DBPath:        envOr("BSHIPS_DB", "./bships.db"),
		SessionSecret: sessionSecret(),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// sessionSecret prefers a configured secret so cookies survive restarts;
// otherwise a fresh one is generated and all prior sessions are invalidated.
func sessionSecret() string {
	if v := os.Getenv("BSHIPS_SESSION_SECRET"); v != "" {
		return v
	}

	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatal("Failed to generate session secret:", err)
	}
	return base64.StdEncoding.EncodeToString(bytes)
}
