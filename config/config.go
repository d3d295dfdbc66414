package config

import (
	"os"
	"strings"
)

// Config holds process-level settings read from the environment.
// Game tunables (player bounds, durations) live in settings.json and are
// served by the words package instead.
type Config struct {
	Addr             string
	AllowedOrigins   []string
	DataDir          string
	GinMode          string
	PrivateWordDeals bool
}

func Load() Config {
	cfg := Config{
		Addr:             ":3001",
		DataDir:          ".",
		PrivateWordDeals: true,
	}

	if addr, ok := os.LookupEnv("ADDR"); ok {
		cfg.Addr = addr
	}
	if origins, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
	if dir, ok := os.LookupEnv("DATA_DIR"); ok {
		cfg.DataDir = dir
	}
	cfg.GinMode = os.Getenv("GIN_MODE")

	// The original client expects everyone's word in the gameStarted
	// broadcast. Set BROADCAST_WORDS=true to restore that behaviour.
	if os.Getenv("BROADCAST_WORDS") == "true" {
		cfg.PrivateWordDeals = false
	}

	return cfg
}
