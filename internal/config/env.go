package config

import (
	"os"
	"strconv"
	"strings"
)

// LoadFromEnv applies environment overrides to cfg
func LoadFromEnv(cfg *Config) {
	if dir := os.Getenv("LOADCOMPARE_RESULTS_DIR"); dir != "" {
		cfg.ResultsDir = dir
	}

	if logLevel := os.Getenv("LOADCOMPARE_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// PORT is honored for compatibility, LOADCOMPARE_PORT wins
	for _, key := range []string{"PORT", "LOADCOMPARE_PORT"} {
		if port := os.Getenv(key); port != "" {
			if p, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = p
			}
		}
	}

	if targets := os.Getenv("LOADCOMPARE_TARGETS"); targets != "" {
		cfg.Targets = splitList(targets)
	}
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
