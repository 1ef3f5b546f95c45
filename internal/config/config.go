package config

import (
	"os"
	"time"
)

type Config struct {
	// Path to the backend provisioning file. It may not exist yet at
	// startup; the loader waits for it to appear.
	BackendConfigPath string

	// Local cache storage. Bolt file by default, Redis when an address
	// is given, in-memory when both are empty.
	CachePath     string
	RedisAddr     string
	RedisPassword string

	// LLM gateway. AI features run degraded when no key is set.
	OpenRouterAPIKey      string
	OpenRouterBaseURL     string
	OpenRouterModel       string
	OpenRouterBackupModel string

	// Page paths the guard redirects between.
	HomePath string
	AuthPath string

	// Delay between a successful sign-in and navigation, so the
	// success indication can be perceived.
	SignInSuccessDelay time.Duration
}

func Load() Config {
	cfg := Config{
		BackendConfigPath: getenv("UMOJA_BACKEND_CONFIG", "umoja-backend.json"),

		CachePath:     getenv("UMOJA_CACHE_PATH", "umoja-cache.db"),
		RedisAddr:     os.Getenv("UMOJA_REDIS_ADDR"),
		RedisPassword: os.Getenv("UMOJA_REDIS_PASSWORD"),

		OpenRouterAPIKey:      os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:     getenv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModel:       getenv("OPENROUTER_MODEL", "deepseek/deepseek-r1-0528-qwen3-8b"),
		OpenRouterBackupModel: getenv("OPENROUTER_BACKUP_MODEL", "meta-llama/llama-4-maverick:free"),

		HomePath: getenv("UMOJA_HOME_PATH", "/index.html"),
		AuthPath: getenv("UMOJA_AUTH_PATH", "/pages/auth.html"),

		SignInSuccessDelay: 1500 * time.Millisecond,
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
