package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Storage
	StorageType string // memory | local | redis | postgres
	StoragePath string
	RedisURL    string
	DatabaseURL string

	// Inference providers
	GeminiAPIKey  string
	OpenAIBaseURL string
	OpenAIAPIKey  string

	// Models enabled for fan-out when a request does not narrow the list
	Models        []string
	SystemContext string

	// Limits
	InferenceRequestsPerMin int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                    getEnvOrDefault("PORT", "8080"),
		Env:                     getEnvOrDefault("ENV", "development"),
		StorageType:             getEnvOrDefault("STORAGE_TYPE", "local"),
		StoragePath:             getEnvOrDefault("STORAGE_PATH", "./data"),
		RedisURL:                getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:             getEnvOrDefault("DATABASE_URL", ""),
		GeminiAPIKey:            getEnvOrDefault("GEMINI_API_KEY", ""),
		OpenAIBaseURL:           getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:            getEnvOrDefault("OPENAI_API_KEY", ""),
		Models:                  splitList(getEnvOrDefault("MODELS", "gemini-3-flash-preview")),
		SystemContext:           getEnvOrDefault("SYSTEM_CONTEXT", "You are a helpful assistant."),
		InferenceRequestsPerMin: getEnvAsIntOrDefault("INFERENCE_REQUESTS_PER_MINUTE", 30),
		FrontendURL:             getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
