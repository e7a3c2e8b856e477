package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultModel          = "gemini-1.5-flash-latest"
	DefaultRequestTimeout = 30 * time.Second
)

// Config is read from the environment (and an optional .env file).
// GEMINI_API_KEY is deliberately absent: the gateway reads it per request.
type Config struct {
	Port             string
	Model            string
	StoreDriver      string
	DataDir          string
	DatabaseURL      string
	PublicBaseURL    string
	RequestTimeout   time.Duration
	SessionCacheSize int
	Debug            bool
	LogLevel         string
	CORSOrigins      []string
	DiagramFonts     []string
}

// Load reads .env if present and fills Config from the environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:             envOrDefault("PORT", "8080"),
		Model:            envOrDefault("GEMINI_MODEL", DefaultModel),
		StoreDriver:      envOrDefault("STORE_DRIVER", "file"),
		DataDir:          envOrDefault("DATA_DIR", "data"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PublicBaseURL:    strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		RequestTimeout:   durationOrDefault("REQUEST_TIMEOUT", DefaultRequestTimeout),
		SessionCacheSize: intOrDefault("SESSION_CACHE_SIZE", 1024),
		Debug:            os.Getenv("GIN_MODE") == "debug",
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		CORSOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
		DiagramFonts:     splitList(os.Getenv("DIAGRAM_FONTS")),
	}

	return cfg
}

// APIKeyFromEnv is the default credential source for the gateway.
func APIKeyFromEnv() string {
	return strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func intOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
