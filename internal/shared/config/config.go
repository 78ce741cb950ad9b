package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	DatabaseURL string
	RedisURL    string

	LocalStoreDir string

	// LLM completion gateway.
	LLMProvider        string
	LLMModel           string
	OpenAIAPIKey       string
	LLMRequestsPerMin  int
	LLMMaxConcurrent   int
	LLMRetryMaxAttempts int

	// Analyzer subprocess invocation.
	PythonBin        string
	AnalyzerDir      string
	AnalyzerTimeout  time.Duration
	AnalyzerRetries  int
	PreloadAnalyzers bool

	// Content acquisition.
	FetchTimeout    time.Duration
	FetchRetries    int
	FetchUserAgent  string
	HostRateWindow  time.Duration

	// Orchestration.
	PhaseTimeout   time.Duration
	MinWordCount   int
	CacheTTL       time.Duration
	AllowAdvanced  bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,

		DatabaseURL: dbURL,
		RedisURL:    getEnv("REDIS_URL", ""),

		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),

		LLMProvider:         getEnv("LLM_PROVIDER", "openai"),
		LLMModel:            getEnv("LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		LLMRequestsPerMin:   getEnvInt("LLM_REQUESTS_PER_MIN", 20),
		LLMMaxConcurrent:    getEnvInt("LLM_MAX_CONCURRENT", 4),
		LLMRetryMaxAttempts: getEnvInt("LLM_RETRY_MAX_ATTEMPTS", 3),

		PythonBin:        getEnv("PYTHON_BIN", "python3"),
		AnalyzerDir:      getEnv("ANALYZER_DIR", "./analyzers"),
		AnalyzerTimeout:  getEnvDuration("ANALYZER_TIMEOUT", 120*time.Second),
		AnalyzerRetries:  getEnvInt("ANALYZER_RETRIES", 2),
		PreloadAnalyzers: getEnvBool("PRELOAD_ANALYZERS", true),

		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchRetries:   getEnvInt("FETCH_RETRIES", 3),
		FetchUserAgent: getEnv("FETCH_USER_AGENT", "Mozilla/5.0 (compatible; OriginLytics/1.0)"),
		HostRateWindow: getEnvDuration("HOST_RATE_WINDOW", 2*time.Second),

		PhaseTimeout:  getEnvDuration("PHASE_TIMEOUT", 150*time.Second),
		MinWordCount:  getEnvInt("MIN_WORD_COUNT", 200),
		CacheTTL:      getEnvDuration("CACHE_TTL", 6*time.Hour),
		AllowAdvanced: getEnvBool("ALLOW_ADVANCED", true),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
