package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds runtime configuration. Values come from the environment
// with safe defaults; a missing or malformed variable never fails, it just
// falls back.
type Settings struct {
	Port    string
	DataDir string

	// Probe timeouts. Probes convert any overrun into neutral default
	// signals, so these bound latency, not correctness.
	RequestTimeout time.Duration
	TLSTimeout     time.Duration
	DNSTimeout     time.Duration
	WhoisTimeout   time.Duration

	UserAgent    string
	MaxRedirects int

	CacheTTL        time.Duration
	RedisAddr       string
	RedisPassword   string
	RateLimitPerMin int

	ModelPath string
}

// Defaults returns the built-in configuration.
func Defaults() Settings {
	return Settings{
		Port:            "8080",
		DataDir:         "./data",
		RequestTimeout:  6 * time.Second,
		TLSTimeout:      5 * time.Second,
		DNSTimeout:      4 * time.Second,
		WhoisTimeout:    5 * time.Second,
		UserAgent:       "PhishMeter/1.0 (+https://github.com/phishmeter/phishmeter)",
		MaxRedirects:    10,
		CacheTTL:        15 * time.Minute,
		RateLimitPerMin: 60,
		ModelPath:       "./models/phishmeter.onnx",
	}
}

// Load reads settings from the environment, merging over Defaults. A .env
// file in the working directory is honored when present.
func Load() Settings {
	_ = godotenv.Load()

	s := Defaults()
	s.Port = envOrDefault("PORT", s.Port)
	s.DataDir = envOrDefault("DATA_DIR", s.DataDir)
	s.RequestTimeout = envSeconds("PHISH_REQUEST_TIMEOUT", s.RequestTimeout)
	s.TLSTimeout = envSeconds("PHISH_TLS_TIMEOUT", s.TLSTimeout)
	s.DNSTimeout = envSeconds("PHISH_DNS_TIMEOUT", s.DNSTimeout)
	s.WhoisTimeout = envSeconds("PHISH_WHOIS_TIMEOUT", s.WhoisTimeout)
	s.UserAgent = envOrDefault("PHISH_USER_AGENT", s.UserAgent)
	s.MaxRedirects = envInt("PHISH_MAX_REDIRECTS", s.MaxRedirects)
	s.CacheTTL = envSeconds("CACHE_TTL_SECONDS", s.CacheTTL)
	s.RedisAddr = os.Getenv("REDIS_ADDR")
	s.RedisPassword = os.Getenv("REDIS_PASSWORD")
	s.RateLimitPerMin = envInt("RATE_LIMIT_PER_MIN", s.RateLimitPerMin)
	s.ModelPath = envOrDefault("PHISH_MODEL_PATH", s.ModelPath)
	return s
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envSeconds reads a float number of seconds.
func envSeconds(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || secs <= 0 {
		return defaultValue
	}
	return time.Duration(secs * float64(time.Second))
}

func envInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
