package config

import (
	"encoding/base64"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBDSN       string
	HTTPAddr    string
	LogLevel    string
	RedisDSN    string
	CORSOrigins []string

	// External planning source.
	PlanningBaseURL string

	// raw secret kept in-memory only; never log this
	EncryptionKeysRaw string
	EncryptionKey     []byte // decoded from EncryptionKeysRaw

	// Rendering and refresh policy.
	ExhibitionTZ   string
	RefreshMaxAge  time.Duration
	FeedCacheTTL   time.Duration
	WorkerCronSpec string
	WorkerBatch    int

	// Per-IP API rate limit (requests/second with a burst allowance).
	RateLimitRPS   int
	RateLimitBurst int

	// Failure notification mail.
	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	AppURL       string
}

func Load() (Config, error) {
	cfg := Config{
		DBDSN:           os.Getenv("DB_DSN"),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		RedisDSN:        getenvDefault("REDIS_DSN", "redis://localhost:6379/0"),
		PlanningBaseURL: os.Getenv("PLANNING_API_URL"),
		ExhibitionTZ:    getenvDefault("EXHIBITION_TZ", "Europe/Paris"),
		WorkerCronSpec:  getenvDefault("WORKER_CRON", "@every 15m"),
		SMTPAddr:        os.Getenv("SMTP_ADDR"),
		SMTPFrom:        os.Getenv("SMTP_FROM"),
		SMTPUsername:    os.Getenv("SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		AppURL:          os.Getenv("APP_URL"),
	}

	cfg.EncryptionKeysRaw = os.Getenv("ENCRYPTION_KEY")

	if cfg.DBDSN == "" {
		return Config{}, errors.New("missing DB_DSN")
	}
	if cfg.PlanningBaseURL == "" {
		return Config{}, errors.New("missing PLANNING_API_URL")
	}

	// decode encryption key (base64, must be 32 bytes)
	if cfg.EncryptionKeysRaw == "" {
		return Config{}, errors.New("missing ENCRYPTION_KEY")
	}
	key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKeysRaw)
	if err != nil {
		return Config{}, errors.New("ENCRYPTION_KEY must be valid base64")
	}
	if len(key) != 32 {
		return Config{}, errors.New("ENCRYPTION_KEY must be 32 bytes (256 bits)")
	}
	cfg.EncryptionKey = key

	if _, err := time.LoadLocation(cfg.ExhibitionTZ); err != nil {
		return Config{}, errors.New("EXHIBITION_TZ is not a valid IANA timezone")
	}

	cfg.RefreshMaxAge, err = getenvDuration("REFRESH_MAX_AGE", time.Hour)
	if err != nil {
		return Config{}, errors.New("REFRESH_MAX_AGE must be a valid duration")
	}
	cfg.FeedCacheTTL, err = getenvDuration("FEED_CACHE_TTL", time.Minute)
	if err != nil {
		return Config{}, errors.New("FEED_CACHE_TTL must be a valid duration")
	}

	cfg.WorkerBatch, err = getenvInt("WORKER_BATCH", 50)
	if err != nil || cfg.WorkerBatch < 1 {
		return Config{}, errors.New("WORKER_BATCH must be a positive integer")
	}

	cfg.RateLimitRPS, err = getenvInt("RATE_LIMIT_RPS", 1)
	if err != nil || cfg.RateLimitRPS < 1 {
		return Config{}, errors.New("RATE_LIMIT_RPS must be a positive integer")
	}
	cfg.RateLimitBurst, err = getenvInt("RATE_LIMIT_BURST", 60)
	if err != nil || cfg.RateLimitBurst < 1 {
		return Config{}, errors.New("RATE_LIMIT_BURST must be a positive integer")
	}

	// parse CORS origins
	corsOrigins := getenvDefault("CORS_ORIGINS", "")
	if corsOrigins != "" {
		cfg.CORSOrigins = strings.Split(corsOrigins, ",")
		for i := range cfg.CORSOrigins {
			cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
		}
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000"} // default
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
