package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/invest-be/internal/accrual"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	Storage     string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration

	UploadDir      string
	UploadMaxBytes int64

	Accrual     accrual.Policy
	DefaultRate decimal.Decimal

	LogLevel  string
	LogFormat string

	BootstrapAdmin BootstrapAdmin
}

// BootstrapAdmin describes the first administrator created on startup.
type BootstrapAdmin struct {
	FullName string
	Email    string
	Phone    string
	Password string
}

// Enabled reports whether bootstrap credentials were provided.
func (b BootstrapAdmin) Enabled() bool {
	return b.Email != "" && b.Password != ""
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), "8080"),
		Storage:       strings.ToLower(fallback(os.Getenv("STORAGE"), "postgres")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), "invest-backend"),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		UploadDir:     fallback(os.Getenv("UPLOAD_DIR"), "uploads"),
		LogLevel:      strings.ToLower(fallback(os.Getenv("LOG_LEVEL"), "info")),
		LogFormat:     strings.ToLower(fallback(os.Getenv("LOG_FORMAT"), "json")),
		BootstrapAdmin: BootstrapAdmin{
			FullName: fallback(os.Getenv("BOOTSTRAP_ADMIN_NAME"), "Administrator"),
			Email:    strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),
			Phone:    fallback(os.Getenv("BOOTSTRAP_ADMIN_PHONE"), "0000000"),
			Password: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}

	cfg.JWTTTL = time.Duration(positiveInt(os.Getenv("JWT_TTL_MINUTES"), 60)) * time.Minute
	cfg.LockTTL = time.Duration(positiveInt(os.Getenv("LOCK_TTL_SECONDS"), 10)) * time.Second
	cfg.UploadMaxBytes = int64(positiveInt(os.Getenv("UPLOAD_MAX_BYTES"), 16*1024*1024))

	model, err := accrual.ParseModel(os.Getenv("ACCRUAL_MODEL"))
	if err != nil {
		return Config{}, err
	}
	cfg.Accrual = accrual.Policy{Model: model, HoldPending: true}

	rate, err := decimal.NewFromString(fallback(os.Getenv("DEFAULT_INTEREST_RATE"), accrual.DefaultRate))
	if err != nil || rate.IsNegative() {
		return Config{}, fmt.Errorf("DEFAULT_INTEREST_RATE must be a non-negative number")
	}
	cfg.DefaultRate = rate

	switch cfg.Storage {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case "memory":
	default:
		return Config{}, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
