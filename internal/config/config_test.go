package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/invest-be/internal/accrual"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/invest")
	t.Setenv("JWT_SECRET", "s3cret")
	for _, k := range []string{"PORT", "STORAGE", "JWT_TTL_MINUTES", "ACCRUAL_MODEL", "DEFAULT_INTEREST_RATE", "CORS_ALLOWED_ORIGINS", "UPLOAD_MAX_BYTES"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, 60*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, accrual.AnnualizedCapped, cfg.Accrual.Model)
	assert.True(t, cfg.Accrual.HoldPending)
	assert.Equal(t, "8", cfg.DefaultRate.String())
	assert.Equal(t, int64(16*1024*1024), cfg.UploadMaxBytes)
}

func TestLoadOverrides(t *testing.T) {
	setBase(t)
	t.Setenv("ACCRUAL_MODEL", "daily-uncapped")
	t.Setenv("JWT_TTL_MINUTES", "15")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, accrual.DailyUncapped, cfg.Accrual.Model)
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadValidation(t *testing.T) {
	setBase(t)
	t.Setenv("ACCRUAL_MODEL", "compound")
	_, err := Load()
	assert.Error(t, err)

	setBase(t)
	t.Setenv("DEFAULT_INTEREST_RATE", "-1")
	_, err = Load()
	assert.Error(t, err)

	setBase(t)
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.Error(t, err)

	setBase(t)
	t.Setenv("DATABASE_URL", "")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("STORAGE", "memory")
	_, err = Load()
	assert.NoError(t, err)
}
