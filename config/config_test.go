package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DSN", "postgres://localhost/engiverse")
	t.Setenv("GITHUB_TOKEN", "tok")
	t.Setenv("GITHUB_ORG", "engiverse-bot")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "*", cfg.Server.CORSOrigin)
	assert.Equal(t, "main", cfg.GitHub.DefaultBranch)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.Equal(t, 50, cfg.Uploads.MaxMB)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.ExpiresIn)
	assert.False(t, cfg.Refresh.Enabled)
	assert.Equal(t, "development", cfg.App.Environment)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("UPLOAD_MAX_MB", "10")
	t.Setenv("REFRESH_ENABLED", "true")
	t.Setenv("REFRESH_MAX_AGE", "72h")
	t.Setenv("JWT_EXPIRES_IN", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Uploads.MaxMB)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 72*time.Hour, cfg.Refresh.MaxAge)
	assert.Equal(t, time.Hour, cfg.JWT.ExpiresIn)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPLOAD_MAX_MB", "not-a-number")
	t.Setenv("REFRESH_ENABLED", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Uploads.MaxMB)
	assert.False(t, cfg.Refresh.Enabled)
}

func TestValidate_RequiredFields(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_DSN", "")

	_, err := Load()
	assert.Error(t, err)

	setRequiredEnv(t)
	t.Setenv("GITHUB_ORG", "")

	_, err = Load()
	assert.Error(t, err)

	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err = Load()
	assert.Error(t, err)
}
