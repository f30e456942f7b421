package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2500*time.Millisecond, cfg.Print.AssetTimeout)
	assert.Equal(t, 4*time.Second, cfg.Print.CleanupTimeout)
	assert.Equal(t, 30*time.Second, cfg.Chrome.Timeout)
	assert.True(t, cfg.Chrome.NoSandbox)
	assert.Equal(t, "", cfg.Print.CurrencySymbol)
	assert.Equal(t, "Invoice", cfg.Print.Title)
	assert.Equal(t, "prints", cfg.Print.OutputDir)
	assert.Equal(t, 320, cfg.Logo.MaxDimension)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Nil(t, cfg.CompanyInfo())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRINT_ASSET_TIMEOUT", "1s")
	t.Setenv("PRINT_CLEANUP_TIMEOUT", "6s")
	t.Setenv("PRINT_CURRENCY_SYMBOL", "₱")
	t.Setenv("PRINT_TIMEZONE", "Asia/Manila")
	t.Setenv("CHROME_PATH", "/usr/bin/chromium")
	t.Setenv("CHROME_NO_SANDBOX", "false")
	t.Setenv("COMPANY_NAME", "Northwind Trading")
	t.Setenv("COMPANY_LOGO", "drive:abc123")
	t.Setenv("DATABASE_URL", "postgres://crm@db/crm")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")
	t.Setenv("ENV", "production")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Print.AssetTimeout)
	assert.Equal(t, 6*time.Second, cfg.Print.CleanupTimeout)
	assert.Equal(t, "₱", cfg.Print.CurrencySymbol)
	assert.Equal(t, "/usr/bin/chromium", cfg.Chrome.Path)
	assert.False(t, cfg.Chrome.NoSandbox)
	assert.Equal(t, "postgres://crm@db/crm", cfg.Database.DSN())
	assert.Equal(t, "/secrets/sa.json", cfg.Google.Credentials)
	assert.True(t, cfg.IsProduction())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Manila", loc.String())

	company := cfg.CompanyInfo()
	require.NotNil(t, company)
	assert.Equal(t, "Northwind Trading", company.CompanyName)
	assert.Equal(t, "drive:abc123", company.CompanyLogo)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "print.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[print]
asset_timeout = "3s"
title = "Quotation"

[company]
name = "Acme Corp"
email = "ceo@acme.test"

[logo]
max_dimension = 200
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Print.AssetTimeout)
	assert.Equal(t, "Quotation", cfg.Print.Title)
	assert.Equal(t, 200, cfg.Logo.MaxDimension)
	assert.Equal(t, "ceo@acme.test", cfg.CompanyInfo().CEOEmail)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"asset timeout", "PRINT_ASSET_TIMEOUT", "0s"},
		{"cleanup timeout", "PRINT_CLEANUP_TIMEOUT", "-1s"},
		{"chrome timeout", "CHROME_TIMEOUT", "0s"},
		{"logo dimension", "LOGO_MAX_DIMENSION", "0"},
		{"log format", "LOG_FORMAT", "xml"},
		{"timezone", "PRINT_TIMEZONE", "Mars/Olympus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.env, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	assert.Equal(t, "", DatabaseConfig{}.DSN())
	assert.Equal(t, "postgres://x", DatabaseConfig{URL: "postgres://x", Host: "ignored"}.DSN())

	dsn := DatabaseConfig{Host: "db", Port: 5433, User: "crm", Password: "p@ss", DBName: "crm", SSLMode: "disable"}.DSN()
	assert.Equal(t, "postgres://crm:p%40ss@db:5433/crm?sslmode=disable", dsn)
}
