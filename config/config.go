package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"crm-quote-print/models"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Log      LogConfig
	Chrome   ChromeConfig
	Print    PrintConfig
	Company  CompanyConfig
	Database DatabaseConfig
	Google   GoogleConfig
	Logo     LogoConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Env string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// ChromeConfig holds the browser used for printing
type ChromeConfig struct {
	Path      string
	RemoteURL string
	NoSandbox bool
	Timeout   time.Duration
}

// PrintConfig holds print pipeline and document settings
type PrintConfig struct {
	AssetTimeout   time.Duration
	CleanupTimeout time.Duration
	OutputDir      string
	Timezone       string
	CurrencySymbol string
	Title          string
}

// CompanyConfig is the default issuing company
type CompanyConfig struct {
	Name   string
	Number string
	Email  string
	Logo   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// GoogleConfig holds Google API credentials
type GoogleConfig struct {
	// Credentials is a service account JSON file path or the JSON itself
	Credentials string
}

// LogoConfig holds logo embedding settings
type LogoConfig struct {
	MaxDimension int
}

// Load loads configuration from an optional TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables (e.g. PRINT_ASSET_TIMEOUT for print.asset_timeout)
// 2. configFile, or config.toml in the working directory
// 3. Built-in defaults
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	applyDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env: v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Chrome: ChromeConfig{
			Path:      v.GetString("chrome.path"),
			RemoteURL: v.GetString("chrome.remote_url"),
			NoSandbox: v.GetBool("chrome.no_sandbox"),
			Timeout:   v.GetDuration("chrome.timeout"),
		},
		Print: PrintConfig{
			AssetTimeout:   v.GetDuration("print.asset_timeout"),
			CleanupTimeout: v.GetDuration("print.cleanup_timeout"),
			OutputDir:      v.GetString("print.output_dir"),
			Timezone:       v.GetString("print.timezone"),
			CurrencySymbol: v.GetString("print.currency_symbol"),
			Title:          v.GetString("print.title"),
		},
		Company: CompanyConfig{
			Name:   v.GetString("company.name"),
			Number: v.GetString("company.number"),
			Email:  v.GetString("company.email"),
			Logo:   v.GetString("company.logo"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("database.url"),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Google: GoogleConfig{
			Credentials: v.GetString("google.credentials"),
		},
		Logo: LogoConfig{
			MaxDimension: v.GetInt("logo.max_dimension"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnv maps keys to the environment names used by existing deployments
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"app.env":            {"APP_ENV", "ENV"},
		"database.host":      {"DATABASE_HOST", "DB_HOST"},
		"database.port":      {"DATABASE_PORT", "DB_PORT"},
		"database.user":      {"DATABASE_USER", "DB_USER"},
		"database.password":  {"DATABASE_PASSWORD", "DB_PASSWORD"},
		"database.dbname":    {"DATABASE_DBNAME", "DB_NAME"},
		"database.sslmode":   {"DATABASE_SSLMODE", "DB_SSLMODE"},
		"google.credentials": {"GOOGLE_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("chrome.no_sandbox", true)
	v.SetDefault("chrome.timeout", 30*time.Second)

	v.SetDefault("print.asset_timeout", 2500*time.Millisecond)
	v.SetDefault("print.cleanup_timeout", 4*time.Second)
	v.SetDefault("print.output_dir", "prints")
	v.SetDefault("print.currency_symbol", "")
	v.SetDefault("print.title", models.DefaultInvoiceTitle)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("logo.max_dimension", 320)
}

func (c *Config) validate() error {
	if c.Print.AssetTimeout <= 0 {
		return fmt.Errorf("print.asset_timeout must be positive, got %s", c.Print.AssetTimeout)
	}
	if c.Print.CleanupTimeout <= 0 {
		return fmt.Errorf("print.cleanup_timeout must be positive, got %s", c.Print.CleanupTimeout)
	}
	if c.Chrome.Timeout <= 0 {
		return fmt.Errorf("chrome.timeout must be positive, got %s", c.Chrome.Timeout)
	}
	if c.Logo.MaxDimension <= 0 {
		return fmt.Errorf("logo.max_dimension must be positive, got %d", c.Logo.MaxDimension)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether the application runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// Location returns the time zone invoice dates are rendered in
func (c *Config) Location() (*time.Location, error) {
	if c.Print.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Print.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid print.timezone %q: %w", c.Print.Timezone, err)
	}
	return loc, nil
}

// CompanyInfo returns the configured issuing company, or nil if none is set
func (c *Config) CompanyInfo() *models.CompanyInfo {
	info := &models.CompanyInfo{
		CompanyName:   c.Company.Name,
		CompanyNumber: c.Company.Number,
		CEOEmail:      c.Company.Email,
		CompanyLogo:   c.Company.Logo,
	}
	if info.IsEmpty() {
		return nil
	}
	return info
}

// DSN returns the connection string, or "" when no database is configured
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Host == "" || d.User == "" || d.DBName == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
