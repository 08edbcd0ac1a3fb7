// Package config builds the application configuration from defaults, an
// optional config file, a .env file and the environment. The result is passed
// explicitly to the components that need it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CINESHELF"

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	OMDb    OMDbConfig    `mapstructure:"omdb"`
	Website WebsiteConfig `mapstructure:"website"`
	Log     LogConfig     `mapstructure:"log"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Email   EmailConfig   `mapstructure:"email"`
}

type StorageConfig struct {
	// Backend is csv, json or sqlite.
	Backend string `mapstructure:"backend"`
	// File is the catalog file for csv/json. Empty means movies.<backend> under DataPath.
	File     string `mapstructure:"file"`
	DataPath string `mapstructure:"data_path"`
}

type OMDbConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type WebsiteConfig struct {
	Dir   string `mapstructure:"dir"`
	Title string `mapstructure:"title"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RefreshConfig struct {
	// Schedule is a six-field cron spec (with seconds).
	Schedule string `mapstructure:"schedule"`
	// RunAtStartup runs the refresh job once when the scheduler starts.
	RunAtStartup bool `mapstructure:"run_at_startup"`
}

type EmailConfig struct {
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SenderEmail    string `mapstructure:"sender"`
	SenderPassword string `mapstructure:"password"`
	RecipientEmail string `mapstructure:"recipient"`
}

// Path resolves the location handed to storage.Open.
func (s StorageConfig) Path() string {
	backend := strings.ToLower(s.Backend)
	if backend == "sqlite" {
		return s.DataPath
	}
	if s.File != "" {
		return s.File
	}
	return filepath.Join(s.DataPath, "movies."+backend)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "json")
	v.SetDefault("storage.file", "")
	v.SetDefault("storage.data_path", "./data")

	v.SetDefault("omdb.api_key", "")
	v.SetDefault("omdb.base_url", "http://www.omdbapi.com/")
	v.SetDefault("omdb.timeout", 10*time.Second)
	v.SetDefault("omdb.requests_per_second", 5.0)

	v.SetDefault("website.dir", "./static")
	v.SetDefault("website.title", "My Movie App")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// 10am every day
	v.SetDefault("refresh.schedule", "0 0 10 * * *")
	v.SetDefault("refresh.run_at_startup", false)

	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.sender", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.recipient", "")
}

// legacyEnv lists the unprefixed variable names still honored for each key.
var legacyEnv = map[string][]string{
	"omdb.api_key":      {"OMDB_API_KEY", "API_KEY"},
	"storage.backend":   {"STORAGE_BACKEND"},
	"storage.data_path": {"DATA_PATH"},
	"email.smtp_host":   {"EMAIL_SMTP_HOST"},
	"email.smtp_port":   {"EMAIL_SMTP_PORT"},
	"email.sender":      {"EMAIL_SENDER"},
	"email.password":    {"EMAIL_PASSWORD"},
	"email.recipient":   {"EMAIL_RECIPIENT"},
	"log.level":         {"LOG_LEVEL"},
	"log.format":        {"LOG_FORMAT"},
}

// Load reads configuration. configFile may be empty. Variables from a .env
// file in the working directory are loaded first without overriding the
// real environment.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "csv", "json", "sqlite":
	default:
		return fmt.Errorf("invalid storage backend %q (want csv, json or sqlite)", c.Storage.Backend)
	}
	if c.OMDb.RequestsPerSecond < 0 {
		return fmt.Errorf("omdb.requests_per_second must not be negative")
	}
	if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
		return fmt.Errorf("invalid email.smtp_port %d", c.Email.SMTPPort)
	}
	return nil
}
