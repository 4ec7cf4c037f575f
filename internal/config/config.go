// Load envs from .env
// Load YAML config
// Apply env overrides
// Validate config

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type DownloadConfig struct {
	Path          string `yaml:"path"`
	MaxPerSession int    `yaml:"max_per_session"`
	SaveSummary   bool   `yaml:"save_summary"`
	IncludeSeen   bool   `yaml:"include_seen"`
	// DownloadCV also saves the CV document offered on each profile page.
	DownloadCV bool `yaml:"download_cv"`
}

type RateLimitConfig struct {
	DelayMinSeconds    float64 `yaml:"delay_min_seconds"`
	DelayMaxSeconds    float64 `yaml:"delay_max_seconds"`
	RequestsPerMinute  int     `yaml:"requests_per_minute"`
	ExponentialBackoff bool    `yaml:"exponential_backoff"`
}

type BrowserConfig struct {
	Headless       bool   `yaml:"headless"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
	Retries        int    `yaml:"retries"`
}

func (b BrowserConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

type SessionConfig struct {
	Path string `yaml:"path"`
	Save bool   `yaml:"save"`
	// TimeoutSeconds is how long saved portal cookies stay valid.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// MaxRunSeconds bounds a whole run; 0 means no limit.
	MaxRunSeconds int `yaml:"max_run_seconds"`
	RetentionDays int `yaml:"retention_days"`
}

func (s SessionConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (s SessionConfig) MaxRun() time.Duration {
	return time.Duration(s.MaxRunSeconds) * time.Second
}

type IndexConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

type Config struct {
	// Credentials only ever come from the environment or the keychain.
	Username string `yaml:"-"`
	Password string `yaml:"-"`

	BaseURL   string          `yaml:"base_url"`
	Download  DownloadConfig  `yaml:"download"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Browser   BrowserConfig   `yaml:"browser"`
	Session   SessionConfig   `yaml:"session"`
	Index     IndexConfig     `yaml:"index"`
	Telegram  TelegramConfig  `yaml:"telegram"`

	LogLevel      string `yaml:"log_level"`
	MemoryLimitMB int    `yaml:"memory_limit_mb"`
	ServerPort    string `yaml:"server_port"`

	//Paths
	CookiesPath    string `yaml:"cookies_path"`
	CachePath      string `yaml:"cache_path"`
	ScreenshotPath string `yaml:"screenshot_path"`
}

// Default returns a config with every field at its default value.
func Default() *Config {
	return &Config{
		BaseURL: "https://www.cv-library.co.uk",
		Download: DownloadConfig{
			Path:          "./downloaded_cvs",
			MaxPerSession: 100,
			SaveSummary:   true,
		},
		RateLimit: RateLimitConfig{
			DelayMinSeconds:    2,
			DelayMaxSeconds:    5,
			RequestsPerMinute:  10,
			ExponentialBackoff: true,
		},
		Browser: BrowserConfig{
			Headless:       true,
			TimeoutSeconds: 30,
			Retries:        3,
		},
		Session: SessionConfig{
			Path:           "./sessions",
			Save:           true,
			TimeoutSeconds: 3600,
			RetentionDays:  7,
		},
		Index: IndexConfig{
			Driver: "sqlite",
			DSN:    "./.cache/index.db",
		},
		LogLevel:       "INFO",
		MemoryLimitMB:  1024,
		ServerPort:     "8080",
		CookiesPath:    "./.cookies",
		CachePath:      "./.cache",
		ScreenshotPath: "./logs/screenshots",
	}
}

// Load reads .env, then the YAML file at path, then environment overrides.
// A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		slog.Debug("config file not found, using defaults", "path", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envString("CV_LIBRARY_USERNAME", &c.Username)
	envString("CV_LIBRARY_PASSWORD", &c.Password)
	envString("CV_LIBRARY_BASE_URL", &c.BaseURL)
	envString("DOWNLOAD_PATH", &c.Download.Path)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("SESSION_PATH", &c.Session.Path)
	envString("INDEX_DRIVER", &c.Index.Driver)
	envString("INDEX_DSN", &c.Index.DSN)
	envString("TELEGRAM_BOT_TOKEN", &c.Telegram.Token)
	envString("PORT", &c.ServerPort)
	envString("COOKIES_PATH", &c.CookiesPath)
	envString("CACHE_PATH", &c.CachePath)

	return errors.Join(
		envInt("MAX_DOWNLOADS_PER_SESSION", &c.Download.MaxPerSession),
		envFloat("DELAY_MIN_SECONDS", &c.RateLimit.DelayMinSeconds),
		envFloat("DELAY_MAX_SECONDS", &c.RateLimit.DelayMaxSeconds),
		envInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute),
		envBool("EXPONENTIAL_BACKOFF", &c.RateLimit.ExponentialBackoff),
		envBool("HEADLESS", &c.Browser.Headless),
		envInt("BROWSER_TIMEOUT", &c.Browser.TimeoutSeconds),
		envBool("SAVE_SESSION", &c.Session.Save),
		envBool("DOWNLOAD_CV", &c.Download.DownloadCV),
		envInt("MAX_RUN_SECONDS", &c.Session.MaxRunSeconds),
		envInt("SESSION_TIMEOUT", &c.Session.TimeoutSeconds),
		envInt("MEMORY_LIMIT_MB", &c.MemoryLimitMB),
		envInt64("TELEGRAM_CHAT_ID", &c.Telegram.ChatID),
	)
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envInt64(key string, dst *int64) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}
