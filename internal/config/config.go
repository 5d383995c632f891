package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Patreon    PatreonConfig    `yaml:"patreon"`
	Downloader DownloaderConfig `yaml:"downloader"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Harvest    HarvestConfig    `yaml:"harvest"`
	Sync       SyncConfig       `yaml:"sync"`
	LogLevel   string           `yaml:"log_level"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	APIKey        string `yaml:"api_key"`
	InternalToken string `yaml:"internal_token"`
}

// RabbitMQConfig is optional; an empty URL disables event publishing.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type PatreonConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	PageCount int           `yaml:"page_count"`
	MaxPages  int           `yaml:"max_pages"`
	Retry     RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type DownloaderConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	FFmpegPath     string        `yaml:"ffmpeg_path"`
	TrustedDomains []string      `yaml:"trusted_domains"`
	MaxRedirects   int           `yaml:"max_redirects"`
}

type ArchiveConfig struct {
	Dir    string       `yaml:"dir"`
	Mirror MirrorConfig `yaml:"mirror"`
}

// MirrorConfig configures the optional object storage copy of archived files.
type MirrorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

type HarvestConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	Lease           time.Duration `yaml:"lease"`
	BacklogBatch    int           `yaml:"backlog_batch"`
	HeadlessEnabled bool          `yaml:"headless_enabled"`
}

type SyncConfig struct {
	Interval   time.Duration `yaml:"interval"`
	AutoSync   bool          `yaml:"auto_sync"`
	RunTimeout time.Duration `yaml:"run_timeout"`
	LockTTL    time.Duration `yaml:"lock_ttl"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	return &cfg, nil
}

// applyEnv lets a few well-known process variables override file values.
func (c *Config) applyEnv() {
	if n, ok := envInt("PATRON_HUB_PATREON_MAX_PAGES"); ok {
		c.Patreon.MaxPages = max(1, n)
	}
	if n, ok := envInt("PATRON_HUB_HEADLESS_MAX_ATTEMPTS"); ok && n > 0 {
		c.Harvest.MaxAttempts = n
	}
	if v := os.Getenv("PATRON_HUB_INTERNAL_TOKEN"); v != "" {
		c.Server.InternalToken = v
	}
	if v := os.Getenv("PATRON_HUB_ARCHIVE_DIR"); v != "" {
		c.Archive.Dir = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "patron_hub"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "content"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "patron_hub_content"
	}
	if c.Patreon.BaseURL == "" {
		c.Patreon.BaseURL = "https://www.patreon.com"
	}
	if c.Patreon.UserAgent == "" {
		c.Patreon.UserAgent = "PatronHub/0.1 (+self-hosted)"
	}
	if c.Patreon.Timeout == 0 {
		c.Patreon.Timeout = 30 * time.Second
	}
	if c.Patreon.PageCount == 0 {
		c.Patreon.PageCount = 30
	}
	if c.Patreon.MaxPages == 0 {
		c.Patreon.MaxPages = 40
	}
	if c.Patreon.Retry.MaxAttempts == 0 {
		c.Patreon.Retry.MaxAttempts = 3
	}
	if c.Patreon.Retry.InitialBackoff == 0 {
		c.Patreon.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Patreon.Retry.MaxBackoff == 0 {
		c.Patreon.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Downloader.Timeout == 0 {
		c.Downloader.Timeout = 30 * time.Minute
	}
	if c.Downloader.FFmpegPath == "" {
		c.Downloader.FFmpegPath = "ffmpeg"
	}
	if len(c.Downloader.TrustedDomains) == 0 {
		c.Downloader.TrustedDomains = []string{"patreon.com"}
	}
	if c.Downloader.MaxRedirects == 0 {
		c.Downloader.MaxRedirects = 10
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = "./data/archive"
	}
	if c.Archive.Mirror.Bucket == "" {
		c.Archive.Mirror.Bucket = "patron-hub-archive"
	}
	if c.Harvest.MaxAttempts == 0 {
		c.Harvest.MaxAttempts = 6
	}
	if c.Harvest.Lease == 0 {
		c.Harvest.Lease = 15 * time.Minute
	}
	if c.Harvest.BacklogBatch == 0 {
		c.Harvest.BacklogBatch = 25
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 6 * time.Hour
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = 2 * time.Hour
	}
	if c.Sync.LockTTL == 0 {
		c.Sync.LockTTL = 10 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
