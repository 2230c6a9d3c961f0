package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration loaded from YAML at startup.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Admin     AdminSeedConfig `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Redis     RedisConfig     `yaml:"redis"`
	FTP       FTPConfig       `yaml:"ftp"`
	Shopify   ShopifyConfig   `yaml:"shopify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":3001".
}

// DatabaseConfig holds the backing store DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // SQLite path or PostgreSQL DSN.
}

// Duration wraps time.Duration so YAML values like "12h" parse directly.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// JWTConfig holds admin token settings.
type JWTConfig struct {
	Secret string   `yaml:"secret"`
	Expiry Duration `yaml:"expiry"`
}

// AdminSeedConfig describes the administrator account seeded on migration.
type AdminSeedConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`       // logrus level name.
	File       string `yaml:"file"`        // Rotating log file path; empty logs to stderr only.
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotation threshold.
	MaxBackups int    `yaml:"max_backups"` // Rotated files kept.
	MaxAgeDays int    `yaml:"max_age_days"`
}

// SendGridConfig holds notifier settings. Empty APIKey disables real delivery.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// RedisConfig holds the optional progress cache settings. Empty Addr disables
// the cache.
type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// FTPConfig holds backup target settings. Empty Addr disables backups.
type FTPConfig struct {
	Addr     string `yaml:"addr"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dir      string `yaml:"dir"`
}

// ShopifyConfig holds Shopify Admin API settings. Empty ShopDomain disables
// the integration.
type ShopifyConfig struct {
	ShopDomain  string `yaml:"shop_domain"`
	AccessToken string `yaml:"access_token"`
}

// SchedulerConfig holds cron expressions for background jobs.
type SchedulerConfig struct {
	FlushNotifications string `yaml:"flush_notifications"`
	NightlyBackup      string `yaml:"nightly_backup"`
	PruneAdminLogs     string `yaml:"prune_admin_logs"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads, parses and validates the configuration file at path. Secrets
// may be overridden through environment variables so they stay out of the
// config file on shared hosts.
func Load(path string) (*Config, error) {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	cfg := defaultConfig()
	if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}

	applyEnvOverrides(cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, fmt.Errorf("config: database.dsn is required")
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, fmt.Errorf("config: jwt.secret is required")
	}
	return cfg, nil
}

// defaultConfig returns the configuration defaults applied before parsing.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":3001"},
		JWT:    JWTConfig{Expiry: Duration(12 * time.Hour)},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Redis: RedisConfig{TTL: Duration(30 * time.Second)},
		Scheduler: SchedulerConfig{
			FlushNotifications: "@every 1m",
			NightlyBackup:      "0 3 * * *",
			PruneAdminLogs:     "30 3 * * *",
		},
	}
}

// applyEnvOverrides replaces secret-bearing fields from the environment.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"DAIKO_DATABASE_DSN", &cfg.Database.DSN},
		{"DAIKO_JWT_SECRET", &cfg.JWT.Secret},
		{"DAIKO_ADMIN_EMAIL", &cfg.Admin.Email},
		{"DAIKO_ADMIN_PASSWORD", &cfg.Admin.Password},
		{"DAIKO_SENDGRID_API_KEY", &cfg.SendGrid.APIKey},
		{"DAIKO_REDIS_ADDR", &cfg.Redis.Addr},
		{"DAIKO_REDIS_PASSWORD", &cfg.Redis.Password},
		{"DAIKO_FTP_ADDR", &cfg.FTP.Addr},
		{"DAIKO_FTP_USER", &cfg.FTP.User},
		{"DAIKO_FTP_PASSWORD", &cfg.FTP.Password},
		{"DAIKO_SHOPIFY_ACCESS_TOKEN", &cfg.Shopify.AccessToken},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.env); ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
}
