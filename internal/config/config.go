package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SourceFile    = "file"
	SourceCommand = "command"

	// EncryptionKeyEnv is read when backup.encryption_key is not set.
	EncryptionKeyEnv = "BACKUP_ENCRYPTION_KEY"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Backup  BackupConfig  `mapstructure:"backup"`
	Source  SourceConfig  `mapstructure:"source"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Version  string `mapstructure:"version"`
}

type BackupConfig struct {
	Dir              string `mapstructure:"dir"`
	RetentionDays    int    `mapstructure:"retention_days"`
	MaxBackups       int    `mapstructure:"max_backups"`
	CompressionLevel int    `mapstructure:"compression_level"`
	EncryptionKey    string `mapstructure:"encryption_key"`
	CleanupSchedule  string `mapstructure:"cleanup_schedule"`
	DefaultSchedules bool   `mapstructure:"default_schedules"`

	// OrphanGrace is how long a payload without metadata is kept after its last write.
	OrphanGrace time.Duration `mapstructure:"orphan_grace"`
}

type SourceConfig struct {
	Name    string   `mapstructure:"name"`
	Type    string   `mapstructure:"type"`
	Path    string   `mapstructure:"path"`
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Env     []string `mapstructure:"env"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load reads the YAML file at path, if any, and applies VAULTKEEP_* environment
// overrides, e.g. VAULTKEEP_BACKUP_DIR for backup.dir.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("vaultkeep")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Backup.EncryptionKey == "" {
		cfg.Backup.EncryptionKey = os.Getenv(EncryptionKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vaultkeep")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("backup.dir", "./backups")
	v.SetDefault("backup.retention_days", 30)
	v.SetDefault("backup.max_backups", 100)
	v.SetDefault("backup.compression_level", 9)
	v.SetDefault("backup.encryption_key", "")
	v.SetDefault("backup.cleanup_schedule", "0 3 * * *")
	v.SetDefault("backup.default_schedules", true)
	v.SetDefault("backup.orphan_grace", "1h")

	v.SetDefault("source.name", "default")
	v.SetDefault("source.type", SourceFile)
	v.SetDefault("source.path", "")
	v.SetDefault("source.command", "")

	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")

	v.SetDefault("metrics.textfile", "")
}

func (c *Config) Validate() error {
	if c.Backup.Dir == "" {
		return fmt.Errorf("backup.dir is required")
	}
	if c.Backup.CompressionLevel < 0 || c.Backup.CompressionLevel > 9 {
		return fmt.Errorf("backup.compression_level must be between 0 and 9, got %d", c.Backup.CompressionLevel)
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup.retention_days must not be negative")
	}
	if c.Backup.MaxBackups < 0 {
		return fmt.Errorf("backup.max_backups must not be negative")
	}
	if c.Backup.OrphanGrace < 0 {
		return fmt.Errorf("backup.orphan_grace must not be negative")
	}

	switch c.Source.Type {
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for a file source")
		}
	case SourceCommand:
		if c.Source.Command == "" {
			return fmt.Errorf("source.command is required for a command source")
		}
	default:
		return fmt.Errorf("unsupported source.type %q", c.Source.Type)
	}

	if t := c.Notify.Telegram; t.Enabled && (t.BotToken == "" || t.ChatID == "") {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}

	return nil
}

func (c *Config) EncryptionEnabled() bool {
	return c.Backup.EncryptionKey != ""
}
