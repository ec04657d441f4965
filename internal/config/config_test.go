package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(dir, body string) string {
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		panic(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given a config file", t, func() {
		tempDir, err := os.MkdirTemp("", "config_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		t.Setenv(EncryptionKeyEnv, "")

		Convey("A minimal file should be completed with defaults", func() {
			cfg, err := Load(writeConfig(tempDir, "source:\n  path: ./data.json\n"))

			So(err, ShouldBeNil)
			So(cfg.App.Name, ShouldEqual, "vaultkeep")
			So(cfg.App.LogLevel, ShouldEqual, "info")
			So(cfg.App.Version, ShouldEqual, "1.0.0")
			So(cfg.Backup.Dir, ShouldEqual, "./backups")
			So(cfg.Backup.RetentionDays, ShouldEqual, 30)
			So(cfg.Backup.MaxBackups, ShouldEqual, 100)
			So(cfg.Backup.CompressionLevel, ShouldEqual, 9)
			So(cfg.Backup.CleanupSchedule, ShouldEqual, "0 3 * * *")
			So(cfg.Backup.DefaultSchedules, ShouldBeTrue)
			So(cfg.Backup.OrphanGrace, ShouldEqual, time.Hour)
			So(cfg.Source.Type, ShouldEqual, SourceFile)
			So(cfg.EncryptionEnabled(), ShouldBeFalse)
		})

		Convey("Values from the file should win over defaults", func() {
			cfg, err := Load(writeConfig(tempDir, `
app:
  log_level: debug
backup:
  dir: /var/backups/app
  retention_days: 7
  max_backups: 10
  compression_level: 1
  encryption_key: hunter2
  orphan_grace: 6h
source:
  type: command
  command: pg_dump
  args: ["--format=plain", "appdb"]
notify:
  telegram:
    enabled: true
    bot_token: token
    chat_id: "12345"
`))
			So(err, ShouldBeNil)
			So(cfg.App.LogLevel, ShouldEqual, "debug")
			So(cfg.Backup.Dir, ShouldEqual, "/var/backups/app")
			So(cfg.Backup.RetentionDays, ShouldEqual, 7)
			So(cfg.Backup.MaxBackups, ShouldEqual, 10)
			So(cfg.Backup.CompressionLevel, ShouldEqual, 1)
			So(cfg.EncryptionEnabled(), ShouldBeTrue)
			So(cfg.Backup.OrphanGrace, ShouldEqual, 6*time.Hour)
			So(cfg.Source.Command, ShouldEqual, "pg_dump")
			So(cfg.Source.Args, ShouldResemble, []string{"--format=plain", "appdb"})
			So(cfg.Notify.Telegram.ChatID, ShouldEqual, "12345")
		})

		Convey("Environment variables should override the file", func() {
			t.Setenv("VAULTKEEP_BACKUP_RETENTION_DAYS", "3")
			t.Setenv("VAULTKEEP_BACKUP_DIR", filepath.Join(tempDir, "env"))

			cfg, err := Load(writeConfig(tempDir, "backup:\n  retention_days: 14\nsource:\n  path: d.json\n"))
			So(err, ShouldBeNil)
			So(cfg.Backup.RetentionDays, ShouldEqual, 3)
			So(cfg.Backup.Dir, ShouldEqual, filepath.Join(tempDir, "env"))
		})

		Convey("The encryption key should fall back to BACKUP_ENCRYPTION_KEY", func() {
			t.Setenv(EncryptionKeyEnv, "from-env")

			cfg, err := Load(writeConfig(tempDir, "source:\n  path: d.json\n"))
			So(err, ShouldBeNil)
			So(cfg.Backup.EncryptionKey, ShouldEqual, "from-env")
		})

		Convey("A missing file should fail", func() {
			_, err := Load(filepath.Join(tempDir, "missing.yaml"))
			So(err, ShouldNotBeNil)
		})

		Convey("An invalid file should fail validation", func() {
			_, err := Load(writeConfig(tempDir, "backup:\n  compression_level: 12\nsource:\n  path: d.json\n"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "compression_level")
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a valid config", t, func() {
		cfg := &Config{
			Backup: BackupConfig{Dir: "./backups", RetentionDays: 30, MaxBackups: 100, CompressionLevel: 9},
			Source: SourceConfig{Type: SourceFile, Path: "data.json"},
		}
		So(cfg.Validate(), ShouldBeNil)

		Convey("An empty backup dir should be rejected", func() {
			cfg.Backup.Dir = ""
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("Negative caps should be rejected", func() {
			cfg.Backup.MaxBackups = -1
			So(cfg.Validate(), ShouldNotBeNil)
			cfg.Backup.MaxBackups = 1
			cfg.Backup.RetentionDays = -1
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("A negative orphan grace should be rejected", func() {
			cfg.Backup.OrphanGrace = -time.Minute
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("A file source needs a path", func() {
			cfg.Source.Path = ""
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("A command source needs a command", func() {
			cfg.Source.Type = SourceCommand
			So(cfg.Validate(), ShouldNotBeNil)
			cfg.Source.Command = "echo"
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Unknown source types should be rejected", func() {
			cfg.Source.Type = "mysql"
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("Enabled telegram needs credentials", func() {
			cfg.Notify.Telegram.Enabled = true
			So(cfg.Validate(), ShouldNotBeNil)
			cfg.Notify.Telegram.BotToken = "t"
			cfg.Notify.Telegram.ChatID = "1"
			So(cfg.Validate(), ShouldBeNil)
		})
	})
}
