package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/vaultkeep/internal/app"
	"github.com/semmidev/vaultkeep/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vaultkeep",
	Short: "Encrypted, compressed backups with retention and disaster recovery drills",
	Long: `vaultkeep snapshots a JSON data source into encrypted, compressed backup
artifacts, applies a retention policy, restores on demand and runs disaster
recovery drills that prove backups can actually be restored.

Examples:
  # Run the scheduler (daily, weekly and monthly backups plus cleanup)
  vaultkeep run --config=configs/config.yaml

  # Take a manual backup and list what is stored
  vaultkeep backup --description "before migration"
  vaultkeep list --type manual

  # Check a backup, then restore it into a file
  vaultkeep verify --id 3f1c...
  vaultkeep restore --id 3f1c... --out restored.json`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "path to config file")
}

// withApp loads the config, builds the application and hands it to fn with a
// context cancelled on SIGINT or SIGTERM.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return fn(ctx, application)
}
