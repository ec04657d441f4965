package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/semmidev/vaultkeep/internal/app"
	"github.com/semmidev/vaultkeep/internal/domain"
)

var (
	description string

	listType   string
	listSince  time.Duration
	listLimit  int
	listOffset int

	backupID    string
	outputPath  string
	autoApprove bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scheduled backups and cleanup until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.Run(ctx)
		})
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Take a manual backup of the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			desc, err := a.Backup(ctx, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup %s written to %s\n", desc.BackupID, desc.Path)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			filter := domain.Filter{Type: listType, Limit: listLimit, Offset: listOffset}
			if listSince > 0 {
				filter.CreatedAfter = time.Now().Add(-listSince)
			}

			page, err := a.List(ctx, filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIMESTAMP\tTYPE\tSIZE\tENCRYPTED\tDESCRIPTION")
			for _, e := range page.Items {
				art := e.Artifact
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n",
					art.ID, art.Timestamp, art.Type, art.DataSize, art.Encrypted, art.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d backup(s)\n", len(page.Items), page.Total)
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a backup into --out, or back into the source",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			confirm := func(art domain.Artifact) bool {
				if autoApprove {
					return true
				}
				return prompt(cmd, fmt.Sprintf("Restore %s backup %s from %s?", art.Type, art.ID, art.Timestamp))
			}

			result, err := a.Restore(ctx, backupID, outputPath, confirm)
			if err != nil {
				return err
			}
			if result.SafetyBackup != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Safety backup %s created\n", result.SafetyBackup.BackupID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup %s restored\n", result.Metadata.ID)
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that a backup decrypts and decodes without restoring it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			result := a.Verify(ctx, backupID)
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			if !result.Valid {
				return fmt.Errorf("backup %s is not valid", backupID)
			}
			return nil
		})
	},
}

var drillCmd = &cobra.Command{
	Use:   "drill",
	Short: "Run a disaster recovery drill against the live source",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			result := a.Drill(ctx)
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !result.Passed() {
				return fmt.Errorf("disaster recovery drill failed")
			}
			return nil
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Apply the retention policy now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			report, err := a.Cleanup(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Examined %d, deleted %d, failed %d, orphans pruned %d\n",
				report.Examined, report.Deleted, report.Failed, report.OrphansPruned)
			return nil
		})
	},
}

func prompt(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	backupCmd.Flags().StringVarP(&description, "description", "d", "", "description stored with the backup")

	listCmd.Flags().StringVar(&listType, "type", "", "only list backups of this type")
	listCmd.Flags().DurationVar(&listSince, "since", 0, "only list backups newer than this, e.g. 72h")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of backups to show")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "number of backups to skip")

	restoreCmd.Flags().StringVar(&backupID, "id", "", "id of the backup to restore")
	restoreCmd.Flags().StringVarP(&outputPath, "out", "o", "", "write restored data to this file instead of the source")
	restoreCmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "restore without asking for confirmation")
	_ = restoreCmd.MarkFlagRequired("id")

	verifyCmd.Flags().StringVar(&backupID, "id", "", "id of the backup to verify")
	_ = verifyCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(runCmd, backupCmd, listCmd, restoreCmd, verifyCmd, drillCmd, cleanupCmd)
}

