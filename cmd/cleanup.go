package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"psfix.dev/pkg/psfix/internal/backup"
	m "psfix.dev/pkg/psfix/internal/model"
)

// cleanupCmd represents the cleanup command.
var cleanupCmd = newCleanupCmd()

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete all retained backups",
		Long:  "Delete the backup directory and every snapshot in it. Fixed files are left as they are.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := m.Path(viper.GetString(backupDirConfigKey))

			if err := backup.NewStore(dir).Cleanup(); err != nil {
				return fmt.Errorf("cleanup backups: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", dir)

			return nil
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
