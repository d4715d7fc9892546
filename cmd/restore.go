package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"psfix.dev/pkg/psfix/internal/backup"
	m "psfix.dev/pkg/psfix/internal/model"
)

// restoreCmd represents the restore command.
var restoreCmd = newRestoreCmd()

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <paths...>",
		Short: "Restore files from their newest backup",
		Long:  "Rewrite each given file from its most recent snapshot in the backup directory.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := backup.NewStore(m.Path(viper.GetString(backupDirConfigKey)))
			defer store.Close()

			for _, arg := range args {
				if err := store.Restore(m.Path(arg)); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", arg)
			}

			return nil
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
