package cmd

import (
	"github.com/spf13/cobra"

	m "psfix.dev/pkg/psfix/internal/model"
)

var fixParallelFlag int
var dryRunFlag bool

// fixCmd represents the fix command.
var fixCmd = newFixCmd()

func newFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix [paths...]",
		Short: "Apply automatic fixes to scripts",
		Long:  fixLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)
			return runPipeline(args, m.ModeFix, dryRunFlag)
		},
	}

	cmd.Flags().IntVarP(&fixParallelFlag, parallelFlagName, "p", defaultParallel, "number of parallel workers")
	cmd.Flags().BoolVar(&dryRunFlag, dryRunFlagName, false, "show the fixes that would be applied without writing any file")

	return cmd
}

func init() {
	rootCmd.AddCommand(fixCmd)
}
