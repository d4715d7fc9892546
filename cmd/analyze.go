package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "psfix.dev/pkg/psfix/internal/model"
)

var analyzeParallelFlag int

// analyzeCmd represents the analyze command.
var analyzeCmd = newAnalyzeCmd()

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Report diagnostics without modifying files",
		Long:  analyzeLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)
			return runPipeline(args, m.ModeAnalyze, false)
		},
	}

	cmd.Flags().IntVarP(&analyzeParallelFlag, parallelFlagName, "p", defaultParallel, "number of parallel workers")

	return cmd
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

// runPipeline is the shared driver for analyze and fix.
func runPipeline(args []string, mode m.Mode, dryRun bool) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}

	opts.DryRun = dryRun

	eng, err := newEngine(opts)
	if err != nil {
		return fmt.Errorf("engine setup: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := fsAdapter.Collect(ctx, parsePaths(args), opts.Exclude)
	if err != nil {
		return fmt.Errorf("collect files: %w", err)
	}

	reports, session, runErr := eng.ProcessAll(ctx, files, mode, opts)

	console.RenderReports(reports, mode == m.ModeFix)
	console.RenderSummary(session)

	if dir := viper.GetString(outputFlagName); dir != "" {
		if _, err := reportStore.SaveReports(m.Path(dir), reports); err != nil {
			return fmt.Errorf("save reports: %w", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run cancelled: %w", runErr)
	}

	return nil
}
