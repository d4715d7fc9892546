package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "psfix.dev/pkg/psfix/internal/model"
)

const reportLongDescription = `Render a previously saved run report. With no argument the newest report
in the reports directory is shown.`

// reportCmd represents the report command.
var reportCmd = newReportCmd()

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [file]",
		Short: "View a previously saved run report",
		Long:  reportLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			file, err := resolveReportFile(args, viper.GetString(outputFlagName))
			if err != nil {
				return err
			}

			reports, err := reportStore.LoadReports(file)
			if err != nil {
				return err
			}

			var session m.Session
			for _, report := range reports {
				session.Observe(report)
			}

			console.RenderReports(reports, true)
			console.RenderSummary(session)

			return nil
		},
	}

	return cmd
}

// resolveReportFile picks the explicit argument or the newest run report in
// dir. Run files carry a fixed-width nanosecond timestamp, so the lexically
// largest name is the newest.
func resolveReportFile(args []string, dir string) (m.Path, error) {
	if len(args) == 1 {
		return m.Path(args[0]), nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "run-*.yaml"))
	if err != nil {
		return "", fmt.Errorf("scan reports dir: %w", err)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("no run reports found in %s", dir)
	}

	sort.Strings(matches)

	return m.Path(matches[len(matches)-1]), nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
