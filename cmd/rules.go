package cmd

import (
	"github.com/spf13/cobra"

	"psfix.dev/pkg/psfix/internal/rules"
)

// rulesCmd lists every registered rule with its category, severity and
// whether it can fix what it reports.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the available rules",
	Run: func(_ *cobra.Command, _ []string) {
		console.RenderRules(rules.DefaultRegistry())
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
