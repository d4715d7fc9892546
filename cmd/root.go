// Package cmd provides the root command and CLI setup for psfix.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"psfix.dev/pkg/psfix/internal/adapter"
	"psfix.dev/pkg/psfix/internal/backup"
	"psfix.dev/pkg/psfix/internal/engine"
	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/rules"
)

var fsAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore
var console *adapter.Console

// reportsOutputDirFlag is a root-level flag shared by commands that write reports.
var reportsOutputDirFlag string

// noCacheFlag disables the content cache when set.
var noCacheFlag bool

// excludePatterns is a root-level flag that filters scanned files.
var excludePatterns []string

// categoryFilters restricts the run to the named rule categories.
var categoryFilters []string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	reportStore = adapter.NewReportStore()
	console = adapter.NewConsole(os.Stdout)
}

const pathArgsHelp = `Paths may be files or directories:
  - script.ps1     analyze a single script
  - ./scripts      recursively scan a directory for .ps1/.psm1 files
  - . ./deploy     scan multiple directories`

const rootLongDescription = `psfix is a static analysis and autofix tool for PowerShell scripts. It
parses each script, runs a registry of security, best-practice, formatting
and structural rules, and can rewrite offending constructs in place with
backups and unified diffs.

` + pathArgsHelp

const analyzeLongDescription = `Report diagnostics for the given paths without modifying any file.

` + pathArgsHelp

const fixLongDescription = `Apply auto-fixable rules to the given paths. Originals are snapshotted to
the backup directory before any edit reaches the disk; --dry-run shows what
would change without writing.

` + pathArgsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "psfix",
		Short: "PowerShell static analysis and autofix tool",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for run reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVar(&noCacheFlag, noCacheFlagName, viper.GetBool(noCacheFlagName), "disable the parse/diagnostic content cache")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(noCacheFlagName), noCacheFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().StringArrayVar(&categoryFilters, categoryFlagName, viper.GetStringSlice(categoriesConfigKey), "restrict to rule categories: security, best-practice, formatting, advanced (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(categoryFlagName), categoriesConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	if len(args) == 0 {
		return []m.Path{"."}
	}

	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

// buildOptions resolves the effective engine options from flags and config.
func buildOptions() (m.Options, error) {
	opts := m.Options{
		Parallel:         viper.GetInt(parallelConfigKey),
		UseCache:         !viper.GetBool(noCacheFlagName),
		CacheEntries:     viper.GetInt(cacheEntriesConfigKey),
		Exclude:          viper.GetStringSlice(excludeConfigKey),
		BackupDir:        m.Path(viper.GetString(backupDirConfigKey)),
		MaxFixPasses:     viper.GetInt(maxPassesConfigKey),
		NestingThreshold: viper.GetInt(nestingConfigKey),
		EntropyThreshold: viper.GetFloat64(entropyConfigKey),
		MinSecretLength:  viper.GetInt(secretLengthConfigKey),
	}

	for _, name := range viper.GetStringSlice(categoriesConfigKey) {
		category, ok := m.ParseCategory(name)
		if !ok {
			return m.Options{}, fmt.Errorf("unknown rule category %q", name)
		}

		opts.Categories = append(opts.Categories, category)
	}

	return opts, nil
}

// newEngine assembles the engine with the default registry and a backup
// store rooted at the configured directory.
func newEngine(opts m.Options) (*engine.Engine, error) {
	return engine.New(
		fsAdapter,
		rules.DefaultRegistry(),
		backup.NewStore(opts.BackupDir),
		opts.CacheEntries,
	)
}
