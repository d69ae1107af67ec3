// Package cmd wires the CLI commands.
package cmd

import "github.com/spf13/cobra"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           "slopscraper",
		Short:         "Gather game launch options from public sources",
		Long:          "slopscraper acquires game launch options from wikis, community guides\nand compatibility databases, under strict rate, size and runtime bounds.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.AddCommand(newScrapeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
