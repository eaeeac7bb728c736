package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "kinobot",
	Short:         "Telegram bot that hands out videos by code",
	Long:          `Users send a code and get the video or a menu of its parts. Commands: poll, webhook, catalog, stats.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.RunE = runPoll // default: same as "kinobot poll"
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")

	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(statsCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
