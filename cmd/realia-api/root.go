package main

import "github.com/spf13/cobra"

var (
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "realia-api",
	Short: "Realia image authenticity api",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Override REALIA_LOG_LEVEL")
}
