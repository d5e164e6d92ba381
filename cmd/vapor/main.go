// Package main provides the vapor CLI, an operator tool over the message
// lifecycle engine: inspect threads, add records, redact, and sweep due
// expirations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "vapor",
	Short: "Vapor manages ephemeral message records",
	Long: `Vapor is a storage-layer lifecycle engine for disappearing messages.
It manages message records with their attachments, quotes, stickers, and
self-destruct timers in a local SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: .vapor)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: .vapor-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserError)
	}
}
