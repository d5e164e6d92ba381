// Init command: create configuration and data directories and apply the
// storage schema.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize vapor storage",
	Long:  "Create configuration and data directories, then initialize the storage backend.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir := resolveConfigDir()
	if err := writeConfigIfMissing(configDir, flagDataDir); err != nil {
		return err
	}

	eng, err := attachEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	fmt.Printf("Initialized vapor storage (config: %s, data: %s)\n",
		configDir, eng.backend.Config().DataDir)
	return nil
}
