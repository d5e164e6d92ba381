// Version command for the vapor CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is the CLI release version.
const version = "v0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vapor version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("vapor", version)
	},
}
