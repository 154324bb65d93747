package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildVersion is overridden at build time via -ldflags.
var buildVersion = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the allocorectl version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(buildVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
