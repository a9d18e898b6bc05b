package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bugsafe/bugsafe/internal/bundle/schema"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bugsafe version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("bugsafe version %s (bundle schema %s)\n", schema.BugsafeVersion, schema.BundleVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
