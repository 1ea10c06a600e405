// Package cli wires the pipeline behind the wiwo command surface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thesurlydev/wiwo/logger"
)

var rootCmd = &cobra.Command{
	Use:          "wiwo",
	Short:        "wiwo – what I worked on: GitHub activity over a time range",
	Long:         `wiwo reports a user's GitHub activity over a requested time window, combining the Events API with git-history mining for ranges the API no longer retains.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
