package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "callguard",
	Short: "Transaction call guard for delegated vault operators",
	Long:  "Validates proposed outbound contract calls from a delegated operator against a governance-controlled whitelist registry. Every call is admitted or denied before it reaches the chain.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
