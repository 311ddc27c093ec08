// Package cli wires the loguvo commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "loguvo",
	Short: "Loguvo credit ledger and referral engine",
	Long: `Loguvo runs the credit core behind the logo generator: the append-only
credit ledger, referral rewards, paid generations, and the payment-provider
webhook endpoints.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the loguvo version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loguvo %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
