// signalbot evaluates crypto symbols with a technical-indicator vote,
// simulates paper trades on the result and pushes reports to Telegram.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	envFile      string
	settingsPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "signalbot",
		Short: "Indicator-vote trading signal bot with paper trading",
		Long: `signalbot polls an exchange for OHLCV bars, computes a set of
technical indicators, votes them into a Buy/Sell/Neutral signal, simulates
paper trades and sends a report per symbol.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "", "settings YAML (defaults to SETTINGS_PATH)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("signalbot version %s\n", version)
		},
	}
}
