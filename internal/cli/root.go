// Package cli implements the habitloop command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "habitloop",
	Short: "habitloop: build habits, earn XP",
	Long: `habitloop tracks daily habits and turns them into streaks, levels
and achievements. Data lives in $HABITLOOP_HOME (default ~/.habitloop).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
