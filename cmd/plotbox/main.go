package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var profileFlag string

var rootCmd = &cobra.Command{
	Use:   "plotbox",
	Short: "plotbox - Sandboxed numeric scripting and chart generation",
	Long: `plotbox runs small Lua scripts in a restricted sandbox with numeric,
data-frame, and plotting libraries built in.

Scripts are statically vetted before execution: only allowlisted modules
and builtins are reachable, and every run gets a fresh environment.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "Capability profile YAML (overrides the stock policy)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
