package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/plotbox/internal/config"
	"github.com/michaelbrown/plotbox/internal/policy"
	"github.com/michaelbrown/plotbox/internal/sandbox"
)

var (
	evalFlag    string
	plotOutFlag string
	jsonFlag    bool
)

var runCmd = &cobra.Command{
	Use:   "run [script.lua]",
	Short: "Run a script in the sandbox",
	Long: `Run a script file (or an inline snippet with -e) in the sandbox
and print its output.

Examples:
  plotbox run analysis.lua
  plotbox run -e 'print(num.mean({1, 2, 3}))'
  plotbox run chart.lua --plot-out chart.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&evalFlag, "eval", "e", "", "Run an inline snippet instead of a file")
	runCmd.Flags().StringVar(&plotOutFlag, "plot-out", "", "Write the rendered plot PNG to this file")
	runCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the full result as JSON")
	rootCmd.AddCommand(runCmd)
}

// loadPolicy builds the execution policy from config, applying the
// --profile flag when set.
func loadPolicy() (policy.Policy, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return policy.Policy{}, nil, fmt.Errorf("loading config: %w", err)
	}
	if profileFlag != "" {
		cfg.Exec.Profile = profileFlag
	}
	pol, err := cfg.Policy()
	if err != nil {
		return policy.Policy{}, nil, err
	}
	return pol, cfg, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	source := evalFlag
	if source == "" {
		if len(args) == 0 {
			return fmt.Errorf("provide a script file or -e 'code'")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}
		source = string(data)
	}

	pol, _, err := loadPolicy()
	if err != nil {
		return err
	}

	exec := sandbox.NewExecutor(pol)
	res := exec.Run(context.Background(), sandbox.Request{Source: source})

	if jsonFlag {
		data, err := json.MarshalIndent(sandbox.Encode(res), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		printResult(res)
	}

	if plotOutFlag != "" && len(res.Image) > 0 {
		if err := os.WriteFile(plotOutFlag, res.Image, 0o644); err != nil {
			return fmt.Errorf("writing plot: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Plot written to %s\n", plotOutFlag)
	}

	if !res.Success {
		os.Exit(1)
	}
	return nil
}

func printResult(res *sandbox.Result) {
	if res.Output != "" {
		fmt.Print(res.Output)
	}

	if !res.Success {
		fmt.Fprintf(os.Stderr, "\033[31m%s error: %s\033[0m\n", res.ErrKind, res.ErrMessage)
		if res.Traceback != "" {
			fmt.Fprintln(os.Stderr, res.Traceback)
		}
		return
	}

	if len(res.Bindings) > 0 {
		names := make([]string, 0, len(res.Bindings))
		for name := range res.Bindings {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(os.Stderr, "\033[90mvariables:\033[0m")
		for _, name := range names {
			fmt.Fprintf(os.Stderr, "  \033[90m%s = %s\033[0m\n", name, res.Bindings[name])
		}
	}
}
