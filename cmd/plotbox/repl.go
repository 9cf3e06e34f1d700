package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/plotbox/internal/catalog"
	"github.com/michaelbrown/plotbox/internal/sandbox"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive sandbox session",
	Long: `Start an interactive session that runs each line in the sandbox.

Every line executes in a fresh environment: variables do not persist
between lines. Use multi-line scripts via 'plotbox run' for stateful work.

Examples:
  plotbox repl
  plotbox repl --profile strict.yaml`,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	pol, _, err := loadPolicy()
	if err != nil {
		return err
	}

	exec := sandbox.NewExecutor(pol)

	fmt.Println("plotbox - Sandboxed Scripting REPL")
	fmt.Println("Each line runs in a fresh environment.")
	fmt.Println("Type /help for commands, /quit to exit")
	fmt.Println()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mlua>\033[0m ",
		HistoryFile:     "/tmp/plotbox_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleReplCommand(input) {
				continue
			}
		}

		res := exec.Run(context.Background(), sandbox.Request{Source: input})
		printResult(res)

		if res.Success && len(res.Image) > 0 {
			fmt.Fprintf(os.Stderr, "\033[90m(plot rendered, %d bytes; use 'plotbox run --plot-out' to save one)\033[0m\n", len(res.Image))
		}
		fmt.Println()
	}
}

func handleReplCommand(input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit", "/q":
		fmt.Println("Goodbye!")
		os.Exit(0)
	case "/functions":
		groups := catalog.Functions()
		for _, group := range []string{"builtin", "numeric", "numeric.random", "frame", "plot"} {
			fmt.Printf("%s:\n", group)
			fmt.Printf("  %s\n", strings.Join(groups[group], ", "))
		}
		fmt.Println()
	case "/sample":
		fmt.Println(catalog.SampleData().Code)
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help       - Show this help")
		fmt.Println("  /functions  - List available library functions")
		fmt.Println("  /sample     - Show a sample script")
		fmt.Println("  /quit       - Exit")
		fmt.Println()
	default:
		fmt.Printf("Unknown command: %s (try /help)\n\n", input)
	}
	return true
}
