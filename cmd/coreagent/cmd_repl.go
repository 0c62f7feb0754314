package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/coreagent/coreagent/pkg/orchestrator"
)

// newReplCmd is a small readline-driven demo loop: it is NOT the
// interactive shell front-end a full terminal client would provide (that
// surface lives outside this module's scope), just a way to feed goals to
// the orchestrator one at a time from a local terminal.
func newReplCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive read-eval-print loop over the agent core",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			if model == "" {
				model = cfg.LLMModel
			}

			o, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "coreagent> ",
				HistoryFile:     filepath.Join(os.TempDir(), ".coreagent_history"),
				HistoryLimit:    100,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("init readline: %w", err)
			}
			defer rl.Close()

			fmt.Println("coreagent repl — type a goal, or 'exit' to quit")
			for {
				line, err := rl.Readline()
				if err != nil {
					if err == readline.ErrInterrupt || err == io.EOF {
						fmt.Println("goodbye")
						return nil
					}
					continue
				}

				goal := strings.TrimSpace(line)
				if goal == "" {
					continue
				}
				if goal == "exit" || goal == "quit" {
					fmt.Println("goodbye")
					return nil
				}

				outcome, err := o.Run(context.Background(), goal, orchestrator.Options{Model: model})
				if err != nil {
					fmt.Printf("error: %v\n", err)
					continue
				}
				fmt.Printf("[%s after %d iterations] %s\n", outcome.Decision, outcome.Iterations, outcome.Answer)
			}
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "override the configured model")
	return cmd
}
