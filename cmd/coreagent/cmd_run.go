package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreagent/coreagent/pkg/config"
	"github.com/coreagent/coreagent/pkg/llmclient"
	"github.com/coreagent/coreagent/pkg/memory"
	"github.com/coreagent/coreagent/pkg/orchestrator"
	"github.com/coreagent/coreagent/pkg/sandbox"
	"github.com/coreagent/coreagent/pkg/telemetry"
	"github.com/coreagent/coreagent/pkg/tools"
)

func newRunCmd() *cobra.Command {
	var model string
	var temperature float64

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Run a goal through the agent core once and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			if model == "" {
				model = cfg.LLMModel
			}

			o, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			goal := args[0]
			for _, extra := range args[1:] {
				goal += " " + extra
			}

			outcome, err := o.Run(context.Background(), goal, orchestrator.Options{
				Model:            model,
				Temperature:      temperature,
				MaxParallel:      cfg.MaxParallelTools,
				HardTokenLimit:   cfg.HardTokenLimit,
				SoftTokenLimit:   cfg.SoftTokenLimit,
				TargetTokenLimit: cfg.TargetTokenLimit,
			})
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			fmt.Printf("decision: %s, iterations: %d, replans: %d\n", outcome.Decision, outcome.Iterations, outcome.Replans)
			fmt.Println(outcome.Answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "override the configured model")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.2, "sampling temperature")
	return cmd
}

// buildOrchestrator wires an Orchestrator from the resolved config: a
// streaming LLM client, the sandboxed tool registry, shared memory, and a
// telemetry bus. Both run and repl build one of these the same way.
func buildOrchestrator(cfg *config.ConfigView) (*orchestrator.Orchestrator, error) {
	jail, err := sandbox.New(cfg.WorkingRoot)
	if err != nil {
		return nil, fmt.Errorf("build sandbox: %w", err)
	}

	registry := tools.NewRegistry(cfg.RetryAttempts)
	registry.Register(tools.NewListDirTool(jail))
	registry.Register(tools.NewReadFileTool(jail, cfg.MaxOutputBytes))
	registry.Register(tools.NewWriteFileTool(jail))
	registry.Register(tools.NewRunCommandTool(jail.RootPath()))
	registry.Register(tools.NewSystemInfoTool(jail.RootPath()))
	registry.Register(tools.NewWebFetchTool(cfg.MaxOutputBytes, cfg.AllowNetwork))

	client := llmclient.New(cfg.LLMBaseURL, cfg.RetryAttempts)
	mem := memory.New()
	bus := telemetry.New()

	return orchestrator.New(client, registry, mem, bus), nil
}
