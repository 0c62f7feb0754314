package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreagent/coreagent/pkg/sandbox"
	"github.com/coreagent/coreagent/pkg/tools"
)

// newDoctorCmd prints the resolved configuration and the tool registry it
// produces, so a user can confirm the environment is wired up before
// running anything against a live model server.
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Print the resolved configuration and registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()

			fmt.Println("configuration:")
			fmt.Printf("  llm_base_url:       %s\n", cfg.LLMBaseURL)
			fmt.Printf("  llm_model:          %s\n", cfg.LLMModel)
			fmt.Printf("  working_root:       %s\n", cfg.WorkingRoot)
			fmt.Printf("  data_dir:           %s\n", cfg.DataDir)
			fmt.Printf("  temperature:        %.2f\n", cfg.Temperature)
			fmt.Printf("  max_parallel_tools: %d\n", cfg.MaxParallelTools)
			fmt.Printf("  retry_attempts:     %d\n", cfg.RetryAttempts)
			fmt.Printf("  max_output_bytes:   %d\n", cfg.MaxOutputBytes)
			fmt.Printf("  allow_network:      %t\n", cfg.AllowNetwork)
			fmt.Printf("  hard_token_limit:   %d\n", cfg.HardTokenLimit)
			fmt.Printf("  soft_token_limit:   %d\n", cfg.SoftTokenLimit)
			fmt.Printf("  target_token_limit: %d\n", cfg.TargetTokenLimit)
			fmt.Printf("  log_level:          %s\n", cfg.LogLevel)

			jail, err := sandbox.New(cfg.WorkingRoot)
			if err != nil {
				return fmt.Errorf("sandbox: %w", err)
			}

			registry := tools.NewRegistry(cfg.RetryAttempts)
			registry.Register(tools.NewListDirTool(jail))
			registry.Register(tools.NewReadFileTool(jail, cfg.MaxOutputBytes))
			registry.Register(tools.NewWriteFileTool(jail))
			registry.Register(tools.NewRunCommandTool(jail.RootPath()))
			registry.Register(tools.NewSystemInfoTool(jail.RootPath()))
			registry.Register(tools.NewWebFetchTool(cfg.MaxOutputBytes, cfg.AllowNetwork))

			fmt.Println("\nregistered tools:")
			for _, name := range registry.List() {
				fmt.Printf("  - %s\n", name)
			}
			return nil
		},
	}
}
