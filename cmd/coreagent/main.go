package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coreagent/coreagent/pkg/config"
	"github.com/coreagent/coreagent/pkg/corelog"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coreagent",
		Short: "An autonomous terminal agent that drives a local model through iterative tool use",
	}
	cmd.AddCommand(newRunCmd(), newReplCmd(), newDoctorCmd())
	return cmd
}

// loadConfigOrExit loads the process config and wires up logging, the way
// every subcommand needs to start.
func loadConfigOrExit() *config.ConfigView {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.LogFile != "" {
		if err := corelog.EnableFileLogging(cfg.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to enable file logging: %v\n", err)
		}
	}
	corelog.SetLevel(parseLevel(cfg.LogLevel))
	return cfg
}

func parseLevel(s string) corelog.Level {
	switch s {
	case "debug":
		return corelog.Debug
	case "warn":
		return corelog.Warn
	case "error":
		return corelog.Error
	default:
		return corelog.Info
	}
}
