// Package config resolves the small set of env-tagged settings the agent
// core needs. It deliberately does not support a JSON/TOML config file: the
// teacher's config layer does, but that file format mostly exists to
// configure the messaging-channel adapters this module doesn't have.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ConfigView is the resolved, read-only configuration surface the
// orchestrator and CLI consume. Field names mirror the external interface's
// configuration view: llm_host/llm_port are folded into a single
// LLMBaseURL (the client only ever needs the combined dial target).
type ConfigView struct {
	LLMBaseURL  string  `env:"COREAGENT_LLM_BASE_URL" envDefault:"http://localhost:11434"`
	LLMModel    string  `env:"COREAGENT_LLM_MODEL" envDefault:"llama3"`
	WorkingRoot string  `env:"COREAGENT_WORKING_ROOT" envDefault:"."`
	DataDir     string  `env:"COREAGENT_DATA_DIR" envDefault:"./.coreagent"`
	Temperature float64 `env:"COREAGENT_TEMPERATURE" envDefault:"0.2"`

	HardTokenLimit   uint `env:"COREAGENT_HARD_TOKEN_LIMIT" envDefault:"8000"`
	SoftTokenLimit   uint `env:"COREAGENT_SOFT_TOKEN_LIMIT" envDefault:"6000"`
	TargetTokenLimit uint `env:"COREAGENT_TARGET_TOKEN_LIMIT" envDefault:"4000"`
	MemoryCapacity   int  `env:"COREAGENT_MEMORY_CAPACITY" envDefault:"100"`

	MaxParallelTools      int  `env:"COREAGENT_MAX_PARALLEL_TOOLS" envDefault:"4"`
	RetryAttempts         int  `env:"COREAGENT_RETRY_ATTEMPTS" envDefault:"3"`
	DefaultToolTimeoutSec uint `env:"COREAGENT_DEFAULT_TOOL_TIMEOUT_SEC" envDefault:"60"`

	MaxOutputBytes int  `env:"COREAGENT_MAX_OUTPUT_BYTES" envDefault:"2097152"`
	AllowNetwork   bool `env:"COREAGENT_ALLOW_NETWORK" envDefault:"false"`

	LogLevel string `env:"COREAGENT_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"COREAGENT_LOG_FILE" envDefault:""`
}

// Load resolves ConfigView entirely from the process environment.
func Load() (*ConfigView, error) {
	cfg := &ConfigView{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
