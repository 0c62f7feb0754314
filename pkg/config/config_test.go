package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", cfg.LLMBaseURL)
	assert.Equal(t, 4, cfg.MaxParallelTools)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestLoadOverride(t *testing.T) {
	t.Setenv("COREAGENT_LLM_MODEL", "custom-model")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "custom-model", cfg.LLMModel)
}
