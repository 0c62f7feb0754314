package main

import (
	"testing"

	"github.com/coreagent/coreagent/pkg/corelog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected corelog.Level
	}{
		{"debug", corelog.Debug},
		{"warn", corelog.Warn},
		{"error", corelog.Error},
		{"info", corelog.Info},
		{"unknown", corelog.Info},
		{"", corelog.Info},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["repl"])
	assert.True(t, names["doctor"])
}
