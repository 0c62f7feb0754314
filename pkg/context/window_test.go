package context

import (
	"strings"
	"testing"

	"github.com/coreagent/coreagent/pkg/agentcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAccumulatesTokens(t *testing.T) {
	w := New(8000, 6000, 4000)
	w.Append(RoleSystem, "you are an agent")
	w.Append(RoleGoal, "fix the bug")
	assert.Greater(t, w.TotalTokens(), uint(0))
	assert.Len(t, w.Entries(), 2)
}

func TestCompressIfNeededNoOpUnderSoftLimit(t *testing.T) {
	w := New(8000, 6000, 4000)
	w.Append(RoleSystem, "prompt")
	before := w.TotalTokens()
	require.NoError(t, w.CompressIfNeeded())
	assert.Equal(t, before, w.TotalTokens())
}

func TestCompressIfNeededReachesTarget(t *testing.T) {
	// target is set comfortably above what the protected tail alone totals,
	// so compression of the other 17 assistant entries is enough to converge.
	w := New(2000, 200, 300)
	w.Append(RoleSystem, "system prompt")
	w.Append(RoleGoal, "the goal")
	for i := 0; i < 20; i++ {
		w.Append(RoleAssistant, strings.Repeat("some long observation text ", 10))
	}
	before := w.TotalTokens()
	require.NoError(t, w.CompressIfNeeded())
	assert.LessOrEqual(t, w.TotalTokens(), uint(300))
	assert.Less(t, w.TotalTokens(), before)
}

func TestCompressIfNeededPreservesProtectedEntries(t *testing.T) {
	w := New(2000, 30, 200)
	w.Append(RoleSystem, "system prompt text here")
	w.Append(RoleGoal, "goal text here")
	for i := 0; i < 10; i++ {
		w.Append(RoleAssistant, strings.Repeat("filler ", 20))
	}
	require.NoError(t, w.CompressIfNeeded())

	entries := w.Entries()
	var roles []Role
	for _, e := range entries {
		roles = append(roles, e.Role)
	}
	assert.Contains(t, roles, RoleSystem)
	assert.Contains(t, roles, RoleGoal)

	assistantCount := 0
	for _, e := range entries {
		if e.Role == RoleAssistant {
			assistantCount++
		}
	}
	assert.LessOrEqual(t, assistantCount, 3)
}

func TestCompressIfNeededOverflowsWhenProtectedAloneExceedsTarget(t *testing.T) {
	w := New(10, 2, 1)
	w.Append(RoleSystem, strings.Repeat("huge system prompt ", 50))
	err := w.CompressIfNeeded()
	require.Error(t, err)
	assert.True(t, agentcore.IsKind(err, agentcore.KindContextOverflow))
}
