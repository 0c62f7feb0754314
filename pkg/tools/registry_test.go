package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/coreagent/coreagent/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJail(t *testing.T) *sandbox.Jail {
	dir := t.TempDir()
	j, err := sandbox.New(dir)
	require.NoError(t, err)
	return j
}

func TestRegistryListIsSorted(t *testing.T) {
	r := NewRegistry(1)
	r.Register(NewSystemInfoTool(t.TempDir()))
	r.Register(NewListDirTool(newTestJail(t)))

	assert.Equal(t, []string{"list_dir", "system_info"}, r.List())
}

func TestInvokeRejectsUnknownTool(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Invoke(context.Background(), Call{Name: "nope"})
	require.Error(t, err)
}

func TestInvokeValidatesRequiredArgs(t *testing.T) {
	r := NewRegistry(1)
	r.Register(NewReadFileTool(newTestJail(t), 0))
	_, err := r.Invoke(context.Background(), Call{Name: "read_file", Args: map[string]any{}})
	require.Error(t, err)
}

func TestInvokeReadWriteRoundTrip(t *testing.T) {
	jail := newTestJail(t)
	r := NewRegistry(1)
	r.Register(NewWriteFileTool(jail))
	r.Register(NewReadFileTool(jail, 0))

	_, err := r.Invoke(context.Background(), Call{Name: "write_file", Args: map[string]any{"path": "a.txt", "content": "hello"}})
	require.NoError(t, err)

	result, err := r.Invoke(context.Background(), Call{Name: "read_file", Args: map[string]any{"path": "a.txt"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Output)
}

func TestInvokeParallelRunsReadOnlyConcurrently(t *testing.T) {
	jail := newTestJail(t)
	require.NoError(t, os.WriteFile(filepath.Join(jail.RootPath(), "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(jail.RootPath(), "b.txt"), []byte("b"), 0o644))

	r := NewRegistry(1)
	r.Register(NewReadFileTool(jail, 0))

	calls := []Call{
		{Name: "read_file", Args: map[string]any{"path": "a.txt"}},
		{Name: "read_file", Args: map[string]any{"path": "b.txt"}},
	}
	invocations := r.InvokeParallel(context.Background(), calls, 2)
	require.Len(t, invocations, 2)
	for _, inv := range invocations {
		require.NoError(t, inv.Err)
	}
}

func TestEligibleForParallel(t *testing.T) {
	r := NewRegistry(1)
	jail := newTestJail(t)
	r.Register(NewReadFileTool(jail, 0))
	r.Register(NewWriteFileTool(jail))

	assert.True(t, r.EligibleForParallel("read_file"))
	assert.False(t, r.EligibleForParallel("write_file"))
}

func TestPathLockSerializesSameFileWrites(t *testing.T) {
	jail := newTestJail(t)
	r := NewRegistry(1)
	r.Register(NewWriteFileTool(jail))

	calls := []Call{
		{Name: "write_file", Args: map[string]any{"path": "shared.txt", "content": "one"}},
		{Name: "write_file", Args: map[string]any{"path": "shared.txt", "content": "two"}},
	}
	invocations := r.InvokeParallel(context.Background(), calls, 2)
	for _, inv := range invocations {
		require.NoError(t, inv.Err)
	}
}
