package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/coreagent/coreagent/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDirTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644))
	jail, err := sandbox.New(dir)
	require.NoError(t, err)

	tool := NewListDirTool(jail)
	result, err := tool.Execute(context.Background(), map[string]any{"path": "."})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "FILE: f.txt")
}

func TestListDirToolRecursive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("x"), 0o644))
	jail, err := sandbox.New(dir)
	require.NoError(t, err)

	tool := NewListDirTool(jail)
	result, err := tool.Execute(context.Background(), map[string]any{"path": ".", "recursive": true})
	require.NoError(t, err)
	assert.Contains(t, result.Output, filepath.Join("sub", "nested.txt"))
}

func TestReadFileToolRespectsMaxBytes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("0123456789"), 0o644))
	jail, err := sandbox.New(dir)
	require.NoError(t, err)
	tool := NewReadFileTool(jail, 1024)

	result, err := tool.Execute(context.Background(), map[string]any{"path": "f.txt", "max_bytes": float64(4)})
	require.NoError(t, err)
	assert.Equal(t, "0123", result.Output)
}

func TestWriteFileToolAppends(t *testing.T) {
	jail, err := sandbox.New(t.TempDir())
	require.NoError(t, err)
	tool := NewWriteFileTool(jail)

	_, err = tool.Execute(context.Background(), map[string]any{"path": "log.txt", "content": "one\n"})
	require.NoError(t, err)
	result, err := tool.Execute(context.Background(), map[string]any{"path": "log.txt", "content": "two\n", "append": true})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	readTool := NewReadFileTool(jail, 1024)
	readResult, err := readTool.Execute(context.Background(), map[string]any{"path": "log.txt"})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", readResult.Output)
}

func TestReadFileToolMissingFile(t *testing.T) {
	jail, err := sandbox.New(t.TempDir())
	require.NoError(t, err)
	tool := NewReadFileTool(jail, 0)

	result, err := tool.Execute(context.Background(), map[string]any{"path": "missing.txt"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestReadFileToolRejectsEscape(t *testing.T) {
	jail, err := sandbox.New(t.TempDir())
	require.NoError(t, err)
	tool := NewReadFileTool(jail, 0)

	result, err := tool.Execute(context.Background(), map[string]any{"path": "../../etc/passwd"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestWriteFileToolCreatesParentDirs(t *testing.T) {
	jail, err := sandbox.New(t.TempDir())
	require.NoError(t, err)
	tool := NewWriteFileTool(jail)

	result, err := tool.Execute(context.Background(), map[string]any{"path": "nested/dir/file.txt", "content": "hi"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestRunCommandToolEchoes(t *testing.T) {
	tool := NewRunCommandTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello"})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "hello")
}

func TestRunCommandToolTimesOut(t *testing.T) {
	tool := NewRunCommandTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{
		"command":     "sleep 5",
		"timeout_sec": float64(0.1),
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRunCommandToolUsesShellForPipes(t *testing.T) {
	tool := NewRunCommandTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello | tr a-z A-Z"})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "HELLO")
}

func TestSystemInfoTool(t *testing.T) {
	tool := NewSystemInfoTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{"info_type": "os"})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "os=")
}

func TestSystemInfoToolRejectsUnknownInfoType(t *testing.T) {
	tool := NewSystemInfoTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{"info_type": "bogus"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestWebFetchTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool(0, true)
	result, err := tool.Execute(context.Background(), map[string]any{"url": srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "pong", result.Output)
}

func TestWebFetchToolRejectsBadScheme(t *testing.T) {
	tool := NewWebFetchTool(0, true)
	result, err := tool.Execute(context.Background(), map[string]any{"url": "ftp://example.com"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestWebFetchToolRejectsWhenNetworkDisabled(t *testing.T) {
	tool := NewWebFetchTool(0, false)
	result, err := tool.Execute(context.Background(), map[string]any{"url": "http://example.com"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestLoadFixtures(t *testing.T) {
	fixtures, err := LoadFixtures("testdata/fixtures.yaml")
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	assert.Equal(t, "read_file", fixtures[0].Name)
}
