package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coreagent/coreagent/pkg/agentcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWithinRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))

	j, err := New(dir)
	require.NoError(t, err)

	resolved, err := j.Resolve("a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.txt"), resolved)
}

func TestResolveRejectsDotDotEscape(t *testing.T) {
	dir := t.TempDir()
	j, err := New(dir)
	require.NoError(t, err)

	_, err = j.Resolve("../../etc/passwd")
	require.Error(t, err)
	assert.True(t, agentcore.IsKind(err, agentcore.KindJailEscape))
}

func TestResolveRejectsAbsoluteOutsidePath(t *testing.T) {
	dir := t.TempDir()
	j, err := New(dir)
	require.NoError(t, err)

	_, err = j.Resolve("/etc/passwd")
	require.Error(t, err)
	assert.True(t, agentcore.IsKind(err, agentcore.KindJailEscape))
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(dir, "link.txt")))

	j, err := New(dir)
	require.NoError(t, err)

	_, err = j.Resolve("link.txt")
	require.Error(t, err)
	assert.True(t, agentcore.IsKind(err, agentcore.KindJailEscape))
}

func TestResolveAllowsNotYetCreatedFile(t *testing.T) {
	dir := t.TempDir()
	j, err := New(dir)
	require.NoError(t, err)

	resolved, err := j.Resolve("new/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new", "nested", "file.txt"), resolved)
}

func TestResolveRejectsEscapeThroughNotYetCreatedSymlinkAncestor(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "linked")))

	j, err := New(dir)
	require.NoError(t, err)

	_, err = j.Resolve("linked/not-yet-created.txt")
	require.Error(t, err)
	assert.True(t, agentcore.IsKind(err, agentcore.KindJailEscape))
}
