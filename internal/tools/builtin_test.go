package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/clowder/internal/domain"
)

func builtinRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(silentLog())
	for _, spec := range Builtins() {
		require.NoError(t, reg.Register(spec))
	}
	return reg
}

func dispatchArgs(t *testing.T, reg *Registry, name string, args map[string]any) domain.ToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return reg.Dispatch(context.Background(), domain.ToolCallRequest{
		ID:        "call-1",
		Name:      name,
		Arguments: raw,
	})
}

func TestReadWriteFile(t *testing.T) {
	reg := builtinRegistry(t)
	path := filepath.Join(t.TempDir(), "nested", "note.txt")

	res := dispatchArgs(t, reg, "write_file", map[string]any{
		"path":    path,
		"content": "hello world",
	})
	require.False(t, res.IsError, res.Content)

	res = dispatchArgs(t, reg, "read_file", map[string]any{"path": path})
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "hello world", res.Content)
}

func TestReadFileMissing(t *testing.T) {
	reg := builtinRegistry(t)
	res := dispatchArgs(t, reg, "read_file", map[string]any{
		"path": filepath.Join(t.TempDir(), "missing.txt"),
	})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "Error:")
}

func TestListDir(t *testing.T) {
	reg := builtinRegistry(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	res := dispatchArgs(t, reg, "list_dir", map[string]any{"path": dir})
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "[DIR] sub")
	assert.Contains(t, res.Content, "a.txt")
}

func TestListDirEmpty(t *testing.T) {
	reg := builtinRegistry(t)
	res := dispatchArgs(t, reg, "list_dir", map[string]any{"path": t.TempDir()})
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "(empty)", res.Content)
}

func TestExecShell(t *testing.T) {
	reg := builtinRegistry(t)
	res := dispatchArgs(t, reg, "exec_shell", map[string]any{"command": "echo hi"})
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "hi", res.Content)
}

func TestExecShellNonZeroExit(t *testing.T) {
	reg := builtinRegistry(t)
	res := dispatchArgs(t, reg, "exec_shell", map[string]any{"command": "exit 3"})
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "Exit code 3")
}

func TestExecShellTimeout(t *testing.T) {
	reg := builtinRegistry(t)
	res := dispatchArgs(t, reg, "exec_shell", map[string]any{
		"command": "sleep 5",
		"timeout": 1,
	})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "timed out")
}
