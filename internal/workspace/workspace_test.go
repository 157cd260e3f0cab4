package workspace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/clowder/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func testWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w := New(t.TempDir(), silentLog())
	require.NoError(t, w.Init())
	return w
}

func TestInitCreatesDefaults(t *testing.T) {
	w := testWorkspace(t)
	assert.Contains(t, w.Memory(), "Long-term Memory")

	// Init is idempotent and never clobbers existing content.
	require.NoError(t, w.WriteMemory("# Long-term Memory\n\n## Facts\nThe sky is blue.\n"))
	require.NoError(t, w.Init())
	assert.Contains(t, w.Memory(), "The sky is blue.")
}

func TestBootstrapFiles(t *testing.T) {
	w := testWorkspace(t)
	assert.Empty(t, w.Soul())
	assert.Empty(t, w.Instructions())

	require.NoError(t, os.WriteFile(filepath.Join(w.Dir(), "SOUL.md"), []byte("I am a cat."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(w.Dir(), "AGENTS.md"), []byte("Be concise."), 0o600))

	assert.Equal(t, "I am a cat.", w.Soul())
	assert.Equal(t, "Be concise.", w.Instructions())
}

func TestUpdateMemoryAppendsNewSection(t *testing.T) {
	w := testWorkspace(t)
	require.NoError(t, w.UpdateMemory("User Preferences", "Prefers dark mode."))

	mem := w.Memory()
	assert.Contains(t, mem, "## User Preferences")
	assert.Contains(t, mem, "Prefers dark mode.")
}

func TestUpdateMemoryReplacesSection(t *testing.T) {
	w := testWorkspace(t)
	require.NoError(t, w.UpdateMemory("Location", "Lives in Berlin."))
	require.NoError(t, w.UpdateMemory("Schedule", "Works nights."))
	require.NoError(t, w.UpdateMemory("Location", "Lives in Tokyo."))

	mem := w.Memory()
	assert.Contains(t, mem, "Lives in Tokyo.")
	assert.NotContains(t, mem, "Lives in Berlin.")
	// Other sections survive the replace.
	assert.Contains(t, mem, "Works nights.")
}

func TestHistoryAppendAndGrep(t *testing.T) {
	w := testWorkspace(t)
	require.NoError(t, w.AppendHistory("Deployed the new build."))
	require.NoError(t, w.AppendHistory("User asked about weather in Oslo."))

	matches := w.GrepHistory("oslo", 10)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0], "Oslo")

	assert.Empty(t, w.GrepHistory("nonexistent", 10))
}

func TestGrepHistoryCapsResults(t *testing.T) {
	w := testWorkspace(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.AppendHistory("repeated event"))
	}
	matches := w.GrepHistory("repeated", 3)
	assert.Len(t, matches, 3)
}

func TestMemoryTools(t *testing.T) {
	w := testWorkspace(t)
	specs := Tools(w)
	require.Len(t, specs, 2)

	byName := map[string]int{}
	for i, s := range specs {
		byName[s.Name] = i
	}
	require.Contains(t, byName, "remember")
	require.Contains(t, byName, "recall")

	remember := specs[byName["remember"]]
	out, err := remember.Handler(context.Background(), map[string]any{
		"section": "Pets",
		"fact":    "Has a cat named Miso.",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Pets")
	assert.Contains(t, w.Memory(), "Has a cat named Miso.")

	recall := specs[byName["recall"]]
	out, err = recall.Handler(context.Background(), map[string]any{"pattern": "miso"})
	require.NoError(t, err)
	assert.Contains(t, out, "Miso")

	out, err = recall.Handler(context.Background(), map[string]any{"pattern": "zebra"})
	require.NoError(t, err)
	assert.Equal(t, "No matching history entries.", out)
}

func TestToolSchemasWellFormed(t *testing.T) {
	w := testWorkspace(t)
	for _, s := range Tools(w) {
		var schema map[string]any
		require.NoError(t, json.Unmarshal(s.Schema(), &schema))
		assert.Equal(t, "object", schema["type"])
	}
}
