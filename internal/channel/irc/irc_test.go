package irc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/clowder/internal/logging"
)

func TestSplitMessageShort(t *testing.T) {
	chunks := splitMessage("hello world", 400)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestSplitMessageNewlines(t *testing.T) {
	chunks := splitMessage("line one\nline two\nline three", 400)
	require.Len(t, chunks, 3)
	assert.Equal(t, "line one", chunks[0])
	assert.Equal(t, "line three", chunks[2])
}

func TestSplitMessageLongLine(t *testing.T) {
	long := strings.Repeat("a", 950)
	chunks := splitMessage(long, 400)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 400)
	assert.Len(t, chunks[1], 400)
	assert.Len(t, chunks[2], 150)
}

func TestSplitMessageEmpty(t *testing.T) {
	chunks := splitMessage("", 400)
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0])
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{Server: "irc.libera.chat", Nick: "clowder"}, logging.New(nil, "silent"))
	assert.Equal(t, "irc", c.ID())
}
