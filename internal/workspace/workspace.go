// Package workspace manages the agent's on-disk workspace: identity and
// instruction files loaded into the system prompt, plus a two-layer
// memory of long-term facts (MEMORY.md) and an append-only event log
// (HISTORY.md). History is grep-searchable but never loaded wholesale.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soyeahso/clowder/internal/logging"
)

const (
	soulFile    = "SOUL.md"
	agentsFile  = "AGENTS.md"
	userFile    = "USER.md"
	memoryFile  = "MEMORY.md"
	historyFile = "HISTORY.md"

	defaultMemory  = "# Long-term Memory\n\n(No memories yet.)\n"
	defaultHistory = "# History Log\n\n"
)

// Workspace is rooted at a directory; bootstrap files live at the root
// and memory files under memory/.
type Workspace struct {
	dir string
	log *logging.Logger
	now func() time.Time
}

// New creates a workspace handle for dir. Call Init to materialize it.
func New(dir string, log *logging.Logger) *Workspace {
	return &Workspace{dir: expandHome(dir), log: log.Sub("workspace"), now: time.Now}
}

// Dir returns the workspace root directory.
func (w *Workspace) Dir() string { return w.dir }

// Init creates the workspace directories and default memory files.
func (w *Workspace) Init() error {
	if err := os.MkdirAll(filepath.Join(w.dir, "memory"), 0o700); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	if err := writeIfMissing(w.memoryPath(), defaultMemory); err != nil {
		return err
	}
	if err := writeIfMissing(w.historyPath(), defaultHistory); err != nil {
		return err
	}
	w.log.Debug().Str("dir", w.dir).Msg("workspace initialized")
	return nil
}

func (w *Workspace) memoryPath() string  { return filepath.Join(w.dir, "memory", memoryFile) }
func (w *Workspace) historyPath() string { return filepath.Join(w.dir, "memory", historyFile) }

// Soul returns SOUL.md (agent identity), empty if absent.
func (w *Workspace) Soul() string { return w.readRoot(soulFile) }

// Instructions returns AGENTS.md (agent instructions), empty if absent.
func (w *Workspace) Instructions() string { return w.readRoot(agentsFile) }

// UserContext returns USER.md (user context/preferences), empty if absent.
func (w *Workspace) UserContext() string { return w.readRoot(userFile) }

func (w *Workspace) readRoot(name string) string {
	data, err := os.ReadFile(filepath.Join(w.dir, name))
	if err != nil {
		return ""
	}
	return string(data)
}

// Memory returns the full MEMORY.md contents, empty if absent.
func (w *Workspace) Memory() string {
	data, err := os.ReadFile(w.memoryPath())
	if err != nil {
		if !os.IsNotExist(err) {
			w.log.Warn().Err(err).Msg("failed to read memory file")
		}
		return ""
	}
	return string(data)
}

// WriteMemory overwrites MEMORY.md.
func (w *Workspace) WriteMemory(content string) error {
	if err := os.MkdirAll(filepath.Dir(w.memoryPath()), 0o700); err != nil {
		return fmt.Errorf("writing memory: %w", err)
	}
	if err := os.WriteFile(w.memoryPath(), []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing memory: %w", err)
	}
	return nil
}

// UpdateMemory replaces the named "## <section>" in MEMORY.md, or
// appends it at the end when the heading does not exist yet.
func (w *Workspace) UpdateMemory(section, content string) error {
	current := w.Memory()
	heading := "## " + section

	var updated string
	if strings.Contains(current, heading) {
		var out []string
		inSection := false
		for _, line := range strings.Split(current, "\n") {
			if strings.HasPrefix(line, heading) {
				inSection = true
				out = append(out, heading, content)
				continue
			}
			if inSection && strings.HasPrefix(line, "## ") {
				inSection = false
			}
			if !inSection {
				out = append(out, line)
			}
		}
		updated = strings.Join(out, "\n")
	} else {
		updated = strings.TrimRight(current, "\n") + "\n\n" + heading + "\n" + content + "\n"
	}

	return w.WriteMemory(updated)
}

// AppendHistory appends a timestamped entry to HISTORY.md.
func (w *Workspace) AppendHistory(entry string) error {
	if err := os.MkdirAll(filepath.Dir(w.historyPath()), 0o700); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	f, err := os.OpenFile(w.historyPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	defer f.Close()

	ts := w.now().UTC().Format("2006-01-02 15:04 UTC")
	line := "\n## " + ts + "\n" + strings.TrimSpace(entry) + "\n"
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// GrepHistory returns lines of HISTORY.md containing the pattern,
// case-insensitive, capped at maxResults.
func (w *Workspace) GrepHistory(pattern string, maxResults int) []string {
	data, err := os.ReadFile(w.historyPath())
	if err != nil {
		if !os.IsNotExist(err) {
			w.log.Warn().Err(err).Msg("failed to read history file")
		}
		return nil
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	needle := strings.ToLower(pattern)
	var matches []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(strings.ToLower(line), needle) {
			matches = append(matches, line)
			if len(matches) >= maxResults {
				break
			}
		}
	}
	return matches
}

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
