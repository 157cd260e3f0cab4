package agent

import (
	"strings"
	"time"

	"github.com/soyeahso/clowder/internal/workspace"
)

// PromptSources collects the inputs to the system prompt. All fields are
// optional except Base.
type PromptSources struct {
	Base     string
	Ws       *workspace.Workspace
	SenderID string
	Timezone string
	Extra    string
	Now      time.Time
}

// BuildSystemPrompt assembles the system prompt from its sections:
// base prompt, workspace identity and instruction files, long-term
// memory, authorized sender, and current date. Sections with no content
// are omitted.
func BuildSystemPrompt(src PromptSources) string {
	parts := []string{src.Base}

	if src.Ws != nil {
		if soul := strings.TrimSpace(src.Ws.Soul()); soul != "" {
			parts = append(parts, soul)
		}
		if instr := strings.TrimSpace(src.Ws.Instructions()); instr != "" {
			parts = append(parts, instr)
		}
		if user := strings.TrimSpace(src.Ws.UserContext()); user != "" {
			parts = append(parts, user)
		}
		if mem := strings.TrimSpace(src.Ws.Memory()); mem != "" {
			parts = append(parts, "## Memory\n"+mem)
		}
	}

	if src.SenderID != "" {
		parts = append(parts, "## Authorized Senders\n"+src.SenderID)
	}

	tz := src.Timezone
	if tz == "" {
		tz = "UTC"
	}
	now := src.Now
	if now.IsZero() {
		now = time.Now()
	}
	parts = append(parts, "## Current Date & Time\n"+now.UTC().Format("2006-01-02 15:04 UTC")+" ("+tz+")")

	if src.Extra != "" {
		parts = append(parts, src.Extra)
	}

	return strings.Join(parts, "\n\n")
}
