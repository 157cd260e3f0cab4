package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/clowder/internal/tools"
)

// Tools returns the memory tools bound to this workspace: remember
// writes a fact into long-term memory and logs it, recall searches the
// history log.
func Tools(w *Workspace) []*tools.Spec {
	return []*tools.Spec{rememberTool(w), recallTool(w)}
}

func rememberTool(w *Workspace) *tools.Spec {
	return tools.MustSpec(
		"remember",
		"Save a fact to long-term memory under a named section. Existing sections are replaced.",
		[]tools.Param{
			{Name: "section", Type: "string", Description: "Memory section heading, e.g. 'User Preferences'.", Required: true},
			{Name: "fact", Type: "string", Description: "The fact to remember.", Required: true},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			section, _ := args["section"].(string)
			fact, _ := args["fact"].(string)
			if err := w.UpdateMemory(section, fact); err != nil {
				return "", err
			}
			if err := w.AppendHistory(fmt.Sprintf("Remembered under %q: %s", section, fact)); err != nil {
				w.log.Warn().Err(err).Msg("failed to log memory update to history")
			}
			return fmt.Sprintf("Remembered under %q.", section), nil
		},
	)
}

func recallTool(w *Workspace) *tools.Spec {
	return tools.MustSpec(
		"recall",
		"Search the history log for past events matching a pattern.",
		[]tools.Param{
			{Name: "pattern", Type: "string", Description: "Case-insensitive substring to search for.", Required: true},
			{Name: "max_results", Type: "integer", Description: "Maximum matching lines to return (default 20)."},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			pattern, _ := args["pattern"].(string)
			max := 20
			if v, ok := args["max_results"].(float64); ok && v > 0 {
				max = int(v)
			}
			matches := w.GrepHistory(pattern, max)
			if len(matches) == 0 {
				return "No matching history entries.", nil
			}
			return strings.Join(matches, "\n"), nil
		},
	)
}
