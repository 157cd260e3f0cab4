package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Builtins returns the standard file and shell tools.
func Builtins() []*Spec {
	return []*Spec{
		readFileTool(),
		writeFileTool(),
		listDirTool(),
		execShellTool(),
	}
}

func expand(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func readFileTool() *Spec {
	return MustSpec(
		"read_file",
		"Read the contents of a file at the given path.",
		[]Param{
			{Name: "path", Type: "string", Description: "The file path to read (absolute or relative).", Required: true},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			data, err := os.ReadFile(expand(path))
			if err != nil {
				return "", fmt.Errorf("reading %s: %w", path, err)
			}
			return string(data), nil
		},
	)
}

func writeFileTool() *Spec {
	return MustSpec(
		"write_file",
		"Write content to a file, creating parent directories as needed.",
		[]Param{
			{Name: "path", Type: "string", Description: "The file path to write to.", Required: true},
			{Name: "content", Type: "string", Description: "The text content to write.", Required: true},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			full := expand(path)
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return "", fmt.Errorf("writing %s: %w", path, err)
			}
			if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("writing %s: %w", path, err)
			}
			return fmt.Sprintf("Written %d bytes to %s", len(content), path), nil
		},
	)
}

func listDirTool() *Spec {
	return MustSpec(
		"list_dir",
		"List the contents of a directory.",
		[]Param{
			{Name: "path", Type: "string", Description: "The directory path to list.", Required: true},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			entries, err := os.ReadDir(expand(path))
			if err != nil {
				return "", fmt.Errorf("listing %s: %w", path, err)
			}
			sort.Slice(entries, func(i, j int) bool {
				if entries[i].IsDir() != entries[j].IsDir() {
					return entries[i].IsDir()
				}
				return entries[i].Name() < entries[j].Name()
			})
			var b strings.Builder
			for _, e := range entries {
				if e.IsDir() {
					b.WriteString("[DIR] ")
				} else {
					b.WriteString("      ")
				}
				b.WriteString(e.Name())
				b.WriteString("\n")
			}
			if b.Len() == 0 {
				return "(empty)", nil
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	)
}

func execShellTool() *Spec {
	return MustSpec(
		"exec_shell",
		"Execute a shell command and return its output.",
		[]Param{
			{Name: "command", Type: "string", Description: "The shell command to run.", Required: true},
			{Name: "timeout", Type: "integer", Description: "Maximum seconds to wait (default 30)."},
			{Name: "working_dir", Type: "string", Description: "Optional working directory."},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			timeout := 30 * time.Second
			if v, ok := args["timeout"].(float64); ok && v > 0 {
				timeout = time.Duration(v) * time.Second
			}

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			if dir, ok := args["working_dir"].(string); ok && dir != "" {
				cmd.Dir = expand(dir)
			}
			out, err := cmd.CombinedOutput()
			output := strings.TrimSpace(string(out))
			if ctx.Err() == context.DeadlineExceeded {
				return "", fmt.Errorf("command timed out after %s", timeout)
			}
			if err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					return fmt.Sprintf("Exit code %d:\n%s", exitErr.ExitCode(), output), nil
				}
				return "", err
			}
			if output == "" {
				return "(no output)", nil
			}
			return output, nil
		},
	)
}
