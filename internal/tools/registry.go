package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/llm"
	"github.com/soyeahso/clowder/internal/logging"
)

// DuplicateToolError is returned when registering a name twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// UnknownToolError marks a dispatch against an unregistered name. It is
// captured as an error ToolResult, never propagated out of dispatch.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Registry holds the declared tools. All registrations happen at
// startup; the registry is read-only afterwards and safe for
// unsynchronized concurrent lookups.
type Registry struct {
	tools map[string]*Spec
	log   *logging.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		tools: make(map[string]*Spec),
		log:   log.Sub("tools"),
	}
}

// Register adds a tool spec. Duplicate names fail.
func (r *Registry) Register(spec *Spec) error {
	if _, exists := r.tools[spec.Name]; exists {
		return &DuplicateToolError{Name: spec.Name}
	}
	r.tools[spec.Name] = spec
	r.log.Debug().Str("tool", spec.Name).Msg("registered tool")
	return nil
}

// Get returns a tool spec by name.
func (r *Registry) Get(name string) (*Spec, bool) {
	s, ok := r.tools[name]
	return s, ok
}

// SchemaFor returns the parameter schema for a named tool.
func (r *Registry) SchemaFor(name string) ([]byte, error) {
	s, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return s.Schema(), nil
}

// Definitions returns provider-facing definitions for all tools, sorted
// by name so request payloads are deterministic.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, s := range r.tools {
		defs = append(defs, s.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Dispatch resolves and runs one tool call. All failure modes — unknown
// tool, invalid arguments, handler error, handler panic — are captured as
// an error ToolResult so the agent loop can continue.
func (r *Registry) Dispatch(ctx context.Context, call domain.ToolCallRequest) domain.ToolResult {
	spec, ok := r.tools[call.Name]
	if !ok {
		err := &UnknownToolError{Name: call.Name}
		r.log.Warn().Str("tool", call.Name).Msg("dispatch of unknown tool")
		return errorResult(call, err)
	}

	args, err := spec.validate(call.Arguments)
	if err != nil {
		r.log.Warn().Err(err).Str("tool", call.Name).Msg("tool arguments rejected")
		return errorResult(call, err)
	}

	r.log.Debug().Str("tool", call.Name).Str("callId", call.ID).Msg("executing tool")
	content, err := runHandler(ctx, spec, args)
	if err != nil {
		r.log.Warn().Err(err).Str("tool", call.Name).Msg("tool execution failed")
		return errorResult(call, err)
	}
	return domain.ToolResult{ToolCallID: call.ID, Name: call.Name, Content: content}
}

func runHandler(ctx context.Context, spec *Spec, args map[string]any) (content string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", spec.Name, rec)
		}
	}()
	return spec.Handler(ctx, args)
}

func errorResult(call domain.ToolCallRequest, err error) domain.ToolResult {
	return domain.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    "Error: " + err.Error(),
		IsError:    true,
	}
}
