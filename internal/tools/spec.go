// Package tools implements the tool registry: declared tool
// specifications, schema generation, and dispatch of provider tool calls.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/soyeahso/clowder/internal/llm"
)

// Param declares one tool parameter. Schemas are built from declared
// parameters, never inferred by reflection, so identical declarations
// always yield identical schemas.
type Param struct {
	Name        string
	Type        string // "string", "integer", "number", "boolean", "array", "object"
	Description string
	Required    bool
}

// Handler executes a tool call with validated arguments.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Spec is a registered tool: name, description, parameter schema, and
// handler. Immutable after construction.
type Spec struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler

	// Concurrent marks the tool safe for parallel dispatch within one
	// assistant turn. Default policy is sequential.
	Concurrent bool

	schema   json.RawMessage
	compiled *jsonschema.Schema
}

// NewSpec builds a tool spec, generating and compiling its JSON schema.
func NewSpec(name, description string, params []Param, handler Handler) (*Spec, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("tool %s: handler is required", name)
	}

	schema, err := buildSchema(params)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	compiled, err := jsonschema.CompileString(name+".schema.json", string(schema))
	if err != nil {
		return nil, fmt.Errorf("tool %s: compile schema: %w", name, err)
	}

	return &Spec{
		Name:        name,
		Description: description,
		Params:      params,
		Handler:     handler,
		schema:      schema,
		compiled:    compiled,
	}, nil
}

// MustSpec is NewSpec that panics on error, for static registrations.
func MustSpec(name, description string, params []Param, handler Handler) *Spec {
	s, err := NewSpec(name, description, params, handler)
	if err != nil {
		panic(err)
	}
	return s
}

// Schema returns the JSON Schema for the tool's input object.
func (s *Spec) Schema() json.RawMessage { return s.schema }

// Definition returns the provider-facing tool definition.
func (s *Spec) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        s.Name,
		Description: s.Description,
		InputSchema: s.schema,
	}
}

// validate checks raw JSON arguments against the compiled schema and
// returns them decoded.
func (s *Spec) validate(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := s.compiled.Validate(decoded); err != nil {
		return nil, fmt.Errorf("arguments do not match schema: %w", err)
	}
	args, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be a JSON object")
	}
	return args, nil
}

func buildSchema(params []Param) (json.RawMessage, error) {
	properties := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter name is required")
		}
		switch p.Type {
		case "string", "integer", "number", "boolean", "array", "object":
		default:
			return nil, fmt.Errorf("parameter %s: unknown type %q", p.Name, p.Type)
		}
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	// encoding/json sorts object keys, so the output is deterministic.
	return json.Marshal(schema)
}
