// Package tools holds the tool registry behind the MCP surface. Each tool is a
// named function over JSON-shaped arguments; the subpackages register the
// execution, research, workspace and turn tools.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ToolCategory groups tools for listing.
type ToolCategory string

const (
	// CategoryTurn covers full correction-loop turns.
	CategoryTurn ToolCategory = "/turn"

	// CategoryExecute covers one-shot python and shell execution.
	CategoryExecute ToolCategory = "/execute"

	// CategoryResearch covers web search.
	CategoryResearch ToolCategory = "/research"

	// CategoryWorkspace covers read-only workspace inspection.
	CategoryWorkspace ToolCategory = "/workspace"

	// CategoryMemory covers memory recall.
	CategoryMemory ToolCategory = "/memory"
)

// Categories returns every category in listing order.
func Categories() []ToolCategory {
	return []ToolCategory{CategoryTurn, CategoryExecute, CategoryResearch, CategoryWorkspace, CategoryMemory}
}

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// JSONSchema renders the schema as a JSON Schema object.
func (s ToolSchema) JSONSchema() map[string]any {
	props := s.Properties
	if props == nil {
		props = map[string]Property{}
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Summary renders the arguments on one line: required ones in declared order,
// then the optional ones by name.
func (s ToolSchema) Summary() string {
	required := make(map[string]bool, len(s.Required))
	var parts []string
	for _, name := range s.Required {
		required[name] = true
		parts = append(parts, fmt.Sprintf("%s (%s, required)", name, s.Properties[name].Type))
	}
	var optional []string
	for name := range s.Properties {
		if !required[name] {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	for _, name := range optional {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, s.Properties[name].Type))
	}
	return strings.Join(parts, ", ")
}

// ExecuteFunc is the signature for tool execution.
// Returns the result string and any error.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one registered tool.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does.
	Description string

	// Category groups the tool for listing.
	Category ToolCategory

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema

	// Priority orders tools within a category (default 50, higher first).
	Priority int
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	ToolName string
	Result   string
	Error    error
	Duration time.Duration
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}
