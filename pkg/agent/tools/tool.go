package tools

import (
	"context"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// Tool is a named, schema-described operation the reasoning service may
// request. Tools report failures as ToolResult values; a returned error means
// the tool itself broke and is converted by the dispatcher.
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "android_tap_text")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Schema returns the JSON schema for this tool's input parameters
	Schema() map[string]interface{}

	// Execute runs the tool with decoded JSON arguments.
	Execute(ctx context.Context, args map[string]interface{}) (types.ToolResult, error)
}

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Property builders for BaseToolSchema.

func StringProp(description string) map[string]interface{} {
	return prop("string", description)
}

func IntProp(description string) map[string]interface{} {
	return prop("integer", description)
}

func NumberProp(description string) map[string]interface{} {
	return prop("number", description)
}

func BoolProp(description string) map[string]interface{} {
	return prop("boolean", description)
}

func EnumProp(description string, values ...string) map[string]interface{} {
	p := prop("string", description)
	p["enum"] = values
	return p
}

func prop(kind, description string) map[string]interface{} {
	p := map[string]interface{}{"type": kind}
	if description != "" {
		p["description"] = description
	}
	return p
}

// Func is a Tool backed by a closure.
type Func struct {
	ToolName        string
	ToolDescription string
	Parameters      map[string]interface{}
	Fn              func(ctx context.Context, args map[string]interface{}) (types.ToolResult, error)
}

func (f *Func) Name() string        { return f.ToolName }
func (f *Func) Description() string { return f.ToolDescription }

func (f *Func) Schema() map[string]interface{} {
	if f.Parameters == nil {
		return BaseToolSchema(nil, nil)
	}
	return f.Parameters
}

func (f *Func) Execute(ctx context.Context, args map[string]interface{}) (types.ToolResult, error) {
	return f.Fn(ctx, args)
}

// Typed builds a Func whose arguments are decoded into T before fn runs.
// Decoding failures become an invalid_arguments result without calling fn.
func Typed[T any](name, description string, schema map[string]interface{}, fn func(ctx context.Context, args T) types.ToolResult) *Func {
	return TypedE(name, description, schema, func(ctx context.Context, args T) (types.ToolResult, error) {
		return fn(ctx, args), nil
	})
}

// TypedE is Typed for handlers that can fail outright. Their errors reach
// the dispatcher, which converts or propagates them.
func TypedE[T any](name, description string, schema map[string]interface{}, fn func(ctx context.Context, args T) (types.ToolResult, error)) *Func {
	return &Func{
		ToolName:        name,
		ToolDescription: description,
		Parameters:      schema,
		Fn: func(ctx context.Context, raw map[string]interface{}) (types.ToolResult, error) {
			var args T
			if err := DecodeArgs(raw, &args); err != nil {
				return types.Fail(types.ErrInvalidArguments, err.Error()), nil
			}
			return fn(ctx, args)
		},
	}
}
