package models

import "context"

// ToolFunc is the callable behind a declared tool. Args are the decoded JSON
// arguments the model supplied; the returned value is marshalled back to the model.
type ToolFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

type FunctionDeclaration struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
	Callable    ToolFunc   `json:"-"`
}

// Parameters defines the JSON Schema for function parameters
type Parameters struct {
	Type                 string                 `json:"type"`
	Properties           map[string]interface{} `json:"properties"`
	Required             []string               `json:"required"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
}
