// Package prompt provides a centralized prompt library for LLM interactions.
// Prompts are defined in JSON files and loaded at runtime, so wording can
// change without a rebuild.
package prompt

import (
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// PromptTemplate represents a reusable prompt with metadata
type PromptTemplate struct {
	ID               string           `json:"id"`                   // Unique identifier (e.g., "narrative.revenue_analysis")
	Name             string           `json:"name"`                 // Human-readable name
	Category         string           `json:"category"`             // Category (narrative, ...)
	Description      string           `json:"description"`          // Description of prompt purpose
	SystemPrompt     string           `json:"system_prompt"`        // The system prompt content
	UserPromptTmpl   string           `json:"user_prompt_template"` // Go template for user prompt
	ResponseSchemaID string           `json:"response_schema_ref"`  // Reference to response schema
	Variables        []PromptVariable `json:"variables"`            // Variables used in template
	Version          string           `json:"version"`
}

// PromptVariable defines a variable used in a prompt template
type PromptVariable struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, int, float, array, object
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default"`
}

// ResponseSchema represents the expected JSON response structure
type ResponseSchema struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	JSONSchema  string `json:"json_schema"` // JSON Schema definition as string

	once     sync.Once
	resolved *jsonschema.Resolved
	err      error
}

// PromptExecutionContext holds runtime values for prompt execution
type PromptExecutionContext struct {
	Variables map[string]interface{}
}

// NewContext creates a new execution context
func NewContext() *PromptExecutionContext {
	return &PromptExecutionContext{
		Variables: make(map[string]interface{}),
	}
}

// Set adds a variable to the context
func (c *PromptExecutionContext) Set(key string, value interface{}) *PromptExecutionContext {
	c.Variables[key] = value
	return c
}

// Missing returns the names of required variables that were not set and have no default.
func (c *PromptExecutionContext) Missing(pt *PromptTemplate) []string {
	var missing []string
	for _, v := range pt.Variables {
		if !v.Required {
			continue
		}
		if _, ok := c.Variables[v.Name]; ok {
			continue
		}
		if v.Default != "" {
			c.Variables[v.Name] = v.Default
			continue
		}
		missing = append(missing, v.Name)
	}
	return missing
}
