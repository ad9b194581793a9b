package prompt

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Registry holds the loaded prompt templates and the compiled response schemas
// their outputs are checked against.
type Registry struct {
	mu      sync.RWMutex
	prompts map[string]*PromptTemplate
	schemas map[string]*ResponseSchema
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		prompts: make(map[string]*PromptTemplate),
		schemas: make(map[string]*ResponseSchema),
	}
}

// Get returns the process-wide registry filled by LoadFromDirectory.
func Get() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register stores pt under its ID, replacing any earlier version.
func (r *Registry) Register(pt *PromptTemplate) error {
	if pt.ID == "" {
		return fmt.Errorf("prompt ID cannot be empty")
	}
	r.mu.Lock()
	r.prompts[pt.ID] = pt
	r.mu.Unlock()
	return nil
}

// RegisterSchema compiles schema.JSONSchema and stores it under schema.ID.
// A schema that does not compile is rejected.
func (r *Registry) RegisterSchema(schema *ResponseSchema) error {
	if schema.ID == "" {
		return fmt.Errorf("schema ID cannot be empty")
	}
	if err := schema.compile(); err != nil {
		return err
	}
	r.mu.Lock()
	r.schemas[schema.ID] = schema
	r.mu.Unlock()
	return nil
}

// GetPrompt retrieves a prompt by ID
func (r *Registry) GetPrompt(id string) (*PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.prompts[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt not found: %s", id)
}

// GetSchema retrieves a compiled response schema by ID
func (r *Registry) GetSchema(id string) (*ResponseSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.schemas[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("schema not found: %s", id)
}

// SchemaFor returns the response schema pt refers to.
func (r *Registry) SchemaFor(pt *PromptTemplate) (*ResponseSchema, error) {
	if pt.ResponseSchemaID == "" {
		return nil, fmt.Errorf("prompt %s has no response schema", pt.ID)
	}
	return r.GetSchema(pt.ResponseSchemaID)
}

// Count returns the number of registered prompts
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts)
}

func (s *ResponseSchema) compile() error {
	s.once.Do(func() {
		var js jsonschema.Schema
		if err := json.Unmarshal([]byte(s.JSONSchema), &js); err != nil {
			s.err = fmt.Errorf("schema %s: %w", s.ID, err)
			return
		}
		s.resolved, s.err = js.Resolve(nil)
		if s.err != nil {
			s.err = fmt.Errorf("schema %s: %w", s.ID, s.err)
		}
	})
	return s.err
}

// Validate checks a decoded JSON document (maps, slices, strings, float64s)
// against the schema.
func (s *ResponseSchema) Validate(doc interface{}) error {
	if err := s.compile(); err != nil {
		return err
	}
	if err := s.resolved.Validate(doc); err != nil {
		return fmt.Errorf("response does not match %s: %w", s.ID, err)
	}
	return nil
}
