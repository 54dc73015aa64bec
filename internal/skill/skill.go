// Package skill is the name-keyed catalog of invocable capabilities shared
// by the chat dispatcher and the model's tool-calling loop. Each skill
// carries a JSON schema for its parameters; arguments are validated before
// the handler runs so handlers can trust their input shape.
package skill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Skill is one named capability.
type Skill struct {
	Name        string
	Description string
	// Parameters is a raw JSON schema document for the arguments object.
	Parameters json.RawMessage
	Execute    func(ctx context.Context, params map[string]any) (string, error)

	compiled *jsonschema.Schema
}

// Invoke validates params against the schema and runs the handler.
func (s *Skill) Invoke(ctx context.Context, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	if s.compiled != nil {
		if err := s.compiled.Validate(normalizeForSchema(params)); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %v", s.Name, compactValidationError(err))
		}
	}
	return s.Execute(ctx, params)
}

// normalizeForSchema round-trips params through JSON so numeric types match
// what the schema validator expects regardless of how the caller built the
// map.
func normalizeForSchema(params map[string]any) any {
	raw, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return params
	}
	return out
}

func compactValidationError(err error) string {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		loc := strings.TrimPrefix(leaf.InstanceLocation, "/")
		if loc == "" {
			return leaf.Message
		}
		return fmt.Sprintf("%s: %s", loc, leaf.Message)
	}
	return err.Error()
}

// Registry maps skill names to skills, preserving a deterministic order for
// prompts and tool schemas.
type Registry struct {
	skills map[string]*Skill
}

func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]*Skill)}
}

// Register compiles the parameter schema and adds the skill. Duplicate names
// and malformed schemas are rejected.
func (r *Registry) Register(s *Skill) error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("skill name cannot be empty")
	}
	if _, exists := r.skills[name]; exists {
		return fmt.Errorf("skill %q is already registered", name)
	}
	if len(s.Parameters) == 0 {
		s.Parameters = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	compiled, err := jsonschema.CompileString(name+".schema.json", string(s.Parameters))
	if err != nil {
		return fmt.Errorf("skill %q: bad parameter schema: %w", name, err)
	}
	s.compiled = compiled
	r.skills[name] = s
	return nil
}

// Get looks a skill up by name.
func (r *Registry) Get(name string) (*Skill, bool) {
	s, ok := r.skills[strings.TrimSpace(name)]
	return s, ok
}

// Names returns all skill names sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.skills))
	for name := range r.skills {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Describe renders a plain-text catalog for the system prompt.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.Names() {
		fmt.Fprintf(&b, "- %s: %s\n", name, r.skills[name].Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ToolSchema is one OpenAI-style tool declaration.
type ToolSchema struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolSchemas renders the catalog as model-invocable tool declarations.
func (r *Registry) ToolSchemas() []ToolSchema {
	out := make([]ToolSchema, 0, len(r.skills))
	for _, name := range r.Names() {
		s := r.skills[name]
		out = append(out, ToolSchema{
			Type: "function",
			Function: ToolFunction{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return out
}
