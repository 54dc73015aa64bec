package skill

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSkill(name string) *Skill {
	return &Skill{
		Name:        name,
		Description: "echo " + name,
		Execute: func(_ context.Context, params map[string]any) (string, error) {
			return name, nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("duplicate names are rejected", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(echoSkill("a")))
		err := r.Register(echoSkill("a"))
		assert.ErrorContains(t, err, "already registered")
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		r := NewRegistry()
		assert.Error(t, r.Register(echoSkill("  ")))
	})

	t.Run("malformed schema is rejected at registration", func(t *testing.T) {
		r := NewRegistry()
		s := echoSkill("bad")
		s.Parameters = json.RawMessage(`{"type": 42}`)
		assert.ErrorContains(t, r.Register(s), "bad parameter schema")
	})

	t.Run("missing schema defaults to an open object", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(echoSkill("open")))
		s, ok := r.Get("open")
		require.True(t, ok)
		out, err := s.Invoke(context.Background(), map[string]any{"anything": true})
		require.NoError(t, err)
		assert.Equal(t, "open", out)
	})
}

func TestRegistry_Order(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(echoSkill(name)))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())

	schemas := r.ToolSchemas()
	require.Len(t, schemas, 3)
	assert.Equal(t, "function", schemas[0].Type)
	assert.Equal(t, "alpha", schemas[0].Function.Name)
	assert.Equal(t, "zeta", schemas[2].Function.Name)
}

func TestRegistry_Describe(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSkill("alpha")))
	assert.Equal(t, "- alpha: echo alpha", r.Describe())
}

func TestSkill_Invoke_Validation(t *testing.T) {
	r := NewRegistry()
	s := &Skill{
		Name: "typed",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"limit": {"type": "integer", "minimum": 1}
			},
			"required": ["symbol"]
		}`),
		Execute: func(_ context.Context, params map[string]any) (string, error) {
			return params["symbol"].(string), nil
		},
	}
	require.NoError(t, r.Register(s))

	t.Run("valid params reach the handler", func(t *testing.T) {
		out, err := s.Invoke(context.Background(), map[string]any{"symbol": "PEPE", "limit": 5})
		require.NoError(t, err)
		assert.Equal(t, "PEPE", out)
	})

	t.Run("missing required field fails before the handler", func(t *testing.T) {
		_, err := s.Invoke(context.Background(), map[string]any{"limit": 5})
		assert.ErrorContains(t, err, "invalid arguments for typed")
	})

	t.Run("wrong type fails validation", func(t *testing.T) {
		_, err := s.Invoke(context.Background(), map[string]any{"symbol": "PEPE", "limit": "lots"})
		assert.Error(t, err)
	})

	t.Run("nil params validate as an empty object", func(t *testing.T) {
		_, err := s.Invoke(context.Background(), nil)
		assert.Error(t, err) // symbol is required
	})
}
