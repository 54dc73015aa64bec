package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		got, ok := ExtractJSON(`{"symbol": "PEPE"}`)
		assert.True(t, ok)
		assert.Equal(t, `{"symbol": "PEPE"}`, got)
	})

	t.Run("object wrapped in prose", func(t *testing.T) {
		got, ok := ExtractJSON(`Here are the results: {"symbol": "PEPE"} hope that helps!`)
		assert.True(t, ok)
		assert.Equal(t, `{"symbol": "PEPE"}`, got)
	})

	t.Run("fenced block with language tag", func(t *testing.T) {
		raw := "Sure thing:\n```json\n[{\"symbol\": \"PEPE\"}]\n```\nLet me know."
		got, ok := ExtractJSON(raw)
		assert.True(t, ok)
		assert.Equal(t, `[{"symbol": "PEPE"}]`, got)
	})

	t.Run("fenced block without language tag", func(t *testing.T) {
		got, ok := ExtractJSON("```\n{\"a\": 1}\n```")
		assert.True(t, ok)
		assert.Equal(t, `{"a": 1}`, got)
	})

	t.Run("array when no object present", func(t *testing.T) {
		got, ok := ExtractJSON(`candidates: ["PEPE", "WIF"]`)
		assert.True(t, ok)
		assert.Equal(t, `["PEPE", "WIF"]`, got)
	})

	t.Run("braces inside strings do not break balancing", func(t *testing.T) {
		raw := `{"note": "uses {braces} and a \" quote", "n": 1} trailing`
		got, ok := ExtractJSON(raw)
		assert.True(t, ok)
		assert.Equal(t, `{"note": "uses {braces} and a \" quote", "n": 1}`, got)
	})

	t.Run("nested objects", func(t *testing.T) {
		raw := `prefix {"outer": {"inner": [1, 2]}} suffix`
		got, ok := ExtractJSON(raw)
		assert.True(t, ok)
		assert.Equal(t, `{"outer": {"inner": [1, 2]}}`, got)
	})

	t.Run("no json at all", func(t *testing.T) {
		_, ok := ExtractJSON("I could not find any interesting tokens today.")
		assert.False(t, ok)
		_, ok = ExtractJSON("   ")
		assert.False(t, ok)
	})

	t.Run("unbalanced object", func(t *testing.T) {
		_, ok := ExtractJSON(`{"symbol": "PEPE"`)
		assert.False(t, ok)
	})
}
