package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		obj, err := DecodeObject(`{"score": 7, "status": "valid"}`)
		require.NoError(t, err)
		assert.Equal(t, 7, IntValue(obj["score"], 0))
		assert.Equal(t, "valid", StringValue(obj["status"], ""))
	})

	t.Run("object wrapped in markdown fences", func(t *testing.T) {
		raw := "```json\n{\"files\": [\"README.md\"]}\n```"
		obj, err := DecodeObject(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"README.md"}, StringSlice(obj["files"]))
	})

	t.Run("object preceded by prose", func(t *testing.T) {
		raw := `Here is the contract you asked for: {"files": ["a.go"], "note": "contains } in a string"}`
		obj, err := DecodeObject(raw)
		require.NoError(t, err)
		assert.Equal(t, "contains } in a string", StringValue(obj["note"], ""))
	})

	t.Run("nested objects stay balanced", func(t *testing.T) {
		raw := `{"outer": {"inner": {"k": "v"}}, "after": 1}`
		obj, err := DecodeObject(raw)
		require.NoError(t, err)
		assert.Equal(t, 1, IntValue(obj["after"], 0))
		inner := MapValue(obj["outer"])
		require.NotNil(t, inner)
	})

	t.Run("empty output is an error", func(t *testing.T) {
		_, err := DecodeObject("   ")
		assert.Error(t, err)
	})

	t.Run("no object present is an error", func(t *testing.T) {
		_, err := DecodeObject("I could not produce JSON, sorry.")
		assert.Error(t, err)
	})

	t.Run("unbalanced object is an error", func(t *testing.T) {
		_, err := DecodeObject(`{"oops": `)
		assert.Error(t, err)
	})
}

func TestCoercions(t *testing.T) {
	t.Run("StringSlice skips non-strings", func(t *testing.T) {
		v := []interface{}{"a", 1.0, "b", true}
		assert.Equal(t, []string{"a", "b"}, StringSlice(v))
		assert.Nil(t, StringSlice("not a slice"))
	})

	t.Run("IntValue handles json numbers", func(t *testing.T) {
		assert.Equal(t, 7, IntValue(7.0, 0))
		assert.Equal(t, 3, IntValue(nil, 3))
	})

	t.Run("BoolValue", func(t *testing.T) {
		assert.True(t, BoolValue(true, false))
		assert.True(t, BoolValue("yes", true))
	})

	t.Run("StringValue empties fall back", func(t *testing.T) {
		assert.Equal(t, "def", StringValue("", "def"))
		assert.Equal(t, "def", StringValue(nil, "def"))
	})

	t.Run("StringMap skips non-string values", func(t *testing.T) {
		v := map[string]interface{}{"a": "1", "b": 2.0}
		assert.Equal(t, map[string]string{"a": "1"}, StringMap(v))
		assert.Nil(t, StringMap([]interface{}{}))
	})
}
