package suite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/callbench/internal/script"
)

const weatherCases = `[
  {
    "description": "single lookup",
    "categories": ["single"],
    "prompt": "What is the weather in Paris?",
    "available_functions": [
      {
        "name": "get_weather",
        "description": "Current weather for a city",
        "parameters": {
          "type": "object",
          "properties": {"city": {"type": "string"}},
          "required": ["city"]
        }
      }
    ],
    "expected_function_calls": [
      {"name": "get_weather", "arguments": {"city": "Paris"}, "result": "21C and sunny"}
    ],
    "final_answer_should": "mention 21C"
  },
  {
    "categories": ["parallel", "single"],
    "system_prompt": "You are terse.",
    "prompt": "Weather in Paris and Rome?",
    "available_functions": [
      {"name": "get_weather", "description": "", "parameters": {"type": "object"}}
    ],
    "expected_function_calls": [
      {"any_order": [
        {"name": "get_weather", "arguments": {"city": "Paris"}, "result": "21C"},
        {"name": "get_weather", "arguments": {"city": "Rome"}, "result": "25C"}
      ]},
      {"finish_reason": "stop"}
    ]
  }
]`

// Test helper to write a suite file
func writeSuiteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeSuiteFile(t, dir, "weather.json", weatherCases)
	writeSuiteFile(t, dir, "notes.txt", "ignored")

	s, err := LoadDir(dir)
	require.NoError(t, err)
	require.Empty(t, s.Errors)
	require.Len(t, s.Cases, 2)

	first := s.Cases[0]
	assert.Equal(t, "weather.json-0", first.ID)
	assert.Equal(t, "weather.json", first.File)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, []string{"single"}, first.Categories)
	assert.Equal(t, "mention 21C", first.FinalAnswerShould)
	require.Len(t, first.Functions, 1)
	assert.Equal(t, "get_weather", first.Functions[0].Name)
	assert.Equal(t, 1, first.Script.Len())
	assert.Len(t, first.Digest, 64)

	second := s.Cases[1]
	assert.Equal(t, "weather.json-1", second.ID)
	assert.Equal(t, "You are terse.", second.SystemPrompt)
	assert.Equal(t, 2, second.Script.Len())
	assert.IsType(t, &script.Group{}, second.Script.Nodes()[0])
}

func TestLoadDir_YAML(t *testing.T) {
	dir := t.TempDir()
	writeSuiteFile(t, dir, "ping.yaml", `
- categories: [basic]
  prompt: ping the server
  available_functions:
    - name: ping
      description: Ping
      parameters: {type: object}
  expected_function_calls:
    - name: ping
      result: pong
`)

	s, err := LoadDir(dir)
	require.NoError(t, err)
	require.Empty(t, s.Errors)
	require.Len(t, s.Cases, 1)
	assert.Equal(t, "ping.yaml-0", s.Cases[0].ID)
}

func TestLoadDir_DigestIgnoresFormatting(t *testing.T) {
	dir := t.TempDir()
	writeSuiteFile(t, dir, "a.json", `[{"categories":["x"],"prompt":"p","available_functions":[],"expected_function_calls":[{"name":"f","result":"r"}]}]`)
	writeSuiteFile(t, dir, "b.json", `[{"prompt": "p", "categories": ["x"], "expected_function_calls": [{"result": "r", "name": "f"}], "available_functions": []}]`)

	s, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, s.Cases, 2)
	assert.Equal(t, s.Cases[0].Digest, s.Cases[1].Digest)
}

func TestLoadDir_InvalidCasesBecomeLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeSuiteFile(t, dir, "bad.json", `[
		{"categories": [], "prompt": "p", "available_functions": [], "expected_function_calls": [{"name": "f", "result": "r"}]},
		{"categories": ["c"], "prompt": "p", "available_functions": [], "expected_function_calls": []},
		{"categories": ["c"], "prompt": "p", "available_functions": [], "expected_function_calls": [{"finish_reason": "stop"}, {"name": "f"}]},
		{"categories": ["c"], "prompt": "p", "promt": "typo", "available_functions": [], "expected_function_calls": [{"name": "f"}]},
		{"categories": ["c"], "prompt": "ok", "available_functions": [], "expected_function_calls": [{"name": "f", "result": "r"}]}
	]`)
	writeSuiteFile(t, dir, "broken.json", `{"not": "an array"}`)

	s, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, s.Cases, 1)
	assert.Equal(t, "bad.json-4", s.Cases[0].ID)

	require.Len(t, s.Errors, 5)
	assert.Equal(t, "bad.json-0", s.Errors[0].ID)
	assert.Contains(t, s.Errors[0].Error(), "categories must be non-empty")

	var verr *script.ValidationError
	assert.True(t, errors.As(s.Errors[1], &verr), "empty script is a script validation error")
	assert.True(t, errors.As(s.Errors[2], &verr), "misplaced stop is a script validation error")
	assert.Equal(t, []string{"c"}, s.Errors[2].Categories)

	assert.Contains(t, s.Errors[3].Error(), "promt")

	assert.Equal(t, "broken.json", s.Errors[4].ID)
	assert.Equal(t, -1, s.Errors[4].Index)
	assert.Equal(t, 6, s.Len())
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	cases, loadErrs, err := ParseFile("weather.json", []byte(weatherCases))
	require.NoError(t, err)
	assert.Empty(t, loadErrs)
	assert.Len(t, cases, 2)
}

func TestFilter(t *testing.T) {
	cases, loadErrs, err := ParseFile("weather.json", []byte(weatherCases))
	require.NoError(t, err)
	s := &Suite{Cases: cases, Errors: loadErrs}

	byID, err := Filter{IDPattern: "weather.json-1"}.Apply(s)
	require.NoError(t, err)
	require.Len(t, byID.Cases, 1)
	assert.Equal(t, "weather.json-1", byID.Cases[0].ID)

	byCategory, err := Filter{Categories: []string{"single"}}.Apply(s)
	require.NoError(t, err)
	assert.Len(t, byCategory.Cases, 2)

	byParallel, err := Filter{Categories: []string{"parallel"}}.Apply(s)
	require.NoError(t, err)
	assert.Len(t, byParallel.Cases, 1)

	all, err := Filter{}.Apply(s)
	require.NoError(t, err)
	assert.Len(t, all.Cases, 2)

	_, err = Filter{IDPattern: "["}.Apply(s)
	assert.Error(t, err)
}
