package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLint_Clean(t *testing.T) {
	cases, _, err := ParseFile("weather.json", []byte(weatherCases))
	require.NoError(t, err)

	assert.Empty(t, Lint(cases[0]))
	assert.Empty(t, LintSuite(&Suite{Cases: cases}))
}

func TestLint_Findings(t *testing.T) {
	cases, loadErrs, err := ParseFile("lint.json", []byte(`[{
		"categories": ["c"],
		"prompt": "p",
		"available_functions": [
			{"name": "get_weather", "description": "", "parameters": {
				"type": "object",
				"properties": {"city": {"type": "string"}},
				"required": ["city"]
			}},
			{"name": "dup", "description": "", "parameters": {}},
			{"name": "dup", "description": "", "parameters": {}}
		],
		"expected_function_calls": [
			{"name": "get_weather", "arguments": {"city": 7}, "result": "r"},
			{"name": "get_time", "arguments": {}, "result": "noon"}
		]
	}]`))
	require.NoError(t, err)
	require.Empty(t, loadErrs)
	require.Len(t, cases, 1)

	issues := Lint(cases[0])
	require.Len(t, issues, 3)
	assert.Contains(t, issues[0].Message, `"dup" is declared more than once`)
	assert.Equal(t, "get_weather", issues[1].Call)
	assert.Contains(t, issues[1].Message, "city")
	assert.Equal(t, "get_time", issues[2].Call)
	assert.Equal(t, "lint.json-0: get_time: function is not declared in available_functions", issues[2].String())
}
