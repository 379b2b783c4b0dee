package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidSuite(t *testing.T) {
	dir := writeSuite(t, map[string]string{"weather.json": weatherSuite})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 2 test case(s) valid")
}

func TestValidate_ValidSuiteJSON(t *testing.T) {
	dir := writeSuite(t, map[string]string{"weather.json": weatherSuite})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Cases)
}

func TestValidate_ReportsLoadAndLintProblems(t *testing.T) {
	dir := writeSuite(t, map[string]string{
		"bad.json": `[
			{"categories": ["x"], "prompt": "p", "available_functions": [],
			 "expected_function_calls": [{"name": "missing", "arguments": {}, "result": "r"}]},
			{"categories": ["x"], "prompt": "p", "available_functions": [],
			 "expected_function_calls": []}
		]`,
	})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ bad.json-0")
	assert.Contains(t, out, "missing: function is not declared in available_functions")
	assert.Contains(t, out, "✗ bad.json-1")
	assert.Contains(t, out, "2 problem(s) in 2 test case(s)")
}

func TestValidate_NonExistentDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
