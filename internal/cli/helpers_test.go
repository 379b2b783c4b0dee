package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/callbench/internal/config"
	"github.com/roach88/callbench/internal/judge"
	"github.com/roach88/callbench/internal/provider"
	"github.com/roach88/callbench/internal/testutil"
)

const weatherSuite = `[
  {
    "categories": ["single"],
    "prompt": "What is the weather in Paris?",
    "available_functions": [
      {"name": "get_weather", "parameters": {"type": "object", "properties": {"city": {"type": "string"}}, "required": ["city"]}}
    ],
    "expected_function_calls": [
      {"name": "get_weather", "arguments": {"city": "Paris"}, "result": "sunny"}
    ]
  },
  {
    "categories": ["parallel", "single"],
    "prompt": "Weather in Paris and Rome?",
    "available_functions": [
      {"name": "get_weather", "parameters": {"type": "object"}}
    ],
    "expected_function_calls": [
      {"any_order": [
        {"name": "get_weather", "arguments": {"city": "Paris"}, "result": "21C"},
        {"name": "get_weather", "arguments": {"city": "Rome"}, "result": "25C"}
      ]},
      {"finish_reason": "stop"}
    ],
    "final_answer_should": "mention both cities"
  }
]`

// writeSuite writes files into a fresh suite directory.
func writeSuite(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

type staticCompleter struct {
	reply string
}

func (c staticCompleter) CompleteText(context.Context, string, string) (string, error) {
	return c.reply, nil
}

// scriptedFactory answers both weather cases; parisArgs is the argument
// string of the single-city call.
func scriptedFactory(parisArgs string) ModelFactory {
	return func(*config.Config, *slog.Logger) (provider.Model, judge.Completer) {
		models := testutil.NewScriptedModels()
		models.Add("What is the weather in Paris?",
			testutil.Reply{Turn: testutil.ToolTurn(testutil.Call("c1", "get_weather", parisArgs))},
			testutil.Reply{Turn: testutil.StopTurn("Sunny.")},
		)
		models.Add("Weather in Paris and Rome?",
			testutil.Reply{Turn: testutil.ToolTurn(
				testutil.Call("c1", "get_weather", `{"city":"Paris"}`),
				testutil.Call("c2", "get_weather", `{"city":"Rome"}`),
			)},
			testutil.Reply{Turn: testutil.StopTurn("Paris 21C, Rome 25C.")},
		)
		return models, staticCompleter{reply: `{"correct": true, "reasoning": "both cities"}`}
	}
}

// execute runs cmd with args and returns stdout and the error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
