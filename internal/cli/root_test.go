package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "callbench", cmd.Use)
	assert.Contains(t, cmd.Long, "expected-call scripts")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, cmdName := range []string{"run", "validate", "report"} {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"model", "base-url", "api-key", "stream", "delay", "concurrency", "judge-model", "argument-policy", "filter", "category", "db"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run should have --%s", name)
	}
	assert.Equal(t, "1", runCmd.Flags().Lookup("concurrency").DefValue)
	assert.Equal(t, "strict", runCmd.Flags().Lookup("argument-policy").DefValue)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	dir := writeSuite(t, map[string]string{"weather.json": weatherSuite})

	_, err := execute(t, NewRootCommand(), "--format", "xml", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_RoutesToSubcommand(t *testing.T) {
	dir := writeSuite(t, map[string]string{"weather.json": weatherSuite})

	out, err := execute(t, NewRootCommand(), "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 2 test case(s) valid")
}

func TestRootOptions_LoggerDefaultsToDiscard(t *testing.T) {
	opts := &RootOptions{}
	assert.NotNil(t, opts.Logger())
}
