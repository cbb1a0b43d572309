package cli

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "slotswap", cmd.Use)
	assert.Contains(t, cmd.Long, "swaps of calendar slots")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"serve"},
		{"token"},
		{"check"},
		{"trace"},
		{"test"},
		{"event", "create"},
		{"event", "update"},
		{"event", "delete"},
		{"event", "list"},
		{"event", "export"},
		{"swap", "request"},
		{"swap", "respond"},
		{"swap", "swappable"},
		{"swap", "mine"},
		{"swap", "incoming"},
		{"swap", "outgoing"},
		{"swap", "watch"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
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

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestActingUserFlag(t *testing.T) {
	cmd := NewRootCommand()
	for _, group := range []string{"event", "swap"} {
		sub, _, err := cmd.Find([]string{group})
		require.NoError(t, err)
		assert.NotNil(t, sub.PersistentFlags().Lookup("as"), group)
	}
}

func TestInvalidFormat(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "--format", "xml", "trace")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestDatabaseFromEnvironment(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("SLOTSWAP_DB", env.db)

	opts := &RootOptions{Clock: env.clock, IDs: env.ids}
	cmd := newRootCommand(opts)
	cmd.SetArgs([]string{"trace"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, env.db, opts.Database)
}
