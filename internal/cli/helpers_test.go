package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotswap/internal/testutil"
)

// cliEnv runs commands against one database with deterministic ids and time.
type cliEnv struct {
	db    string
	clock *testutil.StepClock
	ids   *testutil.SequenceIDs
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	color.NoColor = true
	t.Setenv("SLOTSWAP_REDIS_ADDR", "")
	t.Setenv("SLOTSWAP_JWT_SECRET", "")
	return &cliEnv{
		db:    filepath.Join(t.TempDir(), "slotswap.db"),
		clock: testutil.NewStepClock(testutil.DefaultEpoch, time.Second),
		ids:   testutil.NewSequenceIDs("id"),
	}
}

// run executes the root command and returns stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{Clock: e.clock, IDs: e.ids})
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(append([]string{"--db", e.db}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// runJSON executes a command with --format json and decodes the response.
func (e *cliEnv) runJSON(t *testing.T, data any, args ...string) (CLIResponse, error) {
	t.Helper()
	out, err := e.run(t, append([]string{"--format", "json"}, args...)...)
	var resp CLIResponse
	resp.Data = data
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "output: %s", out)
	return out
}

// createSlot creates a slot for user starting at the given hour offset and
// returns its id.
func (e *cliEnv) createSlot(t *testing.T, user, title string, hour int, status string) string {
	t.Helper()
	start := time.Date(2025, 3, 10, 9+hour, 0, 0, 0, time.UTC)
	var ev struct {
		ID string `json:"id"`
	}
	resp, err := e.runJSON(t, &ev, "event", "create", "--as", user, "--title", title,
		"--start", start.Format(time.RFC3339), "--end", start.Add(time.Hour).Format(time.RFC3339),
		"--status", status)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, ev.ID)
	return ev.ID
}
