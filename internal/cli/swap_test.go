package cli

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/swap"
)

func TestSwapFlow(t *testing.T) {
	env := newCLIEnv(t)
	mine := env.createSlot(t, "alice", "Alice morning", 0, "SWAPPABLE")
	theirs := env.createSlot(t, "bob", "Bob afternoon", 4, "SWAPPABLE")
	env.createSlot(t, "bob", "Bob busy", 5, "BUSY")

	var swappable []slot.Event
	_, err := env.runJSON(t, &swappable, "swap", "swappable", "--as", "alice")
	require.NoError(t, err)
	require.Len(t, swappable, 1)
	assert.Equal(t, theirs, swappable[0].ID)

	var req slot.SwapRequest
	_, err = env.runJSON(t, &req, "swap", "request", mine, theirs, "--as", "alice")
	require.NoError(t, err)
	assert.Equal(t, slot.RequestPending, req.Status)
	assert.Equal(t, "bob", req.TargetUserID)

	var incoming []slot.RequestDetail
	_, err = env.runJSON(t, &incoming, "swap", "incoming", "--as", "bob")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, req.ID, incoming[0].ID)
	require.NotNil(t, incoming[0].RequesterSlot)
	assert.Equal(t, slot.StatusSwapPending, incoming[0].RequesterSlot.Status)

	t.Run("requester cannot respond", func(t *testing.T) {
		resp, err := env.runJSON(t, nil, "swap", "respond", req.ID, "--accept", "--as", "alice")
		require.Error(t, err)
		assert.Equal(t, string(slot.CodeForbidden), resp.Error.Code)
	})

	out := env.mustRun(t, "swap", "respond", req.ID, "--accept", "--as", "bob")
	assert.Contains(t, out, "ACCEPTED v2")

	var aliceEvents []slot.Event
	_, err = env.runJSON(t, &aliceEvents, "event", "list", "--as", "alice")
	require.NoError(t, err)
	require.Len(t, aliceEvents, 1)
	assert.Equal(t, theirs, aliceEvents[0].ID)
	assert.Equal(t, slot.StatusBusy, aliceEvents[0].Status)

	t.Run("answered twice", func(t *testing.T) {
		resp, err := env.runJSON(t, nil, "swap", "respond", req.ID, "--reject", "--as", "bob")
		require.Error(t, err)
		assert.Equal(t, string(slot.CodeConflict), resp.Error.Code)
	})

	var outgoing []slot.RequestDetail
	_, err = env.runJSON(t, &outgoing, "swap", "outgoing", "--as", "alice")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, slot.RequestAccepted, outgoing[0].Status)

	out = env.mustRun(t, "swap", "incoming", "--as", "bob")
	assert.Equal(t, "no requests\n", out)
}

func TestSwapReject(t *testing.T) {
	env := newCLIEnv(t)
	mine := env.createSlot(t, "alice", "a", 0, "SWAPPABLE")
	theirs := env.createSlot(t, "bob", "b", 1, "SWAPPABLE")

	var req slot.SwapRequest
	_, err := env.runJSON(t, &req, "swap", "request", mine, theirs, "--as", "alice")
	require.NoError(t, err)

	var answered slot.SwapRequest
	_, err = env.runJSON(t, &answered, "swap", "respond", req.ID, "--reject", "--as", "bob")
	require.NoError(t, err)
	assert.Equal(t, slot.RequestRejected, answered.Status)

	var mineAgain []slot.Event
	_, err = env.runJSON(t, &mineAgain, "swap", "mine", "--as", "alice")
	require.NoError(t, err)
	require.Len(t, mineAgain, 1)
	assert.Equal(t, slot.StatusSwappable, mineAgain[0].Status)
}

func TestSwapRequestErrors(t *testing.T) {
	env := newCLIEnv(t)
	mine := env.createSlot(t, "alice", "a", 0, "SWAPPABLE")
	busy := env.createSlot(t, "bob", "b", 1, "BUSY")
	other := env.createSlot(t, "carol", "c", 2, "SWAPPABLE")

	tests := []struct {
		name  string
		as    string
		mine  string
		their string
		code  slot.Code
	}{
		{name: "not my slot", as: "bob", mine: mine, their: other, code: slot.CodeForbidden},
		{name: "target busy", as: "alice", mine: mine, their: busy, code: slot.CodeInvalidOperation},
		{name: "unknown target", as: "alice", mine: mine, their: "missing", code: slot.CodeNotFound},
		{name: "own slot", as: "alice", mine: mine, their: mine, code: slot.CodeInvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.runJSON(t, nil, "swap", "request", tt.mine, tt.their, "--as", tt.as)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Equal(t, string(tt.code), resp.Error.Code)
		})
	}
}

func TestSwapRespondNeedsDecision(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "swap", "respond", "req-1", "--as", "bob")
	require.Error(t, err)

	_, err = env.run(t, "swap", "respond", "req-1", "--accept", "--reject", "--as", "bob")
	require.Error(t, err)
}

func TestSwapWatch(t *testing.T) {
	env := newCLIEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("SLOTSWAP_REDIS_ADDR", mr.Addr())
	t.Setenv("SLOTSWAP_REDIS_CHANNEL", "slotswap.test")

	mine := env.createSlot(t, "alice", "a", 0, "SWAPPABLE")
	theirs := env.createSlot(t, "bob", "b", 1, "SWAPPABLE")

	type watchResult struct {
		out string
		err error
	}
	done := make(chan watchResult, 1)
	go func() {
		out, err := env.run(t, "--format", "json", "swap", "watch", "--count", "2")
		done <- watchResult{out, err}
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("slotswap.test")["slotswap.test"] == 1
	}, 5*time.Second, 10*time.Millisecond)

	var req slot.SwapRequest
	_, err := env.runJSON(t, &req, "swap", "request", mine, theirs, "--as", "alice")
	require.NoError(t, err)
	_, err = env.runJSON(t, nil, "swap", "respond", req.ID, "--accept", "--as", "bob")
	require.NoError(t, err)

	var res watchResult
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after two notices")
	}
	require.NoError(t, res.err)

	var types []string
	scanner := bufio.NewScanner(strings.NewReader(res.out))
	for scanner.Scan() {
		var n swap.Notice
		resp := CLIResponse{Data: &n}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		assert.Equal(t, req.ID, n.RequestID)
		types = append(types, n.Type)
	}
	assert.Equal(t, []string{swap.NoticeRequested, swap.NoticeAccepted}, types)
}

func TestSwapWatchWithoutRedis(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "swap", "watch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "SLOTSWAP_REDIS_ADDR")
}
