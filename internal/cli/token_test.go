package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotswap/internal/identity"
)

func TestTokenRequiresSecret(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "token", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "SLOTSWAP_JWT_SECRET")
}

func TestTokenRoundTrip(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("SLOTSWAP_JWT_SECRET", "cli-secret")

	out := env.mustRun(t, "token", "alice")
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	verifier, err := identity.NewVerifier(identity.Config{
		Secret: []byte("cli-secret"),
		Issuer: "slotswap",
		Now:    env.clock.Now,
	})
	require.NoError(t, err)
	userID, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)

	var payload map[string]string
	_, err = env.runJSON(t, &payload, "token", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", payload["userId"])
	assert.NotEmpty(t, payload["token"])
}
