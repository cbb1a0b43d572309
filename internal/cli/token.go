package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/slotswap/internal/identity"
)

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for a user",
		Long: `Issue a bearer token accepted by "slotswap serve".

The token is signed with SLOTSWAP_JWT_SECRET and expires after
SLOTSWAP_TOKEN_TTL.

Example:
  curl -H "Authorization: Bearer $(slotswap token alice)" localhost:8080/api/events`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return issueToken(rootOpts, args[0], cmd)
		},
	}
}

func issueToken(opts *RootOptions, userID string, cmd *cobra.Command) error {
	cfg := opts.Config
	if err := cfg.RequireSecret(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	issuer, err := identity.NewIssuer(identity.Config{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
		Now:    opts.clock().Now,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure token issuer", err)
	}

	token, err := issuer.Issue(userID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to issue token", err)
	}
	return opts.formatter(cmd).Success(map[string]string{"userId": userID, "token": token}, token+"\n")
}
