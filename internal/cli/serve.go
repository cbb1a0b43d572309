package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/slotswap/internal/httpapi"
	"github.com/roach88/slotswap/internal/identity"
	"github.com/roach88/slotswap/internal/swap"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the slotswap HTTP API.

The server opens the SQLite database (creating it if it doesn't exist),
verifies bearer tokens signed with SLOTSWAP_JWT_SECRET, and publishes swap
notices to Redis when SLOTSWAP_REDIS_ADDR is set.

Example:
  SLOTSWAP_JWT_SECRET=dev slotswap serve --db ./slotswap.db --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $SLOTSWAP_HTTP_ADDR)")

	return cmd
}

func runServer(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	if err := cfg.RequireSecret(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	addr := opts.Addr
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	verifier, err := identity.NewVerifier(identity.Config{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure token verification", err)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var extra []swap.Option
	if cfg.NotificationsEnabled() {
		pub, err := opts.redisPublisher()
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := pub.Close(); closeErr != nil {
				slog.Error("error closing redis client", "error", closeErr)
			}
		}()
		if err := pub.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, notices will be dropped", "addr", cfg.RedisAddr, "error", err)
		}
		extra = append(extra, swap.WithPublisher(pub))
		slog.Info("publishing swap notices", "addr", cfg.RedisAddr, "channel", pub.Channel())
	}

	svc, _, closeFn, err := opts.openService(extra...)
	if err != nil {
		return err
	}
	defer closeFn()
	slog.Info("database ready", "path", opts.Database)

	srv := httpapi.NewServer(svc, verifier, httpapi.WithLogger(slog.Default()))

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if err := srv.ListenAndServe(ctx, addr, cfg.ShutdownTimeout); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, or when
// parent is done.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
