package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/slotswap/internal/notify"
	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/swap"
)

// SwapOptions holds flags shared by the swap subcommands.
type SwapOptions struct {
	*RootOptions
	As     string
	Accept bool
	Reject bool
	Count  int
}

// NewSwapCommand creates the swap command group.
func NewSwapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SwapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Propose, answer and browse slot swaps",
		Long: `Propose one-for-one slot exchanges and answer the ones addressed to you.

A request locks both slots in SWAP_PENDING until the owner of the requested
slot accepts (ownership is exchanged) or rejects (both slots return to
SWAPPABLE).

Examples:
  slotswap swap swappable --as alice
  slotswap swap request <my-slot> <their-slot> --as alice
  slotswap swap respond <request-id> --accept --as bob
  slotswap swap watch --count 10`,
	}
	cmd.PersistentFlags().StringVar(&opts.As, "as", "", "acting user id")

	request := &cobra.Command{
		Use:   "request <my-slot-id> <their-slot-id>",
		Short: "Offer one of your slots for someone else's",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestSwap(opts, args[0], args[1], cmd)
		},
	}

	respond := &cobra.Command{
		Use:   "respond <request-id>",
		Short: "Accept or reject a request for your slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return respondToSwap(opts, args[0], cmd)
		},
	}
	respond.Flags().BoolVar(&opts.Accept, "accept", false, "accept the request")
	respond.Flags().BoolVar(&opts.Reject, "reject", false, "reject the request")
	respond.MarkFlagsMutuallyExclusive("accept", "reject")
	respond.MarkFlagsOneRequired("accept", "reject")

	swappable := &cobra.Command{
		Use:   "swappable",
		Short: "List other users' swappable slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSlots(opts, cmd, (*swap.Service).ListSwappable)
		},
	}

	mine := &cobra.Command{
		Use:   "mine",
		Short: "List your swappable slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSlots(opts, cmd, (*swap.Service).ListMySwappable)
		},
	}

	incoming := &cobra.Command{
		Use:   "incoming",
		Short: "List pending requests for your slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRequests(opts, cmd, (*swap.Service).ListIncoming)
		},
	}

	outgoing := &cobra.Command{
		Use:   "outgoing",
		Short: "List requests you made",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRequests(opts, cmd, (*swap.Service).ListOutgoing)
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Stream swap notices from Redis",
		Long: `Subscribe to the swap notice channel and print each notice as it arrives.

Requires SLOTSWAP_REDIS_ADDR. Stops after --count notices, or on Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchNotices(opts, cmd)
		},
	}
	watch.Flags().IntVar(&opts.Count, "count", 0, "stop after this many notices (0 = unlimited)")

	cmd.AddCommand(request, respond, swappable, mine, incoming, outgoing, watch)
	return cmd
}

func requestSwap(opts *SwapOptions, mySlotID, theirSlotID string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	svc, closeFn, err := opts.openNotifyingService()
	if err != nil {
		return err
	}
	defer closeFn()

	r, err := svc.RequestSwap(cmd.Context(), opts.As, mySlotID, theirSlotID)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(r, requestLine(r))
}

func respondToSwap(opts *SwapOptions, requestID string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	svc, closeFn, err := opts.openNotifyingService()
	if err != nil {
		return err
	}
	defer closeFn()

	r, err := svc.RespondToSwap(cmd.Context(), opts.As, requestID, opts.Accept)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(r, requestLine(r))
}

// openNotifyingService opens the service and, when Redis is configured,
// publishes swap notices to it.
func (o *SwapOptions) openNotifyingService() (*swap.Service, func(), error) {
	if !o.Config.NotificationsEnabled() {
		svc, _, closeFn, err := o.openService()
		return svc, closeFn, err
	}

	pub, err := o.redisPublisher()
	if err != nil {
		return nil, nil, err
	}
	svc, _, closeStore, err := o.openService(swap.WithPublisher(pub))
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}
	return svc, func() {
		closeStore()
		if err := pub.Close(); err != nil {
			slog.Error("error closing redis client", "error", err)
		}
	}, nil
}

func (o *RootOptions) redisPublisher() (*notify.RedisPublisher, error) {
	pub, err := notify.NewRedisPublisher(&redis.Options{Addr: o.Config.RedisAddr}, o.Config.RedisChannel)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure notifications", err)
	}
	return pub, nil
}

type slotLister func(*swap.Service, context.Context, string) ([]slot.Event, error)

func listSlots(opts *SwapOptions, cmd *cobra.Command, list slotLister) error {
	f := opts.formatter(cmd)
	svc, _, closeFn, err := opts.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	events, err := list(svc, cmd.Context(), opts.As)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(events, eventsText(events))
}

type requestLister func(*swap.Service, context.Context, string) ([]slot.RequestDetail, error)

func listRequests(opts *SwapOptions, cmd *cobra.Command, list requestLister) error {
	f := opts.formatter(cmd)
	svc, _, closeFn, err := opts.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	requests, err := list(svc, cmd.Context(), opts.As)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(requests, requestsText(requests))
}

func watchNotices(opts *SwapOptions, cmd *cobra.Command) error {
	if !opts.Config.NotificationsEnabled() {
		return NewExitError(ExitCommandError, "SLOTSWAP_REDIS_ADDR is not set")
	}
	f := opts.formatter(cmd)

	pub, err := opts.redisPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	sub, err := pub.Subscribe(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to subscribe", err)
	}
	defer sub.Close()
	f.VerboseLog("watching %s", pub.Channel())

	errs := sub.Errors()
	seen := 0
	for {
		select {
		case n, ok := <-sub.Notices():
			if !ok {
				return nil
			}
			text := fmt.Sprintf("%s  %s  %s  %s:%s -> %s:%s\n",
				formatTime(n.At), n.Type, n.RequestID, n.RequesterID, n.RequesterSlotID, n.TargetUserID, n.TargetSlotID)
			if err := f.Success(n, text); err != nil {
				return err
			}
			seen++
			if opts.Count > 0 && seen >= opts.Count {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("skipping notice", "error", err)
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		}
	}
}
