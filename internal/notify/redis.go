// Package notify publishes swap lifecycle notices to a Redis channel.
//
// Publication happens after the swap has committed and is best effort:
// subscribers that are not connected miss the notice, and a Redis outage
// never affects the swap itself.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/slotswap/internal/swap"
)

// RedisPublisher sends swap.Notice values as JSON to one pub/sub channel.
// It is safe for concurrent use.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher for channel.
// Returns an error if channel is empty.
func NewRedisPublisher(redisOpts *redis.Options, channel string) (*RedisPublisher, error) {
	if channel == "" {
		return nil, fmt.Errorf("channel cannot be empty")
	}
	return &RedisPublisher{
		rdb:     redis.NewClient(redisOpts),
		channel: channel,
	}, nil
}

// Channel returns the pub/sub channel name.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// Ping verifies Redis connectivity.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Publish implements swap.Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, n swap.Notice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notice: %w", err)
	}
	return nil
}

// Subscription delivers notices until Close is called or its context ends.
type Subscription struct {
	notices chan swap.Notice
	errors  chan error
	cancel  context.CancelFunc
}

// Notices returns the channel of received notices. It is closed when the
// subscription ends.
func (s *Subscription) Notices() <-chan swap.Notice {
	return s.notices
}

// Errors returns decode failures for messages that were skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe listens on the publisher's channel. It returns once Redis has
// confirmed the subscription, so notices published afterwards are received.
func (p *RedisPublisher) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := p.rdb.Subscribe(ctx, p.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", p.channel, err)
	}

	notices := make(chan swap.Notice, 10)
	errs := make(chan error, 10)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(notices)
		defer close(errs)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var n swap.Notice
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					select {
					case errs <- fmt.Errorf("failed to unmarshal notice: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case notices <- n:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{notices: notices, errors: errs, cancel: cancel}, nil
}
