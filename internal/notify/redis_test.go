package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotswap/internal/swap"
)

func setupPublisher(t *testing.T) (*RedisPublisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	p, err := NewRedisPublisher(&redis.Options{Addr: mr.Addr()}, "slotswap.test")
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, mr
}

func testNotice() swap.Notice {
	return swap.Notice{
		Type:            swap.NoticeRequested,
		RequestID:       "r1",
		RequesterID:     "u1",
		RequesterSlotID: "a",
		TargetUserID:    "u2",
		TargetSlotID:    "b",
		At:              time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewRedisPublisher_RequiresChannel(t *testing.T) {
	_, err := NewRedisPublisher(&redis.Options{Addr: "localhost:0"}, "")
	assert.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	p, _ := setupPublisher(t)
	ctx := context.Background()
	require.NoError(t, p.Ping(ctx))

	sub, err := p.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, p.Publish(ctx, testNotice()))

	select {
	case got := <-sub.Notices():
		assert.Equal(t, testNotice(), got)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notice")
	}
}

func TestSubscribe_SkipsMalformedPayload(t *testing.T) {
	p, mr := setupPublisher(t)
	ctx := context.Background()

	sub, err := p.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(p.Channel(), "{not json")
	require.NoError(t, p.Publish(ctx, testNotice()))

	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "unmarshal notice")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for decode error")
	}
	select {
	case got := <-sub.Notices():
		assert.Equal(t, "r1", got.RequestID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notice")
	}
}

func TestSubscription_CloseEndsStream(t *testing.T) {
	p, _ := setupPublisher(t)

	sub, err := p.Subscribe(context.Background())
	require.NoError(t, err)
	sub.Close()

	select {
	case _, ok := <-sub.Notices():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("notices channel not closed")
	}
}

func TestPublish_RedisDown(t *testing.T) {
	p, mr := setupPublisher(t)
	mr.Close()

	err := p.Publish(context.Background(), testNotice())
	assert.Error(t, err)
}
