package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/peereval/core/review"
	logsvc "github.com/trezcool/peereval/services/logger"
)

func newTestBroker(t *testing.T) (Broker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisBroker(rdb, logsvc.NewNopLogger()), mr
}

func receive(t *testing.T, events <-chan review.Event) review.Event {
	t.Helper()
	select {
	case evt, ok := <-events:
		require.True(t, ok, "events closed")
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return review.Event{}
}

func TestRedisBroker(t *testing.T) {
	broker, mr := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeSub, err := broker.Subscribe(ctx, 7)
	require.NoError(t, err)
	defer func() { _ = closeSub() }()

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, broker.Publish(ctx, review.Event{Type: review.EventSubmitted, SessionID: 7, UserName: "김철수", At: at}))
	require.NoError(t, broker.Publish(ctx, review.Event{Type: review.EventSubmitted, SessionID: 8, UserName: "이영희", At: at}))
	// garbage is skipped
	mr.Publish(channel(7), "{not json")
	require.NoError(t, broker.Publish(ctx, review.Event{Type: review.EventReset, SessionID: 7, At: at}))

	evt := receive(t, events)
	assert.Equal(t, review.Event{Type: review.EventSubmitted, SessionID: 7, UserName: "김철수", At: at}, evt)
	evt = receive(t, events)
	assert.Equal(t, review.EventReset, evt.Type)

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisBroker_Publish_down(t *testing.T) {
	broker, mr := newTestBroker(t)
	mr.Close()

	err := broker.Publish(context.Background(), review.Event{Type: review.EventReset, SessionID: 1})
	assert.Error(t, err)
}

func TestNopBroker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events, closeSub, err := NopBroker{}.Subscribe(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, NopBroker{}.Publish(ctx, review.Event{}))

	cancel()
	_, ok := <-events
	assert.False(t, ok)
	assert.NoError(t, closeSub())
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "peereval:reviews:42", channel(42))
}
