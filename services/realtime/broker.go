// Package realtime fans review events out to live subscribers.
package realtime

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/review"
)

const channelPrefix = "peereval:reviews:"

// Broker publishes and subscribes to the review events of a session.
type Broker interface {
	review.Notifier
	// Subscribe streams the events of a session until ctx is done or close is called.
	Subscribe(ctx context.Context, sessionID int64) (events <-chan review.Event, close func() error, err error)
}

func channel(sessionID int64) string {
	return channelPrefix + strconv.FormatInt(sessionID, 10)
}

// NewRedisClient connects to conf.Redis.Address.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

type redisBroker struct {
	rdb    *redis.Client
	logger core.Logger
}

var _ Broker = (*redisBroker)(nil)

func NewRedisBroker(rdb *redis.Client, logger core.Logger) Broker {
	return &redisBroker{rdb: rdb, logger: logger}
}

func (b *redisBroker) Publish(ctx context.Context, evt review.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	if err = b.rdb.Publish(ctx, channel(evt.SessionID), payload).Err(); err != nil {
		return errors.Wrap(err, "publishing event")
	}
	return nil
}

func (b *redisBroker) Subscribe(ctx context.Context, sessionID int64) (<-chan review.Event, func() error, error) {
	pubsub := b.rdb.Subscribe(ctx, channel(sessionID))
	// wait for the subscription to be confirmed so no event published afterwards is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, errors.Wrap(err, "subscribing")
	}

	events := make(chan review.Event)
	go func() {
		defer close(events)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt review.Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.logger.Warn("decoding review event: "+err.Error(), err)
					continue
				}
				select {
				case events <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, pubsub.Close, nil
}

// NopBroker drops published events and never emits any.
type NopBroker struct{}

var _ Broker = NopBroker{}

func (NopBroker) Publish(context.Context, review.Event) error { return nil }

func (NopBroker) Subscribe(ctx context.Context, _ int64) (<-chan review.Event, func() error, error) {
	events := make(chan review.Event)
	go func() {
		<-ctx.Done()
		close(events)
	}()
	return events, func() error { return nil }, nil
}
