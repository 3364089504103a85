package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisFeed shares events between API instances over a Redis pub/sub
// channel.
type RedisFeed struct {
	client  *redis.Client
	channel string
	log     *zap.Logger

	mu     sync.Mutex
	subs   map[*redis.PubSub]context.CancelFunc
	closed bool
}

func NewRedisFeed(client *redis.Client, channel string, log *zap.Logger) *RedisFeed {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisFeed{
		client:  client,
		channel: channel,
		log:     log.Named("feed"),
		subs:    make(map[*redis.PubSub]context.CancelFunc),
	}
}

func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return ErrClosed
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", f.channel, err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan Event, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	f.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	pubsub := f.client.Subscribe(subCtx, f.channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	f.mu.Lock()
	f.subs[pubsub] = cancel
	f.mu.Unlock()

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer func() {
			_ = pubsub.Close()
			f.mu.Lock()
			delete(f.subs, pubsub)
			f.mu.Unlock()
			close(out)
		}()

		msgs := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					f.log.Warn("dropping undecodable event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				if deliver(out, ev) {
					f.log.Debug("subscriber behind, backlog replaced by resync", zap.String("type", string(ev.Type)))
				}
			}
		}
	}()
	return out, nil
}

// Close ends every subscription. The client stays open; its owner closes it.
func (f *RedisFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for _, cancel := range f.subs {
		cancel()
	}
	return nil
}
