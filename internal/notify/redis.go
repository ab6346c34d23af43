package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const channelPrefix = "immutrack:"

// RedisBroker fans change events out across server instances through Redis
// pub/sub. Local subscriptions still go through an in-process Hub; Publish
// writes to Redis, and the run loop feeds everything received from Redis
// (including this instance's own publishes) into the hub.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
	pubsub *redis.PubSub
}

// NewRedisBroker wires a hub to a Redis connection and starts the relay.
func NewRedisBroker(ctx context.Context, client *redis.Client, hub *Hub, logger *zap.Logger) *RedisBroker {
	b := &RedisBroker{
		client: client,
		hub:    hub,
		logger: logger,
		pubsub: client.PSubscribe(ctx, channelPrefix+"*"),
	}
	go b.run()
	return b
}

// Publish sends the event through Redis. Delivery to local subscribers
// happens when the relay loop receives it back.
func (b *RedisBroker) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("marshal change event", zap.Error(err))
		return
	}
	if err := b.client.Publish(context.Background(), channelPrefix+ev.Topic, payload).Err(); err != nil {
		b.logger.Error("publish change event", zap.String("topic", ev.Topic), zap.Error(err))
	}
}

// Subscribe registers a local listener on a topic.
func (b *RedisBroker) Subscribe(topic string) *Subscription {
	return b.hub.Subscribe(topic)
}

// Close stops the relay. Existing subscriptions stay usable for local
// publishes via the hub but receive no further cross-instance events.
func (b *RedisBroker) Close() error {
	return b.pubsub.Close()
}

func (b *RedisBroker) run() {
	for msg := range b.pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.logger.Error("decode change event", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		b.hub.Publish(ev)
	}
}
