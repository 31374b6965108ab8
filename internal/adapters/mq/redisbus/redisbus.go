// Package redisbus relays item events through Redis pub/sub so that every
// engine instance can serve subscribers of any item.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

// ChannelPrefix precedes the item id in channel names: "auction_events:<item>".
const ChannelPrefix = "auction_events:"

// Channel returns the pub/sub channel of an item.
func Channel(itemID string) string {
	return ChannelPrefix + itemID
}

// ItemFromChannel extracts the item id from a channel name.
func ItemFromChannel(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, ChannelPrefix)
	return id, ok && id != ""
}

// Publisher is a dispatcher sink that PUBLISHes events as JSON.
type Publisher struct {
	client *redis.Client
}

// NewPublisher wraps a connected client.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Name implements the sink contract.
func (p *Publisher) Name() string { return "redis" }

// Deliver implements the sink contract.
func (p *Publisher) Deliver(ctx context.Context, e model.Event) error { //nolint:gocritic // Event is passed by value for channel semantics
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(e.ItemID), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", Channel(e.ItemID), err)
	}
	return nil
}

// Target receives relayed events, typically the local hub.
type Target interface {
	Deliver(ctx context.Context, e model.Event) error
}

// Bridge pattern-subscribes to every item channel and forwards into a Target.
type Bridge struct {
	client *redis.Client
	target Target
	logger logger.Logger
}

// NewBridge creates a bridge. Run starts it.
func NewBridge(client *redis.Client, target Target, l logger.Logger) *Bridge {
	if l == nil {
		l = logger.Get().Named("redis-bridge")
	}
	return &Bridge{client: client, target: target, logger: l}
}

// Run blocks until ctx is done, relaying messages in arrival order.
func (b *Bridge) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	b.logger.Info(ctx, "redis bridge subscribed", logger.String("pattern", ChannelPrefix+"*"))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.relay(ctx, msg)
		}
	}
}

func (b *Bridge) relay(ctx context.Context, msg *redis.Message) {
	e, err := Decode(msg.Channel, msg.Payload)
	if err != nil {
		b.logger.Warn(ctx, "dropping malformed event", logger.String("channel", msg.Channel), logger.Error(err))
		return
	}
	if err := b.target.Deliver(ctx, e); err != nil {
		b.logger.Warn(ctx, "relay failed", logger.String("item_id", e.ItemID), logger.Error(err))
	}
}

// Decode parses a payload and checks it against its channel.
func Decode(channel, payload string) (model.Event, error) {
	itemID, ok := ItemFromChannel(channel)
	if !ok {
		return model.Event{}, fmt.Errorf("unexpected channel %q", channel)
	}
	var e model.Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return model.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.ItemID != itemID {
		return model.Event{}, fmt.Errorf("event item %q does not match channel %q", e.ItemID, channel)
	}
	return e, nil
}
