// Package natsbus publishes item events to NATS for downstream consumers such
// as the winner/seller messaging service and archival.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
)

// Publisher is a dispatcher sink. With a stream configured it publishes
// through JetStream and waits for the ack; otherwise it uses core NATS.
type Publisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string
}

// Option configures the Publisher.
type Option func(*publisherConfig)

type publisherConfig struct {
	stream string
	maxAge time.Duration
}

// WithStream enables JetStream publishing into the named stream.
func WithStream(name string, maxAge time.Duration) Option {
	return func(c *publisherConfig) {
		c.stream = name
		if maxAge > 0 {
			c.maxAge = maxAge
		}
	}
}

// Subject returns the subject for an item: "<prefix>.<item>".
func Subject(prefix, itemID string) string {
	return prefix + "." + sanitize(itemID)
}

// NATS subjects use '.' as a token separator and reserve '*' and '>'.
func sanitize(token string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(token)
}

// New creates a publisher on an open connection.
func New(ctx context.Context, conn *nats.Conn, prefix string, opts ...Option) (*Publisher, error) {
	cfg := publisherConfig{maxAge: 24 * time.Hour}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Publisher{conn: conn, prefix: prefix}
	if cfg.stream == "" {
		return p, nil
	}

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.stream,
		Description: "Auction bid and result events",
		Subjects:    []string{prefix + ".>"},
		Storage:     jetstream.FileStorage,
		MaxAge:      cfg.maxAge,
	}); err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.stream, err)
	}
	p.js = js
	return p, nil
}

// Connect dials NATS with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("bidcycle"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return conn, nil
}

// Name implements the sink contract.
func (p *Publisher) Name() string { return "nats" }

// Deliver implements the sink contract.
func (p *Publisher) Deliver(ctx context.Context, e model.Event) error { //nolint:gocritic // Event is passed by value for channel semantics
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	subject := Subject(p.prefix, e.ItemID)
	if p.js != nil {
		if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(e.ID)); err != nil {
			return fmt.Errorf("jetstream publish %s: %w", subject, err)
		}
		return nil
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
