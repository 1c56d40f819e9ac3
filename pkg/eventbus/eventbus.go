// Package eventbus publishes and consumes domain events over NATS JetStream.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/richxcame/upi-guard/pkg/logger"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Healthy when the connection is down.
var ErrNotConnected = errors.New("eventbus: not connected")

// Event is the envelope for every message on the bus.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id.
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the event payload into dest.
func (e *Event) Decode(dest interface{}) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// Handler processes one event. A returned error naks the message so
// JetStream redelivers it.
type Handler func(ctx context.Context, event *Event) error

// Publisher is what services depend on to emit events.
type Publisher interface {
	Publish(ctx context.Context, subject string, event *Event) error
}

// Bus is a JetStream-backed Publisher with durable subscriptions.
type Bus struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream

	mu        sync.Mutex
	consumers []jetstream.ConsumeContext
}

var _ Publisher = (*Bus)(nil)

// Connect dials NATS and makes sure the stream capturing upi.> exists.
func Connect(ctx context.Context, cfg config.NATSConfig, clientName string) (*Bus, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("eventbus: disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("eventbus: reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.StreamName,
		Subjects:  []string{SubjectPrefix + ">"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}

	return &Bus{conn: conn, js: js, stream: stream}, nil
}

// Publish sends event on subject. The event id doubles as the JetStream
// message id so retried publishes are deduplicated.
func (b *Bus) Publish(ctx context.Context, subject string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.js.Publish(ctx, subject, payload, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe consumes subject with handler. A non-empty durable name shares
// delivery across replicas; an empty one gives this process its own
// ephemeral consumer that only sees new messages.
func (b *Bus) Subscribe(ctx context.Context, subject, durable string, handler Handler) error {
	consumerCfg := jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
	}
	if durable == "" {
		consumerCfg.DeliverPolicy = jetstream.DeliverNewPolicy
		consumerCfg.InactiveThreshold = time.Minute
	}

	consumer, err := b.stream.CreateOrUpdateConsumer(ctx, consumerCfg)
	if err != nil {
		return fmt.Errorf("create consumer for %s: %w", subject, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		b.dispatch(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", subject, err)
	}

	b.mu.Lock()
	b.consumers = append(b.consumers, cc)
	b.mu.Unlock()
	return nil
}

func (b *Bus) dispatch(ctx context.Context, msg jetstream.Msg, handler Handler) {
	var event Event
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Warn("eventbus: dropping malformed message",
			zap.String("subject", msg.Subject()),
			zap.Error(err),
		)
		_ = msg.Term()
		return
	}

	if err := handler(ctx, &event); err != nil {
		logger.Warn("eventbus: handler failed, will redeliver",
			zap.String("subject", msg.Subject()),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// Healthy reports whether the connection is up.
func (b *Bus) Healthy() error {
	if b == nil || b.conn == nil || !b.conn.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close stops consumers and drains the connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	for _, cc := range b.consumers {
		cc.Stop()
	}
	b.consumers = nil
	b.mu.Unlock()

	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
		}
	}
}
