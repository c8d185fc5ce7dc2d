package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/table-booking/internal/model"
)

// partitionKey keeps all events for one booking day on one partition so
// consumers see them in publish order.
func partitionKey(payload any) []byte {
	if r, ok := payload.(*model.Reservation); ok && r != nil {
		return []byte(r.Date.UTC().Format("2006-01-02"))
	}
	return nil
}

// KafkaBridge mirrors reservation events to a Kafka topic for downstream
// consumers such as analytics.
type KafkaBridge struct {
	writer *kafka.Writer
	log    *slog.Logger
	now    func() time.Time
}

// NewKafkaBridge writes asynchronously to topic on brokers.
func NewKafkaBridge(brokers []string, topic string, log *slog.Logger) *KafkaBridge {
	if log == nil {
		log = slog.Default()
	}
	l := log.With(slog.String("component", "kafka-bridge"))
	return &KafkaBridge{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 50 * time.Millisecond,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					l.Warn("kafka write failed", slog.Int("messages", len(messages)), slog.Any("err", err))
				}
			},
		},
		log: l,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (b *KafkaBridge) Publish(ctx context.Context, event string, payload any) {
	value, err := json.Marshal(Frame{Event: event, Data: payload, Timestamp: b.now()})
	if err != nil {
		b.log.Error("kafka marshal error", slog.String("event", event), slog.Any("err", err))
		return
	}
	msg := kafka.Message{
		Key:     partitionKey(payload),
		Value:   value,
		Headers: []kafka.Header{{Key: "event", Value: []byte(event)}},
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.log.Warn("kafka publish failed", slog.String("event", event), slog.Any("err", err))
	}
}

// Close flushes pending messages.
func (b *KafkaBridge) Close() error { return b.writer.Close() }

// NATSBridge mirrors reservation events to NATS subjects of the form
// <prefix>.<event>.
type NATSBridge struct {
	conn   *nats.Conn
	prefix string
	log    *slog.Logger
	now    func() time.Time
}

// NewNATSBridge connects to url.
func NewNATSBridge(url, prefix string, log *slog.Logger) (*NATSBridge, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := nats.Connect(url, nats.Name("table-booking"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if prefix == "" {
		prefix = "reservations"
	}
	return &NATSBridge{
		conn:   conn,
		prefix: prefix,
		log:    log.With(slog.String("component", "nats-bridge")),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (b *NATSBridge) Publish(_ context.Context, event string, payload any) {
	data, err := json.Marshal(Frame{Event: event, Data: payload, Timestamp: b.now()})
	if err != nil {
		b.log.Error("nats marshal error", slog.String("event", event), slog.Any("err", err))
		return
	}
	if err := b.conn.Publish(b.prefix+"."+event, data); err != nil {
		b.log.Warn("nats publish failed", slog.String("event", event), slog.Any("err", err))
	}
}

// Close drains buffered messages and closes the connection.
func (b *NATSBridge) Close() error {
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return err
	}
	return nil
}
