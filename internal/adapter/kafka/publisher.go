package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/infection-analytics-service/internal/analytics"
	"github.com/couchcryptid/infection-analytics-service/internal/config"
	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/couchcryptid/infection-analytics-service/internal/observability"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// KindTimeframe is the event kind of playback frame changes. Statistics events
// use the analytics.Kind value.
const KindTimeframe = "timeframe"

// Event is the JSON payload published for every listener notification.
type Event struct {
	Kind        string            `json:"kind"`
	SessionID   string            `json:"session_id"`
	PublishedAt time.Time         `json:"published_at"`
	Index       *int              `json:"index,omitempty"`
	Timeframe   *domain.Timeframe `json:"timeframe,omitempty"`
	Statistics  any               `json:"statistics,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher forwards facade notifications to a Kafka topic.
// It implements analytics.Listener.
//
// Writes are asynchronous so that playback ticks never wait on the broker;
// delivery outcomes are counted in EventsPublished.
type Publisher struct {
	writer    messageWriter
	sessionID string
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewPublisher creates an async Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, sessionID string, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	p := &Publisher{
		sessionID: sessionID,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
		Completion:   p.completed,
	}
	return p
}

func (p *Publisher) OnTimeframeChanged(index int, frame domain.Timeframe) {
	p.publish(Event{
		Kind:      KindTimeframe,
		Index:     &index,
		Timeframe: &frame,
	})
}

func (p *Publisher) OnStatisticsUpdated(kind analytics.Kind, metrics any) {
	p.publish(Event{
		Kind:       string(kind),
		Statistics: metrics,
	})
}

// Close flushes pending messages and closes the producer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) publish(event Event) {
	event.SessionID = p.sessionID
	event.PublishedAt = p.clock.Now().UTC()

	msg, err := serializeToMessage(event)
	if err != nil {
		p.metrics.EventsPublished.WithLabelValues(event.Kind, "error").Inc()
		p.logger.Error("serialize event", "kind", event.Kind, "error", err)
		return
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.metrics.EventsPublished.WithLabelValues(event.Kind, "error").Inc()
		p.logger.Error("publish event", "kind", event.Kind, "error", err)
	}
}

// completed is the async delivery callback.
func (p *Publisher) completed(msgs []kafkago.Message, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		p.logger.Error("kafka delivery failed", "messages", len(msgs), "error", err)
	}
	for _, m := range msgs {
		p.metrics.EventsPublished.WithLabelValues(headerValue(m, "event_kind"), outcome).Inc()
	}
}

// serializeToMessage marshals an Event into a Kafka message keyed by session
// so that one session's events stay ordered on a single partition.
func serializeToMessage(event Event) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s event: %w", event.Kind, err)
	}
	return kafkago.Message{
		Key:   []byte(event.SessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_kind", Value: []byte(event.Kind)},
			{Key: "published_at", Value: []byte(event.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}

func headerValue(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
