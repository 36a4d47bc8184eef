package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Sync event types
const (
	SyncCompleted = "profit.sync.completed"
	SyncFailed    = "profit.sync.failed"

	StreamProfitSync = "PROFIT_SYNC_EVENTS"
)

// SyncEvent announces the outcome of a website sync
type SyncEvent struct {
	events.BaseEvent
	WebsiteID         string `json:"websiteId"`
	Phase             string `json:"phase,omitempty"`
	ProductsProcessed int    `json:"productsProcessed"`
	OrdersProcessed   int    `json:"ordersProcessed"`
	Error             string `json:"error,omitempty"`
}

func (e *SyncEvent) GetSubject() string {
	return e.EventType
}

func (e *SyncEvent) GetStream() string {
	return StreamProfitSync
}

// NewSyncCompletedEvent builds a completed event
func NewSyncCompletedEvent(websiteID uuid.UUID, products, orders int) *SyncEvent {
	return &SyncEvent{
		BaseEvent:         newBaseEvent(SyncCompleted, websiteID),
		WebsiteID:         websiteID.String(),
		ProductsProcessed: products,
		OrdersProcessed:   orders,
	}
}

// NewSyncFailedEvent builds a failed event for the phase that failed
func NewSyncFailedEvent(websiteID uuid.UUID, phase, message string) *SyncEvent {
	return &SyncEvent{
		BaseEvent: newBaseEvent(SyncFailed, websiteID),
		WebsiteID: websiteID.String(),
		Phase:     phase,
		Error:     message,
	}
}

func newBaseEvent(eventType string, websiteID uuid.UUID) events.BaseEvent {
	return events.BaseEvent{
		EventType: eventType,
		TenantID:  websiteID.String(),
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers sync events to a broker
type Publisher interface {
	PublishSyncCompleted(ctx context.Context, websiteID uuid.UUID, products, orders int) error
	PublishSyncFailed(ctx context.Context, websiteID uuid.UUID, phase, message string) error
	Close()
}

// NATSPublisher publishes to the PROFIT_SYNC_EVENTS JetStream stream
type NATSPublisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewNATSPublisher connects to NATS and ensures the stream exists
func NewNATSPublisher(natsURL string, logger *logrus.Logger) (*NATSPublisher, error) {
	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "profit-sync-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := publisher.EnsureStream(ctx, StreamProfitSync, []string{"profit.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure PROFIT_SYNC_EVENTS stream")
	}

	return &NATSPublisher{
		publisher: publisher,
		logger:    logger.WithField("component", "events.publisher"),
	}, nil
}

// PublishSyncCompleted publishes a sync completed event
func (p *NATSPublisher) PublishSyncCompleted(ctx context.Context, websiteID uuid.UUID, products, orders int) error {
	return p.publisher.Publish(ctx, NewSyncCompletedEvent(websiteID, products, orders))
}

// PublishSyncFailed publishes a sync failed event
func (p *NATSPublisher) PublishSyncFailed(ctx context.Context, websiteID uuid.UUID, phase, message string) error {
	return p.publisher.Publish(ctx, NewSyncFailedEvent(websiteID, phase, message))
}

// Close closes the NATS connection
func (p *NATSPublisher) Close() {
	p.publisher.Close()
}

// messageWriter is the part of kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes sync events as JSON messages keyed by website id
type KafkaPublisher struct {
	writer messageWriter
	logger *logrus.Entry
}

// NewKafkaPublisher creates a publisher writing to topic
func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{
		writer: writer,
		logger: logger.WithField("component", "events.kafka"),
	}, nil
}

// PublishSyncCompleted publishes a sync completed event
func (p *KafkaPublisher) PublishSyncCompleted(ctx context.Context, websiteID uuid.UUID, products, orders int) error {
	return p.publish(ctx, NewSyncCompletedEvent(websiteID, products, orders))
}

// PublishSyncFailed publishes a sync failed event
func (p *KafkaPublisher) PublishSyncFailed(ctx context.Context, websiteID uuid.UUID, phase, message string) error {
	return p.publish(ctx, NewSyncFailedEvent(websiteID, phase, message))
}

func (p *KafkaPublisher) publish(ctx context.Context, event *SyncEvent) error {
	msg, err := kafkaMessage(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func kafkaMessage(event *SyncEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.WebsiteID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}, nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.WithError(err).Warn("Failed to close kafka writer")
	}
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishSyncCompleted(context.Context, uuid.UUID, int, int) error {
	return nil
}

func (NopPublisher) PublishSyncFailed(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (NopPublisher) Close() {}

// NewPublisher picks the publisher for backend: nats, kafka or none
func NewPublisher(backend, natsURL string, kafkaBrokers []string, kafkaTopic string, logger *logrus.Logger) (Publisher, error) {
	switch backend {
	case "nats":
		if natsURL == "" {
			natsURL = "nats://nats.nats.svc.cluster.local:4222"
		}
		return NewNATSPublisher(natsURL, logger)
	case "kafka":
		return NewKafkaPublisher(kafkaBrokers, kafkaTopic, logger)
	case "none", "":
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown events backend: %s", backend)
	}
}
