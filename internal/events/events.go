package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/yyup/kindergarten-service/internal/config"
	"github.com/yyup/kindergarten-service/internal/metrics"
	"github.com/yyup/kindergarten-service/internal/utils"
)

type EventType string

const (
	NotificationCreated EventType = "notification.created"
	ActivityCreated     EventType = "activity.created"
	CheckinCreated      EventType = "checkin.created"
	StudentImported     EventType = "student.imported"
)

const serviceSource = "kindergarten-service"

type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Tenant    string                 `json:"tenant"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewEvent(eventType EventType, tenant string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    serviceSource,
		Tenant:    tenant,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Publisher sends events through a watermill publisher.
type Publisher struct {
	publisher message.Publisher
	topic     string
	logger    utils.Logger
}

func NewPublisher(publisher message.Publisher, topic string, logger utils.Logger) *Publisher {
	return &Publisher{publisher: publisher, topic: topic, logger: logger}
}

// NewPublisherFromConfig publishes to Kafka when brokers are configured and to an
// in-process channel otherwise.
func NewPublisherFromConfig(cfg config.KafkaConfig, logger utils.Logger) (*Publisher, error) {
	wmLogger := NewLoggerAdapter(logger)

	if len(cfg.Brokers) == 0 {
		logger.Info("No Kafka brokers configured, publishing events in-process")
		return NewPublisher(gochannel.NewGoChannel(gochannel.Config{}, wmLogger), cfg.Topic, logger), nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	logger.Info("Kafka event publisher ready", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return NewPublisher(pub, cfg.Topic, logger), nil
}

func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", string(event.Type))
	msg.Metadata.Set("tenant", event.Tenant)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		metrics.RecordEventPublished(string(event.Type), false)
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	metrics.RecordEventPublished(string(event.Type), true)
	p.logger.Debug("Event published", "event_id", event.ID, "type", string(event.Type), "tenant", event.Tenant)
	return nil
}

func (p *Publisher) Close() error {
	return p.publisher.Close()
}

// loggerAdapter routes watermill logs into the service logger.
type loggerAdapter struct {
	logger utils.Logger
}

func NewLoggerAdapter(logger utils.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{logger: logger.With("component", "watermill")}
}

func (a *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(flatten(fields), "error", err)...)
}

func (a *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, flatten(fields)...)
}

func (a *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, flatten(fields)...)
}

func (a *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, flatten(fields)...)
}

func (a *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{logger: a.logger.With(flatten(fields)...)}
}

func flatten(fields watermill.LogFields) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
