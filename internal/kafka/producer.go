package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// TopicAuditEvents топик с записями журнала аудита бэк-офиса
const TopicAuditEvents = "backoffice_audit_events"

// Producer публикует записи аудита во внешний поток событий.
type Producer interface {
	// PublishAuditEvent отправляет запись аудита. Ключ сообщения ID клиента,
	// чтобы события одного клиента попадали в одну партицию.
	PublishAuditEvent(ctx context.Context, entry domain.AuditEntry) error
	Close() error
}

// MessageWriter часть kafka.Writer, нужная продюсеру
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaProducer реализует Producer поверх segmentio/kafka-go.
type kafkaProducer struct {
	writer MessageWriter
	topic  string
	log    *logger.Logger
}

// NewKafkaProducer создает продюсер для списка брокеров. Пустой topic = TopicAuditEvents.
func NewKafkaProducer(brokers []string, topic string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}
	if topic == "" {
		topic = TopicAuditEvents
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Infow("Kafka producer initialized", "brokers", brokers, "topic", topic)
	return NewProducerWithWriter(writer, topic, log), nil
}

// NewProducerWithWriter создает продюсер с произвольным writer.
// Если topic пустой, writer должен сам знать топик.
func NewProducerWithWriter(writer MessageWriter, topic string, log *logger.Logger) Producer {
	return &kafkaProducer{writer: writer, topic: topic, log: log}
}

// auditMessage тело сообщения в топике аудита
type auditMessage struct {
	ID               string         `json:"id"`
	ActorEmail       string         `json:"actor_email"`
	Action           string         `json:"action"`
	TargetCustomerID string         `json:"target_customer_id,omitempty"`
	Details          map[string]any `json:"details,omitempty"`
	Reason           *string        `json:"reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// PublishAuditEvent сериализует запись в JSON и пишет в топик.
func (k *kafkaProducer) PublishAuditEvent(ctx context.Context, entry domain.AuditEntry) error {
	value, err := json.Marshal(auditMessage(entry))
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal message data: %w", err)
	}

	key := entry.TargetCustomerID
	if key == "" {
		key = entry.ID
	}

	message := kafka.Message{
		Topic: k.topic,
		Key:   []byte(key),
		Value: value,
		Time:  entry.CreatedAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(entry.Action)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(writeCtx, message); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			k.log.Errorw("Kafka write timeout exceeded", "error", err, "topic", k.topic, "auditID", entry.ID)
			return fmt.Errorf("kafka: write timeout: %w", err)
		}
		k.log.Errorw("Failed to write message to Kafka", "error", err, "topic", k.topic, "auditID", entry.ID)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	k.log.Debugw("Audit event published", "topic", k.topic, "auditID", entry.ID, "action", entry.Action)
	return nil
}

// Close закрывает writer. Вызывается при graceful shutdown.
func (k *kafkaProducer) Close() error {
	if err := k.writer.Close(); err != nil {
		k.log.Errorw("Failed to close Kafka writer", "error", err)
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	k.log.Infow("Kafka producer writer closed successfully")
	return nil
}

// NoopProducer используется, когда брокеры не настроены
type NoopProducer struct{}

func (NoopProducer) PublishAuditEvent(ctx context.Context, entry domain.AuditEntry) error {
	return nil
}

func (NoopProducer) Close() error { return nil }
