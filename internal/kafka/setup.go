package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Dhoini/billing-backoffice/pkg/logger"
	kafkaGo "github.com/segmentio/kafka-go"
)

// AuditTopicConfig конфигурация топика аудита
func AuditTopicConfig(topic string) kafkaGo.TopicConfig {
	if topic == "" {
		topic = TopicAuditEvents
	}
	return kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}
}

// EnsureKafkaTopics создает недостающие топики через контроллер кластера.
func EnsureKafkaTopics(ctx context.Context, brokers []string, log *logger.Logger, topics ...kafkaGo.TopicConfig) error {
	if len(brokers) == 0 || brokers[0] == "" {
		return errors.New("kafka broker address is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var dialer kafkaGo.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller lookup failed: %w", err)
	}

	ctrlConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("kafka controller connection failed: %w", err)
	}
	defer ctrlConn.Close()

	partitions, err := ctrlConn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("kafka read partitions failed: %w", err)
	}

	existing := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		existing[p.Topic] = struct{}{}
	}

	var missing []kafkaGo.TopicConfig
	for _, t := range topics {
		if _, ok := existing[t.Topic]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		log.Debugw("Kafka topics already exist", "count", len(topics))
		return nil
	}

	if err := ctrlConn.CreateTopics(missing...); err != nil && !errors.Is(err, kafkaGo.TopicAlreadyExists) {
		return fmt.Errorf("kafka create topics failed: %w", err)
	}

	log.Infow("Kafka topics created", "count", len(missing))
	return nil
}
