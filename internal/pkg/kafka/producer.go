package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const dialTimeout = 10 * time.Second

// Producer publishes one audit record per reminder delivery attempt.
type Producer interface {
	Publish(ctx context.Context, audit *entity.ReminderAudit) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer falls back to a logging producer when the brokers are unreachable,
// audit is never allowed to block reminder delivery.
func NewProducer(brokers, topic string) Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	logrus.Infof("Kafka producer configured for brokers: %s", brokers)

	// Проверяем подключение и создаем топик
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", brokers)
	if err != nil {
		logrus.Warnf("Kafka connection failed: %v, using mock producer instead", err)
		writer.Close()
		return &mockProducer{}
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.Debugf("Could not create topic %s (might already exist): %v", topic, err)
	}

	logrus.Infof("Connected to Kafka at %s", brokers)
	return &kafkaProducer{writer: writer, topic: topic}
}

func (p *kafkaProducer) Publish(ctx context.Context, audit *entity.ReminderAudit) error {
	msg, err := auditMessage(audit)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write audit to %s: %w", p.topic, err)
	}
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// auditMessage keys records by event so all attempts for one event land in one partition.
func auditMessage(audit *entity.ReminderAudit) (kafka.Message, error) {
	value, err := json.Marshal(audit)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal audit: %w", err)
	}

	return kafka.Message{
		Key:   []byte(audit.EventID),
		Value: value,
		Time:  audit.AttemptedAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(audit.Kind)},
			{Key: "outcome", Value: []byte(audit.Outcome)},
		},
	}, nil
}

// Mock producer для работы без Kafka
type mockProducer struct{}

func NewMockProducer() Producer {
	return &mockProducer{}
}

func (m *mockProducer) Publish(_ context.Context, audit *entity.ReminderAudit) error {
	logrus.WithFields(logrus.Fields{
		"event_id": audit.EventID,
		"kind":     audit.Kind,
		"outcome":  audit.Outcome,
	}).Debug("MOCK: reminder audit")
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
