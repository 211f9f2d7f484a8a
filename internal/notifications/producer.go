package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"walkin/internal/queue"
	"walkin/pkg/logger"
)

// KafkaProducerConfig contains configuration for the Kafka notification producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "walkin.queue-notifications",
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// SaramaConfig builds the producer settings
func (c *KafkaProducerConfig) SaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = c.RequiredAcks
	saramaConfig.Producer.Compression = c.CompressionType
	saramaConfig.Producer.Retry.Max = c.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = c.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = c.MaxMessageBytes

	// Idempotent producers require a single in-flight request
	if c.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps one party's messages in order
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// KafkaNotifier publishes queue notifications to Kafka. It implements queue.Notifier.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	logger   *logger.Logger
}

var _ queue.Notifier = (*KafkaNotifier)(nil)

// NewKafkaNotifier connects a sync producer to the configured brokers
func NewKafkaNotifier(config *KafkaProducerConfig, log *logger.Logger) (*KafkaNotifier, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, config.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Info("Kafka notification producer created", "brokers", strings.Join(config.Brokers, ","), "topic", config.Topic)
	return NewKafkaNotifierWithProducer(producer, config, log), nil
}

// NewKafkaNotifierWithProducer wraps an existing producer
func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, config *KafkaProducerConfig, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		config:   config,
		logger:   log,
	}
}

func (kn *KafkaNotifier) SendQueueConfirmation(ctx context.Context, entry *queue.QueueEntry) error {
	return kn.Publish(ctx, build(NotificationTypeQueueConfirmation, entry).Build())
}

func (kn *KafkaNotifier) SendQueueUpdate(ctx context.Context, entry *queue.QueueEntry) error {
	return kn.Publish(ctx, build(NotificationTypeQueueUpdate, entry).Build())
}

func (kn *KafkaNotifier) SendTableReady(ctx context.Context, entry *queue.QueueEntry, tableNumbers []string) error {
	return kn.Publish(ctx, build(NotificationTypeTableReady, entry).WithTables(tableNumbers).Build())
}

func (kn *KafkaNotifier) SendQueueCancellation(ctx context.Context, entry *queue.QueueEntry, reason string) error {
	return kn.Publish(ctx, build(NotificationTypeQueueCancellation, entry).WithReason(reason).Build())
}

func build(notType NotificationType, entry *queue.QueueEntry) *NotificationBuilder {
	return NewNotificationBuilder().
		WithType(notType).
		WithEntry(entry.ID, entry.OutletID, entry.CustomerName, entry.Phone, entry.Code,
			entry.PartySize, entry.Position, entry.EstimatedWaitMinutes)
}

// Publish sends one notification and waits for the broker acknowledgement
func (kn *KafkaNotifier) Publish(ctx context.Context, notification *QueueNotification) error {
	messageBytes, err := notification.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kn.config.Topic,
		Key:       sarama.StringEncoder(notification.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   createHeaders(notification),
		Timestamp: notification.CreatedAt,
	}

	partition, offset, err := kn.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send %s notification to Kafka: %w", notification.Type, err)
	}

	kn.logger.DebugContext(ctx, "notification published",
		"topic", kn.config.Topic,
		"partition", partition,
		"offset", offset,
		"type", string(notification.Type),
		"entry_id", notification.EntryID.String(),
	)
	return nil
}

func createHeaders(n *QueueNotification) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(n.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(n.Type)},
		{Key: []byte("priority"), Value: []byte(n.Priority)},
		{Key: []byte("entry_id"), Value: []byte(n.EntryID.String())},
		{Key: []byte("outlet_id"), Value: []byte(n.OutletID.String())},
		{Key: []byte("version"), Value: []byte("1.0")},
		{Key: []byte("producer"), Value: []byte("walkin-queue")},
		{Key: []byte("created_at"), Value: []byte(n.CreatedAt.Format(time.RFC3339))},
	}
}

// Close closes the Kafka producer
func (kn *KafkaNotifier) Close() error {
	if kn.producer == nil {
		return nil
	}
	if err := kn.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	kn.logger.Info("Kafka notification producer closed")
	return nil
}

// HealthCheck validates the producer configuration
func (kn *KafkaNotifier) HealthCheck(ctx context.Context) error {
	if kn.producer == nil {
		return fmt.Errorf("health check failed - producer is nil")
	}
	if kn.config.Topic == "" {
		return fmt.Errorf("health check failed - notification topic not configured")
	}
	return nil
}
