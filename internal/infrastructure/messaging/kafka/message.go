package kafka

import (
	"context"
	"time"
)

// Message is a consumed record with its headers flattened.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish. A zero Timestamp is replaced with
// the send time.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int
	Timestamp time.Time
}

// MessageHandler processes one message. A non-nil error triggers the
// consumer's retry policy.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher is the publishing side used by the application layer and by the
// consumer's dead-letter path.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// BatchPublisher writes several messages in one round trip. Producer
// satisfies it.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, msgs []*ProducerMessage) (*BatchPublishResult, error)
}

// BatchItemError reports one failed message of a batch. Index is -1 when the
// whole batch failed.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	MaxMessageBytes   int
	Configs           map[string]string
}
