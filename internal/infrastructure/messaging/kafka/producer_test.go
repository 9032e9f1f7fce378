package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/MechanismLab/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func newTestProducer(w WriterInterface) *Producer {
	return newProducerWithWriter(w, ProducerConfig{Brokers: []string{"localhost:9092"}}, logging.NewNopLogger())
}

func newTestProducerMessage(topic, key, value string) *ProducerMessage {
	return &ProducerMessage{Topic: topic, Key: []byte(key), Value: []byte(value)}
}

func TestValidateProducerConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProducerConfig
		wantErr bool
	}{
		{"valid", ProducerConfig{Brokers: []string{"b:9092"}}, false},
		{"no brokers", ProducerConfig{}, true},
		{"negative retries", ProducerConfig{Brokers: []string{"b"}, MaxRetries: -1}, true},
		{"sasl without creds", ProducerConfig{Brokers: []string{"b"}, Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "PLAIN"}}, true},
		{"sasl unknown mechanism", ProducerConfig{Brokers: []string{"b"}, Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "GSSAPI", SASLUsername: "u", SASLPassword: "p"}}, true},
		{"sasl scram", ProducerConfig{Brokers: []string{"b"}, Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "SCRAM-SHA-512", SASLUsername: "u", SASLPassword: "p"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProducerConfig(tt.cfg)
			if tt.wantErr {
				assert.True(t, pkgerrors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewProducer_Defaults(t *testing.T) {
	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Acks: "all", CompressionCodec: "snappy"}, nil)
	require.NoError(t, err)
	defer p.Close()

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, 4, w.MaxAttempts)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, kafka.Snappy, w.Compression)
	assert.Equal(t, 1<<20, p.config.MaxMessageBytes)
}

func TestNewProducer_BadCAPath(t *testing.T) {
	_, err := NewProducer(ProducerConfig{
		Brokers:  []string{"localhost:9092"},
		Security: SecurityConfig{TLSEnabled: true, TLSCAPath: "/nonexistent/ca.pem"},
	}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeInvalidConfig))
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(_ context.Context, msgs ...kafka.Message) error {
		captured = msgs
		return nil
	}})

	msg := newTestProducerMessage("t", "k", "v")
	msg.Headers = map[string]string{"event_type": "analysis.requested"}
	require.NoError(t, p.Publish(context.Background(), msg))

	require.Len(t, captured, 1)
	assert.Equal(t, "t", captured[0].Topic)
	assert.Equal(t, "k", string(captured[0].Key))
	assert.Equal(t, "v", string(captured[0].Value))
	assert.False(t, captured[0].Time.IsZero())
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("analysis.requested")}}, captured[0].Headers)

	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.MessagesSent.Load())
	assert.Equal(t, int64(1), m.BytesSent.Load())
}

func TestPublish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	p.config.MaxMessageBytes = 4
	ctx := context.Background()

	assert.Error(t, p.Publish(ctx, nil))
	assert.Error(t, p.Publish(ctx, newTestProducerMessage("", "k", "v")))
	assert.Error(t, p.Publish(ctx, newTestProducerMessage("t", "k", "")))
	assert.Error(t, p.Publish(ctx, newTestProducerMessage("t", "k", "too long")))
}

func TestPublish_Failure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return errors.New("write failed")
	}})
	err := p.Publish(context.Background(), newTestProducerMessage("t", "k", "v"))
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.Equal(t, int64(1), p.GetMetrics().MessagesFailed.Load())
}

func TestPublishBatch(t *testing.T) {
	msgs := []*ProducerMessage{
		newTestProducerMessage("t", "1", "1"),
		newTestProducerMessage("t", "2", "2"),
	}

	t.Run("partial", func(t *testing.T) {
		p := newTestProducer(&mockKafkaWriter{writeFunc: func(_ context.Context, in ...kafka.Message) error {
			errs := make(kafka.WriteErrors, len(in))
			errs[1] = errors.New("fail")
			return errs
		}})
		res, err := p.PublishBatch(context.Background(), msgs)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Succeeded)
		assert.Equal(t, 1, res.Failed)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 1, res.Errors[0].Index)
	})

	t.Run("total", func(t *testing.T) {
		p := newTestProducer(&mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
			return errors.New("down")
		}})
		res, err := p.PublishBatch(context.Background(), msgs)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Failed)
		assert.Equal(t, -1, res.Errors[0].Index)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := newTestProducer(&mockKafkaWriter{}).PublishBatch(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestProducer_Ready(t *testing.T) {
	fail := true
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}})
	ctx := context.Background()
	require.NoError(t, p.Ready(ctx), "ready before any write")

	require.Error(t, p.Publish(ctx, newTestProducerMessage("t", "k", "v")))
	err := p.Ready(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMessageQueue))

	fail = false
	require.NoError(t, p.Publish(ctx, newTestProducerMessage("t", "k", "v")))
	assert.NoError(t, p.Ready(ctx))

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Ready(ctx), ErrProducerClosed)
}

func TestClose_Idempotent(t *testing.T) {
	closes := 0
	p := newTestProducer(&mockKafkaWriter{closeFunc: func() error {
		closes++
		return nil
	}})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, closes)
	assert.ErrorIs(t, p.Publish(context.Background(), newTestProducerMessage("t", "k", "v")), ErrProducerClosed)
}
