package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

func TestEventPublisher_PublishEvent(t *testing.T) {
	rec := &recordingPublisher{}
	ep := NewEventPublisher(rec, "mechlab-apiserver")
	ctx := logging.ContextWithRequestID(context.Background(), "req-42")

	job := chem.AnalysisJob{ID: "job-1", Reactant: "CCBr", Product: "CCO"}
	require.NoError(t, ep.PublishEvent(ctx, TopicAnalysisRequested, job.ID, EventAnalysisRequested, job))

	require.Len(t, rec.msgs, 1)
	msg := rec.msgs[0]
	assert.Equal(t, TopicAnalysisRequested, msg.Topic)
	assert.Equal(t, []byte("job-1"), msg.Key)
	assert.Equal(t, EventAnalysisRequested, msg.Headers["event_type"])
	assert.Equal(t, "req-42", msg.Headers["trace_id"])

	env, err := MessageToEventEnvelope(&Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, "mechlab-apiserver", env.Source)

	var decoded chem.AnalysisJob
	require.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, job, decoded)
}

func TestEventPublisher_PublishError(t *testing.T) {
	rec := &recordingPublisher{err: errors.New("broker down")}
	ep := NewEventPublisher(rec, "test")
	err := ep.PublishEvent(context.Background(), TopicAnalysisCompleted, "k", EventAnalysisCompleted, map[string]string{"a": "b"})
	assert.EqualError(t, err, "broker down")
}

func TestEventPublisher_UnmarshalablePayload(t *testing.T) {
	rec := &recordingPublisher{}
	ep := NewEventPublisher(rec, "test")
	err := ep.PublishEvent(context.Background(), TopicAnalysisCompleted, "k", EventAnalysisCompleted, make(chan int))
	require.Error(t, err)
	assert.Empty(t, rec.msgs)
}

func TestEventPublisher_PublishEvents_Batch(t *testing.T) {
	var written []kafka.Message
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(_ context.Context, in ...kafka.Message) error {
		written = append(written, in...)
		errs := make(kafka.WriteErrors, len(in))
		errs[1] = errors.New("partition offline")
		return errs
	}})
	ep := NewEventPublisher(p, "mechlab-apiserver")
	ctx := logging.ContextWithRequestID(context.Background(), "req-7")

	errs, err := ep.PublishEvents(ctx, TopicAnalysisRequested, EventAnalysisRequested, []Event{
		{Key: "job-1", Payload: chem.AnalysisJob{ID: "job-1"}},
		{Key: "job-2", Payload: chem.AnalysisJob{ID: "job-2"}},
		{Key: "job-3", Payload: chem.AnalysisJob{ID: "job-3"}},
	})
	require.NoError(t, err)
	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.EqualError(t, errs[1], "partition offline")
	assert.NoError(t, errs[2])

	require.Len(t, written, 3, "one write for the whole batch")
	assert.Equal(t, "job-3", string(written[2].Key))
	env, err := MessageToEventEnvelope(&Message{Value: written[0].Value})
	require.NoError(t, err)
	assert.Equal(t, "req-7", env.TraceID)
	assert.Equal(t, int64(2), p.GetMetrics().MessagesSent.Load())
}

func TestEventPublisher_PublishEvents_BrokerDown(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return errors.New("down")
	}})
	errs, err := NewEventPublisher(p, "test").PublishEvents(context.Background(), TopicAnalysisRequested, EventAnalysisRequested,
		[]Event{{Key: "a", Payload: 1}, {Key: "b", Payload: 2}})
	require.NoError(t, err)
	for _, e := range errs {
		assert.EqualError(t, e, "down")
	}
}

func TestEventPublisher_PublishEvents_SingleFallback(t *testing.T) {
	rec := &recordingPublisher{failures: 1}
	errs, err := NewEventPublisher(rec, "test").PublishEvents(context.Background(), TopicAnalysisRequested, EventAnalysisRequested,
		[]Event{{Key: "a", Payload: 1}, {Key: "b", Payload: 2}})
	require.NoError(t, err)
	assert.Error(t, errs[0])
	assert.NoError(t, errs[1])
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "b", string(rec.msgs[0].Key))

	_, err = NewEventPublisher(rec, "test").PublishEvents(context.Background(), TopicAnalysisRequested, EventAnalysisRequested,
		[]Event{{Key: "c", Payload: make(chan int)}})
	assert.Error(t, err)
}
