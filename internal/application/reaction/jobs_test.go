package reaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MechanismLab/internal/testutil"
	apperrors "github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

func jobMessage(t *testing.T, job chem.AnalysisJob) *kafka.Message {
	t.Helper()
	env, err := kafka.NewEventEnvelope(kafka.EventAnalysisRequested, "test", job)
	require.NoError(t, err)
	env.TraceID = "trace-7"
	pm, err := env.ToMessage(kafka.TopicAnalysisRequested, job.ID)
	require.NoError(t, err)
	return &kafka.Message{Topic: pm.Topic, Key: pm.Key, Value: pm.Value, Headers: pm.Headers}
}

func completedEvent(t *testing.T, events *recordingEvents) chem.AnalysisCompleted {
	t.Helper()
	got := events.all()
	require.Len(t, got, 1)
	assert.Equal(t, kafka.TopicAnalysisCompleted, got[0].topic)
	assert.Equal(t, kafka.EventAnalysisCompleted, got[0].eventType)
	done, ok := got[0].payload.(chem.AnalysisCompleted)
	require.True(t, ok)
	return done
}

func TestJobHandler_Success(t *testing.T) {
	events := &recordingEvents{}
	h := NewJobHandler(newTestService(t), events, "", nil, nil)
	c := tertiaryWeakProtic

	err := h.Handle(context.Background(), jobMessage(t, chem.AnalysisJob{
		ID: "job-1", Reactant: "CC(Br)C", Product: "CC(O)C", Conditions: &c,
	}))
	require.NoError(t, err)

	done := completedEvent(t, events)
	assert.Equal(t, "job-1", done.ID)
	assert.Nil(t, done.Error)
	require.NotNil(t, done.Result)
	assert.Equal(t, "job-1", done.Result.ID)
	assert.Equal(t, chem.MechanismSN1, done.Result.Analysis.Mechanism)
	assert.False(t, done.CompletedAt.IsZero())
}

func TestJobHandler_AnalysisErrorIsReported(t *testing.T) {
	events := &recordingEvents{}
	logger := testutil.NewMockLogger()
	h := NewJobHandler(newTestService(t), events, "", logger, nil)

	err := h.Handle(context.Background(), jobMessage(t, chem.AnalysisJob{ID: "job-2", Reactant: "", Product: "CCO"}))
	require.NoError(t, err)

	done := completedEvent(t, events)
	assert.Nil(t, done.Result)
	require.NotNil(t, done.Error)
	assert.Equal(t, string(apperrors.ErrCodeNotationEmpty), done.Error.Code)

	msg, ok := logger.Find("warn", "analysis job failed")
	require.True(t, ok)
	jobID, _ := msg.Field("job_id")
	assert.Equal(t, "job-2", jobID)
	reqID, _ := msg.Field("request_id")
	assert.Equal(t, "trace-7", reqID)
}

func TestJobHandler_UndecodableMessage(t *testing.T) {
	events := &recordingEvents{}
	h := NewJobHandler(newTestService(t), events, "", nil, nil)

	err := h.Handle(context.Background(), &kafka.Message{Value: []byte("not an envelope")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerialization))

	env, err := kafka.NewEventEnvelope(kafka.EventAnalysisRequested, "test", nil)
	require.NoError(t, err)
	pm, err := env.ToMessage(kafka.TopicAnalysisRequested, "k")
	require.NoError(t, err)
	err = h.Handle(context.Background(), &kafka.Message{Value: pm.Value})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	assert.Empty(t, events.all())
}

func TestJobHandler_PublishFailureIsReturned(t *testing.T) {
	events := &recordingEvents{err: errors.New("broker down")}
	h := NewJobHandler(newTestService(t), events, "custom.completed", nil, nil)

	err := h.Handle(context.Background(), jobMessage(t, chem.AnalysisJob{ID: "job-3", Reactant: "CCBr", Product: "CCO"}))
	assert.EqualError(t, err, "broker down")
}
