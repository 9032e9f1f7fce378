package reaction

import (
	"context"
	"time"

	"github.com/turtacn/MechanismLab/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// JobHandler turns analysis-requested messages into analysis-completed
// events.
type JobHandler struct {
	service        Service
	publisher      EventPublisher
	completedTopic string
	logger         logging.Logger
	metrics        *prometheus.EngineMetrics
}

func NewJobHandler(svc Service, pub EventPublisher, completedTopic string, logger logging.Logger, metrics *prometheus.EngineMetrics) *JobHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopEngineMetrics()
	}
	if completedTopic == "" {
		completedTopic = kafka.TopicAnalysisCompleted
	}
	return &JobHandler{
		service:        svc,
		publisher:      pub,
		completedTopic: completedTopic,
		logger:         logger,
		metrics:        metrics,
	}
}

// Handle processes one message. Undecodable messages and publish failures
// are returned so the consumer retries and eventually dead-letters them. An
// analysis error is a result, reported in the completed event.
func (h *JobHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	timer := prometheus.NewTimer(h.metrics.JobDuration.WithLabelValues())
	outcome := "error"
	defer func() {
		elapsed := timer.ObserveDuration()
		h.metrics.JobsTotal.WithLabelValues(outcome).Inc()
		h.logger.Debug("analysis job finished",
			logging.String("outcome", outcome),
			logging.Duration("elapsed", elapsed))
	}()

	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	var job chem.AnalysisJob
	if err := env.DecodePayload(&job); err != nil {
		return err
	}
	if env.TraceID != "" {
		ctx = logging.ContextWithRequestID(ctx, env.TraceID)
	}
	log := h.logger.WithContext(ctx).With(logging.String("job_id", job.ID))

	done := chem.AnalysisCompleted{ID: job.ID}
	res, err := h.service.AnalyzeWithConditions(ctx, job.Request())
	if err != nil {
		done.Error = itemError(err)
		outcome = "failed"
		log.Warn("analysis job failed", logging.Err(err))
	} else {
		res.ID = job.ID
		done.Result = res
		outcome = "ok"
	}
	done.CompletedAt = time.Now().UTC()

	if err := h.publisher.PublishEvent(ctx, h.completedTopic, job.ID, kafka.EventAnalysisCompleted, done); err != nil {
		outcome = "error"
		log.Error("failed to publish analysis result", logging.Err(err))
		return err
	}
	return nil
}
