package kafka

import (
	"context"

	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
)

// EventPublisher wraps payloads in an EventEnvelope and publishes them.
type EventPublisher struct {
	publisher Publisher
	source    string
}

func NewEventPublisher(p Publisher, source string) *EventPublisher {
	return &EventPublisher{publisher: p, source: source}
}

// PublishEvent envelopes payload as eventType and writes it to topic keyed by
// key. The request ID from ctx, when present, becomes the trace ID.
func (e *EventPublisher) PublishEvent(ctx context.Context, topic, key, eventType string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, e.source, payload)
	if err != nil {
		return err
	}
	env.TraceID = logging.RequestIDFromContext(ctx)
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	return e.publisher.Publish(ctx, msg)
}

// Event is one keyed payload for PublishEvents.
type Event struct {
	Key     string
	Payload interface{}
}

// PublishEvents envelopes every event as eventType and writes them to topic,
// in one batch when the underlying publisher supports it. The returned slice
// is parallel to events and holds nil for each delivered event. The error is
// set only when nothing could be attempted.
func (e *EventPublisher) PublishEvents(ctx context.Context, topic, eventType string, events []Event) ([]error, error) {
	traceID := logging.RequestIDFromContext(ctx)
	msgs := make([]*ProducerMessage, len(events))
	for i, ev := range events {
		env, err := NewEventEnvelope(eventType, e.source, ev.Payload)
		if err != nil {
			return nil, err
		}
		env.TraceID = traceID
		if msgs[i], err = env.ToMessage(topic, ev.Key); err != nil {
			return nil, err
		}
	}

	errs := make([]error, len(events))
	bp, ok := e.publisher.(BatchPublisher)
	if !ok {
		for i, msg := range msgs {
			errs[i] = e.publisher.Publish(ctx, msg)
		}
		return errs, nil
	}

	res, err := bp.PublishBatch(ctx, msgs)
	if err != nil {
		return nil, err
	}
	for _, ie := range res.Errors {
		if ie.Index < 0 {
			for i := range errs {
				errs[i] = ie.Error
			}
			break
		}
		errs[ie.Index] = ie.Error
	}
	return errs, nil
}
