// Package event publishes saga lifecycle events to Kafka.
package event

import (
	"context"
	"log/slog"

	"github.com/as10896/saga-demo/internal/domain"
	"github.com/as10896/saga-demo/pkg/kafka"
	"github.com/as10896/saga-demo/pkg/logger"
)

const (
	TopicSagaCompleted = "saga.completed"
	TopicSagaFailed    = "saga.failed"

	source        = "saga-demo"
	aggregateType = "saga"
)

type sagaEventPayload struct {
	SagaID  string            `json:"saga_id"`
	OrderID string            `json:"order_id"`
	Status  domain.SagaStatus `json:"status"`
	Steps   []stepPayload     `json:"steps"`
}

type stepPayload struct {
	Name   string            `json:"name"`
	Status domain.StepStatus `json:"status"`
	Error  string            `json:"error,omitempty"`
}

// Producer publishes saga outcomes to Kafka. Publishing is fire-and-forget
// from the saga's point of view: failures are logged, never returned.
type Producer struct {
	kafka  *kafka.Producer
	logger *slog.Logger
}

// NewProducer creates a saga event producer.
func NewProducer(k *kafka.Producer, log *slog.Logger) *Producer {
	return &Producer{kafka: k, logger: log}
}

// SagaCompleted publishes a saga.completed event.
func (p *Producer) SagaCompleted(ctx context.Context, saga *domain.SagaTransaction, order *domain.Order) {
	p.publish(ctx, TopicSagaCompleted, "saga.completed", saga, order)
}

// SagaFailed publishes a saga.failed event.
func (p *Producer) SagaFailed(ctx context.Context, saga *domain.SagaTransaction, order *domain.Order) {
	p.publish(ctx, TopicSagaFailed, "saga.failed", saga, order)
}

func (p *Producer) publish(ctx context.Context, topic, eventType string, saga *domain.SagaTransaction, order *domain.Order) {
	steps := make([]stepPayload, 0, len(saga.Steps))
	for _, s := range saga.Steps {
		steps = append(steps, stepPayload{Name: s.Name, Status: s.Status, Error: s.Error})
	}

	evt, err := kafka.NewEvent(eventType, saga.ID, aggregateType, source, sagaEventPayload{
		SagaID:  saga.ID,
		OrderID: order.ID,
		Status:  saga.Status,
		Steps:   steps,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build saga event",
			slog.String("saga_id", saga.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		// Eventing is best-effort; the saga outcome stands regardless.
		p.logger.ErrorContext(ctx, "failed to publish saga event",
			slog.String("saga_id", saga.ID),
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}
