package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/as10896/saga-demo/internal/domain"
)

// SagaEventPublisher emits lifecycle events for finished sagas. Publish
// failures must never affect saga outcomes; implementations log and move on.
type SagaEventPublisher interface {
	SagaCompleted(ctx context.Context, saga *domain.SagaTransaction, order *domain.Order)
	SagaFailed(ctx context.Context, saga *domain.SagaTransaction, order *domain.Order)
}

// SagaOrchestrator drives orders through the fixed four-step pipeline and
// runs compensating actions in reverse order when a step fails.
type SagaOrchestrator struct {
	pipeline []sagaStep
	store    *SessionStore
	events   SagaEventPublisher
	logger   *slog.Logger
}

// NewSagaOrchestrator wires the step services into the pipeline. The event
// publisher may be nil when eventing is disabled.
func NewSagaOrchestrator(
	validation *ValidationService,
	inventory *InventoryService,
	payment *PaymentService,
	shipping *ShippingService,
	store *SessionStore,
	events SagaEventPublisher,
	logger *slog.Logger,
) *SagaOrchestrator {
	return &SagaOrchestrator{
		pipeline: buildPipeline(validation, inventory, payment, shipping),
		store:    store,
		events:   events,
		logger:   logger,
	}
}

// ExecuteSaga runs the pipeline for the order against the session's mock
// resources. The saga and the order are registered on the session before the
// first step runs, so callers persisting the session always capture the
// transaction record. Step failures never surface as errors; they are
// recorded on the saga, compensated, and reflected in the FAILED status.
func (o *SagaOrchestrator) ExecuteSaga(ctx context.Context, sess *domain.Session, order *domain.Order) *domain.SagaTransaction {
	start := time.Now()

	saga := domain.NewSagaTransaction(uuid.New().String(), order.ID)
	sess.SagaTransactions[saga.ID] = saga
	sess.Orders[order.ID] = order
	saga.SetStatus(domain.SagaStatusProcessing)
	order.SetStatus(domain.OrderStatusProcessing)

	log := o.logger.With(
		slog.String("saga_id", saga.ID),
		slog.String("order_id", order.ID),
	)
	log.InfoContext(ctx, "starting saga")

	defer func() {
		// A panicking step must not take the request down; record the saga
		// as failed and keep going.
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "saga panicked", slog.Any("panic", r))
			saga.SetStatus(domain.SagaStatusFailed)
			order.SetStatus(domain.OrderStatusFailed)
		}
		if err := o.store.Save(ctx, sess); err != nil {
			log.ErrorContext(ctx, "failed to persist session after saga", slog.String("error", err.Error()))
		}
		sagaDuration.Observe(time.Since(start).Seconds())
	}()

	for i, cfg := range o.pipeline {
		step := saga.Steps[i]
		log.InfoContext(ctx, "executing step", slog.String("step", step.Name))

		if err := cfg.action(ctx, sess, order); err != nil {
			step.Fail(err.Error())
			stepFailuresTotal.WithLabelValues(step.Name).Inc()
			log.ErrorContext(ctx, "step failed",
				slog.String("step", step.Name),
				slog.String("error", err.Error()),
			)

			o.compensate(ctx, sess, saga, order, i, log)
			saga.SetStatus(domain.SagaStatusFailed)
			order.SetStatus(domain.OrderStatusFailed)
			sagasTotal.WithLabelValues("failed").Inc()

			if o.events != nil {
				o.events.SagaFailed(ctx, saga, order)
			}
			return saga
		}

		step.Complete()
		log.InfoContext(ctx, "step completed", slog.String("step", step.Name))
	}

	saga.SetStatus(domain.SagaStatusCompleted)
	order.SetStatus(domain.OrderStatusCompleted)
	sagasTotal.WithLabelValues("completed").Inc()
	log.InfoContext(ctx, "saga completed")

	if o.events != nil {
		o.events.SagaCompleted(ctx, saga, order)
	}
	return saga
}

// compensate undoes completed steps in strict reverse order. Compensation is
// best-effort: a failing compensating action is logged and its step keeps the
// COMPLETED status, leaving the inconsistency visible in the saga record.
func (o *SagaOrchestrator) compensate(
	ctx context.Context,
	sess *domain.Session,
	saga *domain.SagaTransaction,
	order *domain.Order,
	failedIndex int,
	log *slog.Logger,
) {
	log.InfoContext(ctx, "starting compensation")
	saga.SetStatus(domain.SagaStatusCompensating)
	order.SetStatus(domain.OrderStatusCompensating)

	for i := failedIndex - 1; i >= 0; i-- {
		step := saga.Steps[i]
		if step.Status != domain.StepStatusCompleted {
			continue
		}

		if err := o.safeCompensate(ctx, o.pipeline[i].compensate, sess, order); err != nil {
			compensationsTotal.WithLabelValues(step.Name, "failed").Inc()
			log.ErrorContext(ctx, "compensation failed",
				slog.String("step", step.Name),
				slog.String("error", err.Error()),
			)
			continue
		}

		step.MarkCompensated()
		compensationsTotal.WithLabelValues(step.Name, "success").Inc()
		log.InfoContext(ctx, "step compensated", slog.String("step", step.Name))
	}

	log.InfoContext(ctx, "compensation finished")
}

// safeCompensate shields the reverse pass from panicking compensators.
func (o *SagaOrchestrator) safeCompensate(ctx context.Context, fn stepFunc, sess *domain.Session, order *domain.Order) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensation panicked: %v", r)
		}
	}()
	return fn(ctx, sess, order)
}
