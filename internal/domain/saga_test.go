package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSagaTransaction(t *testing.T) {
	saga := NewSagaTransaction("saga-1", "order-1")

	assert.Equal(t, "saga-1", saga.ID)
	assert.Equal(t, "order-1", saga.OrderID)
	assert.Equal(t, SagaStatusPending, saga.Status)

	require.Len(t, saga.Steps, 4)
	assert.Equal(t, StepValidateOrder, saga.Steps[0].Name)
	assert.Equal(t, StepReserveInventory, saga.Steps[1].Name)
	assert.Equal(t, StepProcessPayment, saga.Steps[2].Name)
	assert.Equal(t, StepShipOrder, saga.Steps[3].Name)

	for _, step := range saga.Steps {
		assert.Equal(t, StepStatusPending, step.Status)
		assert.Nil(t, step.ExecutedAt)
		assert.Nil(t, step.CompensatedAt)
	}
}

func TestSagaStepTransitions(t *testing.T) {
	t.Run("complete records execution time", func(t *testing.T) {
		step := NewSagaStep(StepProcessPayment)
		step.Complete()

		assert.Equal(t, StepStatusCompleted, step.Status)
		require.NotNil(t, step.ExecutedAt)
		assert.Empty(t, step.Error)
	})

	t.Run("fail records error message", func(t *testing.T) {
		step := NewSagaStep(StepShipOrder)
		step.Fail("Shipping address invalid")

		assert.Equal(t, StepStatusFailed, step.Status)
		assert.Equal(t, "Shipping address invalid", step.Error)
		require.NotNil(t, step.ExecutedAt)
	})

	t.Run("compensate records compensation time", func(t *testing.T) {
		step := NewSagaStep(StepReserveInventory)
		step.Complete()
		step.MarkCompensated()

		assert.Equal(t, StepStatusCompensated, step.Status)
		require.NotNil(t, step.CompensatedAt)
	})
}

func TestSagaTransactionStepLookup(t *testing.T) {
	saga := NewSagaTransaction("saga-1", "order-1")

	assert.NotNil(t, saga.Step(StepProcessPayment))
	assert.Nil(t, saga.Step("unknown_step"))
}

func TestSagaTransactionCompletedSteps(t *testing.T) {
	saga := NewSagaTransaction("saga-1", "order-1")
	saga.Steps[0].Complete()
	saga.Steps[1].Complete()
	saga.Steps[2].Fail("Insufficient balance")

	completed := saga.CompletedSteps()
	require.Len(t, completed, 2)
	assert.Equal(t, StepValidateOrder, completed[0].Name)
	assert.Equal(t, StepReserveInventory, completed[1].Name)
}
