package domain

import "time"

// StepStatus represents the state of a single saga step.
type StepStatus string

const (
	StepStatusPending     StepStatus = "pending"
	StepStatusCompleted   StepStatus = "completed"
	StepStatusFailed      StepStatus = "failed"
	StepStatusCompensated StepStatus = "compensated"
)

// SagaStatus represents the overall state of a saga transaction.
type SagaStatus string

const (
	SagaStatusPending      SagaStatus = "pending"
	SagaStatusProcessing   SagaStatus = "processing"
	SagaStatusCompleted    SagaStatus = "completed"
	SagaStatusFailed       SagaStatus = "failed"
	SagaStatusCompensating SagaStatus = "compensating"
)

// Canonical step names in pipeline order.
const (
	StepValidateOrder    = "validate_order"
	StepReserveInventory = "reserve_inventory"
	StepProcessPayment   = "process_payment"
	StepShipOrder        = "ship_order"
)

// StepOrder is the fixed forward execution order of the saga pipeline.
var StepOrder = []string{
	StepValidateOrder,
	StepReserveInventory,
	StepProcessPayment,
	StepShipOrder,
}

// SagaStep records the outcome of one step within a saga transaction.
type SagaStep struct {
	Name          string     `json:"name"`
	Status        StepStatus `json:"status"`
	Error         string     `json:"error,omitempty"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	CompensatedAt *time.Time `json:"compensated_at,omitempty"`
}

// NewSagaStep creates a pending step.
func NewSagaStep(name string) *SagaStep {
	return &SagaStep{
		Name:   name,
		Status: StepStatusPending,
	}
}

// Complete marks the step as successfully executed.
func (s *SagaStep) Complete() {
	now := time.Now().UTC()
	s.Status = StepStatusCompleted
	s.ExecutedAt = &now
}

// Fail marks the step as failed with the given error message.
func (s *SagaStep) Fail(msg string) {
	now := time.Now().UTC()
	s.Status = StepStatusFailed
	s.Error = msg
	s.ExecutedAt = &now
}

// MarkCompensated records that the step's compensating action succeeded.
func (s *SagaStep) MarkCompensated() {
	now := time.Now().UTC()
	s.Status = StepStatusCompensated
	s.CompensatedAt = &now
}

// SagaTransaction groups the steps executed for one order.
type SagaTransaction struct {
	ID        string      `json:"id"`
	OrderID   string      `json:"order_id"`
	Status    SagaStatus  `json:"status"`
	Steps     []*SagaStep `json:"steps"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewSagaTransaction creates a saga with one pending step per pipeline stage.
func NewSagaTransaction(id, orderID string) *SagaTransaction {
	now := time.Now().UTC()
	steps := make([]*SagaStep, 0, len(StepOrder))
	for _, name := range StepOrder {
		steps = append(steps, NewSagaStep(name))
	}
	return &SagaTransaction{
		ID:        id,
		OrderID:   orderID,
		Status:    SagaStatusPending,
		Steps:     steps,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus transitions the saga to the given status and bumps UpdatedAt.
func (t *SagaTransaction) SetStatus(status SagaStatus) {
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
}

// Step returns the step with the given name, or nil if not present.
func (t *SagaTransaction) Step(name string) *SagaStep {
	for _, s := range t.Steps {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// CompletedSteps returns the steps that completed, in execution order.
func (t *SagaTransaction) CompletedSteps() []*SagaStep {
	var out []*SagaStep
	for _, s := range t.Steps {
		if s.Status == StepStatusCompleted {
			out = append(out, s)
		}
	}
	return out
}
