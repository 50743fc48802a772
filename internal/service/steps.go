package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/as10896/saga-demo/internal/domain"
)

// Step failure messages surfaced on saga steps and API responses.
var (
	ErrInvalidQuantity       = errors.New("Invalid quantity")
	ErrInvalidAmount         = errors.New("Invalid amount")
	ErrUserNotFound          = errors.New("User not found")
	ErrProductNotFound       = errors.New("Product not found")
	ErrInsufficientInventory = errors.New("Insufficient inventory")
	ErrInsufficientFunds     = errors.New("Insufficient funds")
	ErrShippingAddress       = errors.New("Shipping address invalid")
)

// StepConfig tunes the simulated step services.
type StepConfig struct {
	// FaultUser is the user ID whose shipments always fail. Empty disables
	// the fault injection.
	FaultUser string
	// Delay simulates per-step processing latency. Zero disables it.
	Delay time.Duration
}

func (c StepConfig) sleep(ctx context.Context) error {
	if c.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(c.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ValidationService checks order fields against the session's known users.
type ValidationService struct {
	cfg    StepConfig
	logger *slog.Logger
}

func NewValidationService(cfg StepConfig, logger *slog.Logger) *ValidationService {
	return &ValidationService{cfg: cfg, logger: logger}
}

func (s *ValidationService) ValidateOrder(ctx context.Context, sess *domain.Session, order *domain.Order) error {
	if order.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if order.Amount <= 0 {
		return ErrInvalidAmount
	}
	if _, ok := sess.Balances[order.UserID]; !ok {
		return ErrUserNotFound
	}

	if err := s.cfg.sleep(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "order validated", slog.String("order_id", order.ID))
	return nil
}

// CompensateValidation is a no-op; validation has no side effects to undo.
func (s *ValidationService) CompensateValidation(ctx context.Context, _ *domain.Session, order *domain.Order) error {
	s.logger.InfoContext(ctx, "no compensation needed for validation", slog.String("order_id", order.ID))
	return nil
}

// InventoryService reserves and releases units from the session's inventory.
type InventoryService struct {
	cfg    StepConfig
	logger *slog.Logger
}

func NewInventoryService(cfg StepConfig, logger *slog.Logger) *InventoryService {
	return &InventoryService{cfg: cfg, logger: logger}
}

func (s *InventoryService) ReserveInventory(ctx context.Context, sess *domain.Session, order *domain.Order) error {
	stock, ok := sess.Inventory[order.ProductID]
	if !ok {
		return ErrProductNotFound
	}
	if stock < order.Quantity {
		return ErrInsufficientInventory
	}

	sess.Inventory[order.ProductID] = stock - order.Quantity
	if err := s.cfg.sleep(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "inventory reserved",
		slog.String("product_id", order.ProductID),
		slog.Int("quantity", order.Quantity),
	)
	return nil
}

// ReleaseInventory returns reserved units. Unknown products are ignored.
func (s *InventoryService) ReleaseInventory(ctx context.Context, sess *domain.Session, order *domain.Order) error {
	if _, ok := sess.Inventory[order.ProductID]; ok {
		sess.Inventory[order.ProductID] += order.Quantity
	}
	s.logger.InfoContext(ctx, "inventory released",
		slog.String("product_id", order.ProductID),
		slog.Int("quantity", order.Quantity),
	)
	return nil
}

// PaymentService debits and refunds the session's account balances.
type PaymentService struct {
	cfg    StepConfig
	logger *slog.Logger
}

func NewPaymentService(cfg StepConfig, logger *slog.Logger) *PaymentService {
	return &PaymentService{cfg: cfg, logger: logger}
}

func (s *PaymentService) ProcessPayment(ctx context.Context, sess *domain.Session, order *domain.Order) error {
	if sess.Balances[order.UserID] < order.Amount {
		return ErrInsufficientFunds
	}

	sess.Balances[order.UserID] -= order.Amount
	if err := s.cfg.sleep(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "payment processed",
		slog.String("user_id", order.UserID),
		slog.Float64("amount", order.Amount),
	)
	return nil
}

func (s *PaymentService) RefundPayment(ctx context.Context, sess *domain.Session, order *domain.Order) error {
	sess.Balances[order.UserID] += order.Amount
	s.logger.InfoContext(ctx, "payment refunded",
		slog.String("user_id", order.UserID),
		slog.Float64("amount", order.Amount),
	)
	return nil
}

// ShippingService simulates shipment dispatch, with a configurable fault
// user whose shipments always fail.
type ShippingService struct {
	cfg    StepConfig
	logger *slog.Logger
}

func NewShippingService(cfg StepConfig, logger *slog.Logger) *ShippingService {
	return &ShippingService{cfg: cfg, logger: logger}
}

func (s *ShippingService) ShipOrder(ctx context.Context, _ *domain.Session, order *domain.Order) error {
	if s.cfg.FaultUser != "" && order.UserID == s.cfg.FaultUser {
		return ErrShippingAddress
	}

	// Shipping takes twice as long as the other simulated steps.
	if s.cfg.Delay > 0 {
		doubled := s.cfg
		doubled.Delay = 2 * s.cfg.Delay
		if err := doubled.sleep(ctx); err != nil {
			return err
		}
	}
	s.logger.InfoContext(ctx, "order shipped", slog.String("order_id", order.ID))
	return nil
}

func (s *ShippingService) CancelShipment(ctx context.Context, _ *domain.Session, order *domain.Order) error {
	s.logger.InfoContext(ctx, "shipment cancelled", slog.String("order_id", order.ID))
	return nil
}

// stepFunc is a forward or compensating action operating on the session's
// mock resources.
type stepFunc func(ctx context.Context, sess *domain.Session, order *domain.Order) error

// sagaStep binds a pipeline stage name to its forward and compensating actions.
type sagaStep struct {
	name       string
	action     stepFunc
	compensate stepFunc
}

// buildPipeline assembles the fixed forward pipeline from the step services.
func buildPipeline(v *ValidationService, i *InventoryService, p *PaymentService, sh *ShippingService) []sagaStep {
	return []sagaStep{
		{name: domain.StepValidateOrder, action: v.ValidateOrder, compensate: v.CompensateValidation},
		{name: domain.StepReserveInventory, action: i.ReserveInventory, compensate: i.ReleaseInventory},
		{name: domain.StepProcessPayment, action: p.ProcessPayment, compensate: p.RefundPayment},
		{name: domain.StepShipOrder, action: sh.ShipOrder, compensate: sh.CancelShipment},
	}
}
