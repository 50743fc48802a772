// Package http exposes the saga demo API over HTTP.
package http

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/as10896/saga-demo/internal/domain"
	"github.com/as10896/saga-demo/internal/service"
	apperrors "github.com/as10896/saga-demo/pkg/errors"
	"github.com/as10896/saga-demo/pkg/httputil"
	"github.com/as10896/saga-demo/pkg/validator"
)

// OrderHandler serves order creation and saga inspection endpoints.
type OrderHandler struct {
	saga   *service.SagaOrchestrator
	logger *slog.Logger
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(saga *service.SagaOrchestrator, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		saga:   saga,
		logger: logger,
	}
}

type createOrderRequest struct {
	UserID    string  `json:"user_id" validate:"required"`
	ProductID string  `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity"`
	Amount    float64 `json:"amount"`
}

type sagaStepResponse struct {
	Name   string            `json:"name"`
	Status domain.StepStatus `json:"status"`
	Error  string            `json:"error_message,omitempty"`
}

type createOrderResponse struct {
	OrderID string             `json:"order_id"`
	SagaID  string             `json:"saga_id"`
	Status  domain.SagaStatus  `json:"status"`
	Steps   []sagaStepResponse `json:"steps"`
}

type orderResponse struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	ProductID string             `json:"product_id"`
	Quantity  int                `json:"quantity"`
	Amount    float64            `json:"amount"`
	Status    domain.OrderStatus `json:"status"`
}

type sagaResponse struct {
	ID      string             `json:"id"`
	OrderID string             `json:"order_id"`
	Status  domain.SagaStatus  `json:"status"`
	Steps   []sagaStepResponse `json:"steps"`
}

func toStepResponses(steps []*domain.SagaStep) []sagaStepResponse {
	out := make([]sagaStepResponse, 0, len(steps))
	for _, s := range steps {
		out = append(out, sagaStepResponse{Name: s.Name, Status: s.Status, Error: s.Error})
	}
	return out
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		ProductID: o.ProductID,
		Quantity:  o.Quantity,
		Amount:    o.Amount,
		Status:    o.Status,
	}
}

// Create runs the saga pipeline for a new order. The response is 201 whenever
// the saga ran, regardless of its outcome; failed sagas surface through the
// status and steps in the body. Invalid quantities and amounts are judged by
// the validation step, not request validation, so their failures are recorded
// on the saga like any other.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess := SessionFromContext(r.Context())
	order := domain.NewOrder(uuid.New().String(), req.UserID, req.ProductID, req.Quantity, req.Amount)

	// The orchestrator persists the session on every exit path, so the saga
	// record is durable before the response goes out.
	saga := h.saga.ExecuteSaga(r.Context(), sess, order)

	httputil.WriteJSON(w, http.StatusCreated, createOrderResponse{
		OrderID: order.ID,
		SagaID:  saga.ID,
		Status:  saga.Status,
		Steps:   toStepResponses(saga.Steps),
	})
}

// Get returns one order from the visitor's session.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	order, ok := sess.Orders[orderID]
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFound("order", orderID), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

// List returns the session's orders, most recent first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	orders := make([]*domain.Order, 0, len(sess.Orders))
	for _, o := range sess.Orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// GetSaga returns one saga transaction from the visitor's session.
func (h *OrderHandler) GetSaga(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	sagaID := chi.URLParam(r, "sagaID")

	saga, ok := sess.SagaTransactions[sagaID]
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFound("saga", sagaID), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sagaResponse{
		ID:      saga.ID,
		OrderID: saga.OrderID,
		Status:  saga.Status,
		Steps:   toStepResponses(saga.Steps),
	})
}
