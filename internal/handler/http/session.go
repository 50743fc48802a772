package http

import (
	"log/slog"
	"net/http"

	"github.com/as10896/saga-demo/internal/service"
	"github.com/as10896/saga-demo/pkg/httputil"
)

// SessionHandler serves session resource reads and the reset endpoint.
type SessionHandler struct {
	store  *service.SessionStore
	logger *slog.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(store *service.SessionStore, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		store:  store,
		logger: logger,
	}
}

type inventoryResponse struct {
	Inventory map[string]int `json:"inventory"`
}

type balancesResponse struct {
	Balances map[string]float64 `json:"balances"`
}

type resetResponse struct {
	Message string `json:"message"`
}

// Inventory returns the session's current inventory levels.
func (h *SessionHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, inventoryResponse{Inventory: sess.Inventory})
}

// Balances returns the session's current account balances.
func (h *SessionHandler) Balances(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, balancesResponse{Balances: sess.Balances})
}

// Reset reseeds the session's mock resources to their defaults. The session
// keeps its identity, so the visitor's cookie stays valid.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	if _, err := h.store.Reset(r.Context(), sess.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resetResponse{Message: "Mock database reset to initial state."})
}
