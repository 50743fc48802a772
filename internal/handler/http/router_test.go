package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/as10896/saga-demo/internal/repository/memory"
	"github.com/as10896/saga-demo/internal/service"
	"github.com/as10896/saga-demo/pkg/health"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := service.NewSessionStore(memory.NewSessionRepository(log), time.Hour, log)

	stepCfg := service.StepConfig{FaultUser: "user_3"}
	orch := service.NewSagaOrchestrator(
		service.NewValidationService(stepCfg, log),
		service.NewInventoryService(stepCfg, log),
		service.NewPaymentService(stepCfg, log),
		service.NewShippingService(stepCfg, log),
		store,
		nil,
		log,
	)

	router := NewRouter(RouterConfig{
		SessionStore:   store,
		Orchestrator:   orch,
		Health:         health.NewHandler(),
		Logger:         log,
		CookieName:     "session_id",
		SessionTimeout: time.Hour,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// client wraps requests with cookie continuity so each test drives one session.
type client struct {
	t       *testing.T
	srv     *httptest.Server
	cookies []*http.Cookie
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	return &client{t: t, srv: srv}
}

func (c *client) do(method, path, body string) (*http.Response, []byte) {
	c.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, reader)
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if cookies := resp.Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

func TestCreateOrderSuccess(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	resp, body := c.do(http.MethodPost, "/api/v1/orders",
		`{"user_id":"user_1","product_id":"product_1","quantity":2,"amount":50.0}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		OrderID string `json:"order_id"`
		SagaID  string `json:"saga_id"`
		Status  string `json:"status"`
		Steps   []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	assert.NotEmpty(t, created.OrderID)
	assert.NotEmpty(t, created.SagaID)
	assert.Equal(t, "completed", created.Status)
	require.Len(t, created.Steps, 4)
	assert.Equal(t, "validate_order", created.Steps[0].Name)
	assert.Equal(t, "ship_order", created.Steps[3].Name)
	for _, step := range created.Steps {
		assert.Equal(t, "completed", step.Status)
	}

	// Side effects visible through the session resource endpoints.
	resp, body = c.do(http.MethodGet, "/api/v1/inventory", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var inv struct {
		Inventory map[string]int `json:"inventory"`
	}
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, 98, inv.Inventory["product_1"])

	resp, body = c.do(http.MethodGet, "/api/v1/balances", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var bal struct {
		Balances map[string]float64 `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(body, &bal))
	assert.Equal(t, 950.0, bal.Balances["user_1"])
}

func TestCreateOrderShippingFailure(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	resp, body := c.do(http.MethodPost, "/api/v1/orders",
		`{"user_id":"user_3","product_id":"product_2","quantity":5,"amount":100.0}`)

	// The saga ran, so the HTTP call succeeded even though the saga failed.
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Status string `json:"status"`
		Steps  []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
			Error  string `json:"error_message"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	assert.Equal(t, "failed", created.Status)
	require.Len(t, created.Steps, 4)
	assert.Equal(t, "compensated", created.Steps[0].Status)
	assert.Equal(t, "compensated", created.Steps[1].Status)
	assert.Equal(t, "compensated", created.Steps[2].Status)
	assert.Equal(t, "failed", created.Steps[3].Status)
	assert.Equal(t, "Shipping address invalid", created.Steps[3].Error)

	// Compensation restored the resources.
	_, body = c.do(http.MethodGet, "/api/v1/inventory", "")
	var inv struct {
		Inventory map[string]int `json:"inventory"`
	}
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, 50, inv.Inventory["product_2"])

	_, body = c.do(http.MethodGet, "/api/v1/balances", "")
	var bal struct {
		Balances map[string]float64 `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(body, &bal))
	assert.Equal(t, 200.0, bal.Balances["user_3"])
}

func TestCreateOrderInvalidQuantityFailsTheSaga(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	resp, body := c.do(http.MethodPost, "/api/v1/orders",
		`{"user_id":"user_1","product_id":"product_1","quantity":0,"amount":50.0}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Status string `json:"status"`
		Steps  []struct {
			Status string `json:"status"`
			Error  string `json:"error_message"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	assert.Equal(t, "failed", created.Status)
	assert.Equal(t, "failed", created.Steps[0].Status)
	assert.Equal(t, "Invalid quantity", created.Steps[0].Error)
	for _, step := range created.Steps[1:] {
		assert.Equal(t, "pending", step.Status)
	}
}

func TestCreateOrderMissingFields(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	resp, _ := c.do(http.MethodPost, "/api/v1/orders", `{"quantity":2,"amount":50.0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrderMalformedBody(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	resp, _ := c.do(http.MethodPost, "/api/v1/orders", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrderAndSaga(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	_, body := c.do(http.MethodPost, "/api/v1/orders",
		`{"user_id":"user_1","product_id":"product_1","quantity":1,"amount":25.0}`)
	var created struct {
		OrderID string `json:"order_id"`
		SagaID  string `json:"saga_id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := c.do(http.MethodGet, "/api/v1/orders/"+created.OrderID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Equal(t, created.OrderID, order.ID)
	assert.Equal(t, "completed", order.Status)

	resp, body = c.do(http.MethodGet, "/api/v1/sagas/"+created.SagaID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var saga struct {
		ID      string `json:"id"`
		OrderID string `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(body, &saga))
	assert.Equal(t, created.SagaID, saga.ID)
	assert.Equal(t, created.OrderID, saga.OrderID)
}

func TestGetOrderNotFound(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	resp, _ := c.do(http.MethodGet, "/api/v1/orders/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, "/api/v1/sagas/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	var ids []string
	for range 3 {
		_, body := c.do(http.MethodPost, "/api/v1/orders",
			`{"user_id":"user_1","product_id":"product_1","quantity":1,"amount":10.0}`)
		var created struct {
			OrderID string `json:"order_id"`
		}
		require.NoError(t, json.Unmarshal(body, &created))
		ids = append(ids, created.OrderID)
		// Creation timestamps order the listing.
		time.Sleep(5 * time.Millisecond)
	}

	resp, body := c.do(http.MethodGet, "/api/v1/orders", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &orders))
	require.Len(t, orders, 3)
	assert.Equal(t, ids[2], orders[0].ID)
	assert.Equal(t, ids[1], orders[1].ID)
	assert.Equal(t, ids[0], orders[2].ID)
}

func TestSessionIsolation(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	bob := newClient(t, srv)

	alice.do(http.MethodPost, "/api/v1/orders",
		`{"user_id":"user_1","product_id":"product_1","quantity":10,"amount":100.0}`)

	_, body := bob.do(http.MethodGet, "/api/v1/inventory", "")
	var inv struct {
		Inventory map[string]int `json:"inventory"`
	}
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, 100, inv.Inventory["product_1"])

	_, body = bob.do(http.MethodGet, "/api/v1/orders", "")
	var orders []any
	require.NoError(t, json.Unmarshal(body, &orders))
	assert.Empty(t, orders)
}

func TestReset(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	c.do(http.MethodPost, "/api/v1/orders",
		`{"user_id":"user_1","product_id":"product_1","quantity":2,"amount":50.0}`)
	sessionCookie := c.cookies

	resp, body := c.do(http.MethodPost, "/api/v1/reset", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var reset struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &reset))
	assert.Equal(t, "Mock database reset to initial state.", reset.Message)

	// Same session identity, reseeded resources.
	assert.Equal(t, sessionCookie[0].Value, c.cookies[0].Value)

	_, body = c.do(http.MethodGet, "/api/v1/inventory", "")
	var inv struct {
		Inventory map[string]int `json:"inventory"`
	}
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, 100, inv.Inventory["product_1"])

	_, body = c.do(http.MethodGet, "/api/v1/orders", "")
	var orders []any
	require.NoError(t, json.Unmarshal(body, &orders))
	assert.Empty(t, orders)
}

func TestSessionCookiePersistsAcrossRequests(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	_, _ = c.do(http.MethodGet, "/api/v1/inventory", "")
	require.NotEmpty(t, c.cookies)
	first := c.cookies[0].Value

	_, _ = c.do(http.MethodGet, "/api/v1/balances", "")
	assert.Equal(t, first, c.cookies[0].Value)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Probes must not allocate sessions.
	assert.Empty(t, resp.Cookies())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnsupportedMediaType(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/orders",
		strings.NewReader("user_id=user_1"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}
