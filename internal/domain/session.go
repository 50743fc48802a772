package domain

import "time"

// Default mock resources seeded into every new session.
var (
	defaultInventory = map[string]int{
		"product_1": 100,
		"product_2": 50,
		"product_3": 25,
	}
	defaultBalances = map[string]float64{
		"user_1": 1000.0,
		"user_2": 500.0,
		"user_3": 200.0,
	}
)

// SeedInventory returns a fresh copy of the default inventory levels.
func SeedInventory() map[string]int {
	inv := make(map[string]int, len(defaultInventory))
	for k, v := range defaultInventory {
		inv[k] = v
	}
	return inv
}

// SeedBalances returns a fresh copy of the default account balances.
func SeedBalances() map[string]float64 {
	bal := make(map[string]float64, len(defaultBalances))
	for k, v := range defaultBalances {
		bal[k] = v
	}
	return bal
}

// Session holds one visitor's isolated order history and mock resources.
// Each session gets its own inventory levels and account balances, so
// concurrent visitors never observe each other's saga side effects.
type Session struct {
	ID               string                      `json:"session_id"`
	CreatedAt        time.Time                   `json:"created_at"`
	Orders           map[string]*Order           `json:"orders"`
	Inventory        map[string]int              `json:"inventory"`
	Balances         map[string]float64          `json:"balances"`
	SagaTransactions map[string]*SagaTransaction `json:"saga_transactions"`
}

// NewSession creates a session seeded with the default mock resources.
func NewSession(id string) *Session {
	return &Session{
		ID:               id,
		CreatedAt:        time.Now().UTC(),
		Orders:           make(map[string]*Order),
		Inventory:        SeedInventory(),
		Balances:         SeedBalances(),
		SagaTransactions: make(map[string]*SagaTransaction),
	}
}

// ResetResources clears the session's orders and sagas and reseeds the mock
// resources to their defaults. The session identity and creation time are
// preserved.
func (s *Session) ResetResources() {
	s.Orders = make(map[string]*Order)
	s.Inventory = SeedInventory()
	s.Balances = SeedBalances()
	s.SagaTransactions = make(map[string]*SagaTransaction)
}
