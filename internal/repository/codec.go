package repository

import (
	"encoding/json"
	"fmt"

	"github.com/as10896/saga-demo/internal/domain"
)

// codecVersion guards against decoding records written by an incompatible
// schema. Bump it when the session wire shape changes.
const codecVersion = 1

type sessionRecord struct {
	Version int             `json:"v"`
	Session *domain.Session `json:"session"`
}

// EncodeSession serializes a session into its versioned storage form.
func EncodeSession(session *domain.Session) ([]byte, error) {
	data, err := json.Marshal(sessionRecord{Version: codecVersion, Session: session})
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	return data, nil
}

// DecodeSession deserializes a stored session record. It fails on malformed
// payloads, version mismatches, and records missing a session body; callers
// treat any decode failure as a corrupted record.
func DecodeSession(data []byte) (*domain.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	if rec.Version != codecVersion {
		return nil, fmt.Errorf("decode session record: unsupported version %d", rec.Version)
	}
	if rec.Session == nil || rec.Session.ID == "" {
		return nil, fmt.Errorf("decode session record: missing session body")
	}
	if rec.Session.Orders == nil {
		rec.Session.Orders = make(map[string]*domain.Order)
	}
	if rec.Session.SagaTransactions == nil {
		rec.Session.SagaTransactions = make(map[string]*domain.SagaTransaction)
	}
	return rec.Session, nil
}
