package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event actions carried on the wire.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionReset  = "reset"
)

// LedgerEventMessage is a lightweight notification that an owner's ledger
// changed. It carries only identifiers; the worker fetches the full
// transaction from the database before exporting it.
type LedgerEventMessage struct {
	Owner     string    `json:"owner"`
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event for the given owner and transaction.
// For reset events the ID is zero.
func NewLedgerEventMessage(owner string, id int64, action string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Owner:     owner,
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON parses a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
