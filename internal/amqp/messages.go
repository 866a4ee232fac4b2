package amqp

import (
	"encoding/json"
	"time"

	"scontrini/internal/core"
)

// LedgerCommittedMessage announces entries committed to a ledger month.
// Consumers mirror these entries to external sinks.
type LedgerCommittedMessage struct {
	Month     string             `json:"month"`
	Entries   []core.LedgerEntry `json:"entries"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewLedgerCommittedMessage stamps a message with the current time.
func NewLedgerCommittedMessage(month string, entries []core.LedgerEntry) *LedgerCommittedMessage {
	return &LedgerCommittedMessage{
		Month:     month,
		Entries:   entries,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerCommittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerCommittedMessageFromJSON creates a message from JSON bytes.
func LedgerCommittedMessageFromJSON(data []byte) (*LedgerCommittedMessage, error) {
	var msg LedgerCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
