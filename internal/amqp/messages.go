package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"posledger/internal/core"
)

// LedgerChangedMessage announces that the persisted log changed. Consumers
// re-read the log themselves; the message only says which day is affected.
type LedgerChangedMessage struct {
	Operation     string    `json:"operation"`
	TransactionID string    `json:"transaction_id"`
	Day           string    `json:"day"`
	Revision      uint64    `json:"revision"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage builds a message for a mutation touching day.
func NewLedgerChangedMessage(op, transactionID string, day time.Time, revision uint64) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Operation:     op,
		TransactionID: transactionID,
		Day:           day.Format(core.DateLayout),
		Revision:      revision,
		Timestamp:     time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and validates a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal ledger changed message: %w", err)
	}
	if msg.Operation == "" {
		return nil, errors.New("ledger changed message without operation")
	}
	if _, err := time.Parse(core.DateLayout, msg.Day); err != nil {
		return nil, fmt.Errorf("ledger changed message day %q: %w", msg.Day, core.ErrInvalidDate)
	}
	return &msg, nil
}
