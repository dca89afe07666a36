package amqp

import (
	"encoding/json"
	"time"
)

// Message kinds carried on the export queue.
const (
	KindSync   = "sync"
	KindDelete = "delete"
)

// TransactionEventMessage is a lightweight export event. It carries only
// the transaction ID and version; the worker fetches the full row from
// the database, so a stale message never exports stale data.
type TransactionEventMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage creates a sync event for a created or
// updated transaction.
func NewTransactionSyncMessage(id, version int64) *TransactionEventMessage {
	return &TransactionEventMessage{
		Kind:      KindSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewTransactionDeleteMessage creates a delete event.
func NewTransactionDeleteMessage(id int64) *TransactionEventMessage {
	return &TransactionEventMessage{
		Kind:      KindDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON creates a message from JSON bytes
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
