package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"onetouch/internal/core"
)

const (
	OpInsert = "insert"
	OpRemove = "remove"
)

// RetryMessage carries a remote operation that failed its first attempt. For
// inserts the full record travels with the message, since the in-memory copy
// is the only place it exists until the remote accepts it.
type RetryMessage struct {
	Op          string            `json:"op"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	ID          string            `json:"id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewInsertRetryMessage(txn core.Transaction) *RetryMessage {
	return &RetryMessage{
		Op:          OpInsert,
		Transaction: &txn,
		ID:          txn.ID,
		Timestamp:   time.Now(),
	}
}

func NewRemoveRetryMessage(id string) *RetryMessage {
	return &RetryMessage{
		Op:        OpRemove,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *RetryMessage) Validate() error {
	switch m.Op {
	case OpInsert:
		if m.Transaction == nil {
			return fmt.Errorf("insert retry without transaction payload")
		}
	case OpRemove:
		if m.ID == "" {
			return fmt.Errorf("remove retry without id")
		}
	default:
		return fmt.Errorf("unknown retry op %q", m.Op)
	}
	return nil
}

func (m *RetryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RetryMessageFromJSON(data []byte) (*RetryMessage, error) {
	var msg RetryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
