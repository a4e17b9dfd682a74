package amqp

import (
	"encoding/json"
	"time"
)

// Event routing keys.
const (
	EntryCreatedKey = "entry.created"
	EntryDeletedKey = "entry.deleted"
)

// EntryCreatedMessage announces a newly recorded ledger entry. It carries the
// denormalized fields downstream consumers typically need so they do not have
// to query the ledger back.
type EntryCreatedMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Price     int64     `json:"price"`
	Category  string    `json:"category"`
	Date      int64     `json:"date"` // Unix milliseconds, day resolution
	Timestamp time.Time `json:"timestamp"`
}

// EntryDeletedMessage announces an entry removal.
type EntryDeletedMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *EntryCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *EntryDeletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryCreatedMessageFromJSON decodes a created event, for consumers.
func EntryCreatedMessageFromJSON(data []byte) (*EntryCreatedMessage, error) {
	var msg EntryCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EntryDeletedMessageFromJSON decodes a deleted event, for consumers.
func EntryDeletedMessageFromJSON(data []byte) (*EntryDeletedMessage, error) {
	var msg EntryDeletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
