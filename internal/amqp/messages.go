package amqp

import (
	"encoding/json"
	"time"
)

// RefreshMessage announces that a fresh copy of the sales table was fetched.
// The archived snapshot, when there is one, is referenced by id; consumers
// read it from the database instead of receiving the rows.
type RefreshMessage struct {
	SnapshotID int64     `json:"snapshot_id,omitempty"`
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	Dropped    int       `json:"dropped"`
	FetchedAt  time.Time `json:"fetched_at"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRefreshMessage creates a refresh message stamped now.
func NewRefreshMessage(snapshotID int64, source string, rows, dropped int, fetchedAt time.Time) *RefreshMessage {
	return &RefreshMessage{
		SnapshotID: snapshotID,
		Source:     source,
		Rows:       rows,
		Dropped:    dropped,
		FetchedAt:  fetchedAt,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON creates a message from JSON bytes
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
