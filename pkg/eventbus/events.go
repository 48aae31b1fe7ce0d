package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subjects published on the bus
const (
	SubjectScanRequested = "scans.requested"
	SubjectAlertCreated  = "alerts.created"
)

// Event types
const (
	EventScanRequested = "scan.requested"
	EventAlertCreated  = "alert.created"
)

// Event is the envelope carried on every subject
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent marshals data into a fresh envelope
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// ScanMessage is one raw message carried by an asynchronous scan request
type ScanMessage struct {
	Sender     string    `json:"sender"`
	Text       string    `json:"text"`
	ObservedAt time.Time `json:"observed_at"`
}

// ScanRequestedData asks a worker to run a scan
type ScanRequestedData struct {
	UserID           string        `json:"user_id"`
	Messages         []ScanMessage `json:"messages"`
	AccountCreatedAt *time.Time    `json:"account_created_at,omitempty"`
	RequestedAt      time.Time     `json:"requested_at"`
}

// AlertCreatedData announces a new alert feed entry
type AlertCreatedData struct {
	AlertID    uuid.UUID `json:"alert_id"`
	MessageID  uuid.UUID `json:"message_id"`
	UserID     string    `json:"user_id"`
	Severity   string    `json:"severity"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Located    bool      `json:"located"`
	CreatedAt  time.Time `json:"created_at"`
}
