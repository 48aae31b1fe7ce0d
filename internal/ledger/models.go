package ledger

import (
	"errors"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/google/uuid"
)

// ScanMode records which pass produced a message
type ScanMode string

const (
	ScanModeInitial     ScanMode = "initial"
	ScanModeIncremental ScanMode = "incremental"
)

var (
	// ErrNotFound is returned by Lookup when no message has the fingerprint.
	ErrNotFound = errors.New("classified message not found")
	// ErrInvalidMessage is returned for messages that violate the schema.
	ErrInvalidMessage = errors.New("invalid classified message")
)

// ClassifiedMessage is one distinct observed message and its verdict
type ClassifiedMessage struct {
	ID                   uuid.UUID        `json:"id"`
	UserID               string           `json:"user_id"`
	Sender               string           `json:"sender"`
	Text                 string           `json:"text"`
	ObservedAt           time.Time        `json:"observed_at"`
	Fingerprint          string           `json:"fingerprint"`
	Label                classifier.Label `json:"label"`
	Confidence           float64          `json:"confidence"`
	Rationale            string           `json:"rationale,omitempty"`
	ScanMode             ScanMode         `json:"scan_mode"`
	ClassificationFailed bool             `json:"classification_failed"`
	CreatedAt            time.Time        `json:"created_at"`
}

// Validate checks the fields the store relies on
func (m *ClassifiedMessage) Validate() error {
	switch {
	case m.ID == uuid.Nil:
		return errors.Join(ErrInvalidMessage, errors.New("id is required"))
	case m.UserID == "":
		return errors.Join(ErrInvalidMessage, errors.New("user_id is required"))
	case m.Fingerprint == "":
		return errors.Join(ErrInvalidMessage, errors.New("fingerprint is required"))
	case !m.Label.Valid():
		return errors.Join(ErrInvalidMessage, errors.New("label must be benign, suspicious or fraud"))
	case m.Confidence < 0 || m.Confidence > 1:
		return errors.Join(ErrInvalidMessage, errors.New("confidence must be within [0,1]"))
	case m.ScanMode != ScanModeInitial && m.ScanMode != ScanModeIncremental:
		return errors.Join(ErrInvalidMessage, errors.New("scan_mode must be initial or incremental"))
	}
	return nil
}

// WriteResult reports the outcome of WriteIfAbsent. Message is the stored
// record: the new one when Inserted, otherwise the pre-existing one unchanged.
type WriteResult struct {
	Inserted bool               `json:"inserted"`
	Message  *ClassifiedMessage `json:"message"`
}
