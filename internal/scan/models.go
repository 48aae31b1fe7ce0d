package scan

import (
	"errors"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/ledger"
)

var (
	// ErrStoreUnavailable means the ledger or scan state could not be reached.
	// Whatever was committed before the failure stays committed.
	ErrStoreUnavailable = errors.New("scan store unavailable")
	// ErrScanInProgress is returned when another scan holds the user's lock
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrInvalidUserID rejects blank or malformed user ids
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrInvalidMessage rejects raw messages that cannot be normalized
	ErrInvalidMessage = errors.New("invalid message")
)

// RawMessage is one device message after boundary normalization
type RawMessage struct {
	Sender     string    `json:"sender"`
	Text       string    `json:"text"`
	ObservedAt time.Time `json:"observed_at"`
}

// Request is a scan submission
type Request struct {
	UserID   string
	Messages []RawMessage
	// AccountCreatedAt, when later than the last scan, resets the user to an initial scan.
	AccountCreatedAt *time.Time
}

// Result summarizes one scan
type Result struct {
	UserID     string          `json:"user_id"`
	Mode       ledger.ScanMode `json:"mode"`
	Candidates int             `json:"candidates"`
	Eligible   int             `json:"eligible"`
	// Analyzed counts messages newly written to the ledger by this scan.
	Analyzed           int  `json:"analyzed"`
	Duplicates         int  `json:"duplicates"`
	Failed             int  `json:"failed"`
	Skipped            int  `json:"skipped"`
	NewFraudCount      int  `json:"new_fraud_count"`
	NewSuspiciousCount int  `json:"new_suspicious_count"`
	PropagationErrors  int  `json:"propagation_errors"`
	AccountReset       bool `json:"account_reset"`
	// Partial is set when the deadline stopped the scan early. State is not advanced.
	Partial     bool      `json:"partial"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	interrupted int
}

type outcome int

const (
	outcomeAnalyzed outcome = iota
	outcomeDuplicate
	outcomeStoreFailure
	outcomeInterrupted
)
