package aggregates

import (
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/alerts"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/ledger"
	"github.com/google/uuid"
)

// DayLayout formats day bucket keys
const DayLayout = "2006-01-02"

// Counts is the label breakdown every rollup carries. Benign+Suspicious+Fraud == Total.
type Counts struct {
	Total      int64 `json:"total"`
	Benign     int64 `json:"benign"`
	Suspicious int64 `json:"suspicious"`
	Fraud      int64 `json:"fraud"`
}

func (c *Counts) add(label classifier.Label) {
	c.Total++
	switch label {
	case classifier.LabelFraud:
		c.Fraud++
	case classifier.LabelSuspicious:
		c.Suspicious++
	default:
		c.Benign++
	}
}

// Delta is a one-message increment
type Delta struct {
	MessageID  uuid.UUID
	UserID     string
	Label      classifier.Label
	Day        string
	ActivityAt time.Time
}

func (d Delta) increments() (benign, suspicious, fraud int64) {
	switch d.Label {
	case classifier.LabelFraud:
		return 0, 0, 1
	case classifier.LabelSuspicious:
		return 0, 1, 0
	}
	return 1, 0, 0
}

// DeltaFor derives the increment for a ledger record. The day bucket is the
// UTC day the message was classified.
func DeltaFor(msg *ledger.ClassifiedMessage) Delta {
	at := msg.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	return Delta{
		MessageID:  msg.ID,
		UserID:     msg.UserID,
		Label:      msg.Label,
		Day:        at.Format(DayLayout),
		ActivityAt: at,
	}
}

// UserRollup is one user's counters
type UserRollup struct {
	UserID string `json:"user_id"`
	Counts
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
}

// DayBucket is the global breakdown for one UTC calendar day
type DayBucket struct {
	Day string `json:"day"`
	Counts
}

// GlobalRollup is the dashboard-wide counters, with recent day buckets
type GlobalRollup struct {
	Counts
	LastActivityAt *time.Time  `json:"last_activity_at,omitempty"`
	Days           []DayBucket `json:"days"`
}

// PropagationResult reports which sub-updates took effect on this call.
// False means the message was already recorded by that aggregate, or the
// sub-update failed (see the error returned alongside).
type PropagationResult struct {
	MessageID     uuid.UUID     `json:"message_id"`
	UserApplied   bool          `json:"user_applied"`
	GlobalApplied bool          `json:"global_applied"`
	AlertCreated  bool          `json:"alert_created"`
	Alert         *alerts.Alert `json:"alert,omitempty"`
}
