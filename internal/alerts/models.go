package alerts

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/google/uuid"
)

// Severity grades an alert by classifier confidence
type Severity string

const (
	SeverityFraud      Severity = "fraud_grade"
	SeveritySuspicious Severity = "suspicious_grade"
)

// Status is the operator-facing state of an alert
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
	StatusBlocked  Status = "blocked"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusResolved, StatusBlocked:
		return true
	}
	return false
}

// FraudGradeConfidence is the confidence at which an alert is graded fraud
const FraudGradeConfidence = 0.8

var (
	ErrNotFound      = errors.New("alert not found")
	ErrBenignMessage = errors.New("benign messages do not produce alerts")
)

// Coordinates is a WGS84 point in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point is within latitude/longitude bounds
func (c Coordinates) Valid() bool {
	return !math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude) &&
		c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Alert is a feed entry for one non-benign message
type Alert struct {
	ID          uuid.UUID        `json:"id"`
	UserID      string           `json:"user_id"`
	MessageID   uuid.UUID        `json:"message_id"`
	Sender      string           `json:"sender"`
	MessageText string           `json:"message_text"`
	Label       classifier.Label `json:"label"`
	Confidence  float64          `json:"confidence"`
	Severity    Severity         `json:"severity"`
	RiskScore   int              `json:"risk_score"`
	Title       string           `json:"title"`
	Status      Status           `json:"status"`
	Location    *Coordinates     `json:"location,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Source carries the message fields an alert is built from
type Source struct {
	UserID     string
	MessageID  uuid.UUID
	Sender     string
	Text       string
	Label      classifier.Label
	Confidence float64
}

// SeverityFor grades a confidence value
func SeverityFor(confidence float64) Severity {
	if confidence >= FraudGradeConfidence {
		return SeverityFraud
	}
	return SeveritySuspicious
}

// TitleFor returns the feed headline for a label
func TitleFor(label classifier.Label) string {
	if label == classifier.LabelFraud {
		return "Fraud Detected"
	}
	return "Suspicious Activity"
}

type riskBoost struct {
	all    []string
	any    []string
	points int
}

var riskBoosts = []riskBoost{
	{any: []string{"urgent", "immediately"}, points: 10},
	{any: []string{"click", "link"}, points: 15},
	{any: []string{"verify", "confirm"}, points: 10},
	{all: []string{"account", "suspend"}, points: 20},
}

// RiskScore is confidence scaled to 0..100 plus keyword boosts, capped at 100
func RiskScore(text string, confidence float64) int {
	score := int(math.Round(confidence * 100))
	lower := strings.ToLower(text)

	for _, b := range riskBoosts {
		if matches(lower, b) {
			score += b.points
		}
	}

	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

func matches(text string, b riskBoost) bool {
	for _, kw := range b.all {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	if len(b.any) == 0 {
		return len(b.all) > 0
	}
	for _, kw := range b.any {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// NewAlert builds an active alert for a non-benign message
func NewAlert(src Source, location *Coordinates) (*Alert, error) {
	if !src.Label.IsAlert() {
		return nil, ErrBenignMessage
	}
	if location != nil && !location.Valid() {
		location = nil
	}

	now := time.Now().UTC()
	return &Alert{
		ID:          uuid.New(),
		UserID:      src.UserID,
		MessageID:   src.MessageID,
		Sender:      src.Sender,
		MessageText: src.Text,
		Label:       src.Label,
		Confidence:  src.Confidence,
		Severity:    SeverityFor(src.Confidence),
		RiskScore:   RiskScore(src.Text, src.Confidence),
		Title:       TitleFor(src.Label),
		Status:      StatusActive,
		Location:    location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Filter narrows alert listings. Zero values match everything.
type Filter struct {
	UserID   string
	Severity Severity
	Status   Status
}

func (f Filter) match(a *Alert) bool {
	return (f.UserID == "" || a.UserID == f.UserID) &&
		(f.Severity == "" || a.Severity == f.Severity) &&
		(f.Status == "" || a.Status == f.Status)
}
