package alerts

import (
	"testing"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityFraud, SeverityFor(0.8))
	assert.Equal(t, SeverityFraud, SeverityFor(0.99))
	assert.Equal(t, SeveritySuspicious, SeverityFor(0.7999))
	assert.Equal(t, SeveritySuspicious, SeverityFor(0))
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		confidence float64
		want       int
	}{
		{name: "confidence only", text: "hello", confidence: 0.42, want: 42},
		{name: "urgent", text: "URGENT reply now", confidence: 0.5, want: 60},
		{name: "link", text: "click here", confidence: 0.5, want: 65},
		{name: "verify", text: "please confirm your PIN", confidence: 0.5, want: 60},
		{name: "account suspend", text: "your account will be suspended", confidence: 0.5, want: 70},
		{name: "account alone", text: "your account", confidence: 0.5, want: 50},
		{name: "stacked boosts cap", text: "urgent: click the link to verify or your account is suspended", confidence: 0.9, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskScore(tt.text, tt.confidence))
		})
	}
}

func TestNewAlert(t *testing.T) {
	src := Source{
		UserID:     "u1",
		MessageID:  uuid.New(),
		Sender:     "+250788000000",
		Text:       "You won 500,000 RWF",
		Label:      classifier.LabelFraud,
		Confidence: 0.93,
	}

	a, err := NewAlert(src, &Coordinates{Latitude: -1.9441, Longitude: 30.0619})
	require.NoError(t, err)
	assert.Equal(t, SeverityFraud, a.Severity)
	assert.Equal(t, StatusActive, a.Status)
	assert.Equal(t, "Fraud Detected", a.Title)
	require.NotNil(t, a.Location)

	src.Label = classifier.LabelSuspicious
	src.Confidence = 0.6
	a, err = NewAlert(src, &Coordinates{Latitude: 120, Longitude: 0})
	require.NoError(t, err)
	assert.Equal(t, SeveritySuspicious, a.Severity)
	assert.Equal(t, "Suspicious Activity", a.Title)
	assert.Nil(t, a.Location, "invalid coordinates are dropped")

	src.Label = classifier.LabelBenign
	_, err = NewAlert(src, nil)
	assert.ErrorIs(t, err, ErrBenignMessage)
}
