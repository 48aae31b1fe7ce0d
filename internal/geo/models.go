package geo

import (
	"fmt"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/alerts"
)

// Coordinates is shared with the alert feed
type Coordinates = alerts.Coordinates

// MatchType says how the owning alert was chosen
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchNearest MatchType = "nearest"
)

// UserProfile summarizes everything one user has triggered
type UserProfile struct {
	UserID               string     `json:"user_id"`
	TotalAlerts          int        `json:"total_alerts"`
	FraudGradeCount      int        `json:"fraud_grade_count"`
	SuspiciousGradeCount int        `json:"suspicious_grade_count"`
	ActiveCount          int        `json:"active_count"`
	MaxRiskScore         int        `json:"max_risk_score"`
	UniqueSenders        []string   `json:"unique_senders"`
	FirstAlertAt         *time.Time `json:"first_alert_at,omitempty"`
	LastAlertAt          *time.Time `json:"last_alert_at,omitempty"`
}

// NearbyResult is the owning user of the alert closest to the query point
// and all of that user's alerts, newest first.
type NearbyResult struct {
	TargetUserID string          `json:"target_user_id"`
	MatchType    MatchType       `json:"match_type"`
	MatchedAlert *alerts.Alert   `json:"matched_alert"`
	DistanceKm   float64         `json:"distance_km"`
	RadiusKm     float64         `json:"radius_km"`
	Alerts       []*alerts.Alert `json:"alerts"`
	Profile      UserProfile     `json:"profile"`
}

// NotFoundError reports that no located alert lies within the tie-break radius
type NotFoundError struct {
	SearchLat         float64  `json:"search_lat"`
	SearchLng         float64  `json:"search_lng"`
	TieBreakRadiusKm  float64  `json:"tie_break_radius_km"`
	AlertsChecked     int      `json:"alerts_checked"`
	ClosestDistanceKm *float64 `json:"closest_distance_km,omitempty"`
}

func (e *NotFoundError) Error() string {
	if e.ClosestDistanceKm == nil {
		return fmt.Sprintf("no located alerts near (%.6f, %.6f): %d checked", e.SearchLat, e.SearchLng, e.AlertsChecked)
	}
	return fmt.Sprintf("no alert within %.2f km of (%.6f, %.6f): closest is %.3f km, %d checked",
		e.TieBreakRadiusKm, e.SearchLat, e.SearchLng, *e.ClosestDistanceKm, e.AlertsChecked)
}
