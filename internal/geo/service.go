package geo

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/alerts"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	earthRadiusKm = 6371.0

	// ExactMatchEpsilon is the per-axis tolerance, in degrees, for treating a
	// query point as a click on an existing marker.
	ExactMatchEpsilon = 1e-6

	// DefaultTieBreakRadiusKm bounds how far the nearest alert may be
	DefaultTieBreakRadiusKm = 2.0
)

// AlertSource is the read side of the alert feed the engine scans
type AlertSource interface {
	ListLocated(ctx context.Context) ([]*alerts.Alert, error)
	ListByUser(ctx context.Context, userID string) ([]*alerts.Alert, error)
}

// Service answers "who triggered the alerts near this point"
type Service struct {
	alerts           AlertSource
	tieBreakRadiusKm float64
}

// NewService creates a geo service. A non-positive radius uses the default.
func NewService(source AlertSource, tieBreakRadiusKm float64) *Service {
	if tieBreakRadiusKm <= 0 {
		tieBreakRadiusKm = DefaultTieBreakRadiusKm
	}
	return &Service{alerts: source, tieBreakRadiusKm: tieBreakRadiusKm}
}

// FindNearbyUserAlerts picks the alert closest to (lat, lng) and returns all
// alerts of its owner. radiusKm is echoed back for display; matching is
// bounded by the tie-break radius.
func (s *Service) FindNearbyUserAlerts(ctx context.Context, lat, lng, radiusKm float64) (*NearbyResult, error) {
	point := Coordinates{Latitude: lat, Longitude: lng}
	if !point.Valid() {
		return nil, common.NewBadRequestError("coordinates out of range", nil)
	}

	ctx, span := tracing.Start(ctx, "geo", "geo.FindNearbyUserAlerts",
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lng", lng),
	)

	result, err := s.findNearby(ctx, point, radiusKm)
	tracing.End(span, err)
	return result, err
}

func (s *Service) findNearby(ctx context.Context, point Coordinates, radiusKm float64) (*NearbyResult, error) {
	located, err := s.alerts.ListLocated(ctx)
	if err != nil {
		return nil, common.NewInternalError("failed to load alerts", err)
	}

	match := findClosest(point, located, s.tieBreakRadiusKm)
	if match.alert == nil {
		nf := &NotFoundError{
			SearchLat:        point.Latitude,
			SearchLng:        point.Longitude,
			TieBreakRadiusKm: s.tieBreakRadiusKm,
			AlertsChecked:    len(located),
		}
		if match.closestKm >= 0 {
			d := roundKm(match.closestKm)
			nf.ClosestDistanceKm = &d
		}
		logger.WithContext(ctx).Debug("geo query found no owner",
			zap.Float64("lat", point.Latitude),
			zap.Float64("lng", point.Longitude),
			zap.Int("alerts_checked", nf.AlertsChecked),
		)
		return nil, nf
	}

	owned, err := s.alerts.ListByUser(ctx, match.alert.UserID)
	if err != nil {
		return nil, common.NewInternalError("failed to load user alerts", err)
	}
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })

	return &NearbyResult{
		TargetUserID: match.alert.UserID,
		MatchType:    match.kind,
		MatchedAlert: match.alert,
		DistanceKm:   roundKm(match.distanceKm),
		RadiusKm:     radiusKm,
		Alerts:       owned,
		Profile:      buildProfile(match.alert.UserID, owned),
	}, nil
}

type closestMatch struct {
	alert      *alerts.Alert
	kind       MatchType
	distanceKm float64
	// closestKm is the nearest distance seen, -1 when nothing was checked
	closestKm float64
}

// findClosest runs the linear scan. Exact matches beat distance; among exact
// matches a bitwise-equal point wins, then the smallest coordinate delta.
func findClosest(point Coordinates, located []*alerts.Alert, tieBreakKm float64) closestMatch {
	best := closestMatch{closestKm: -1}
	var (
		exact      *alerts.Alert
		exactDelta = math.Inf(1)
		exactDist  float64
	)

	for _, a := range located {
		if a.Location == nil {
			continue
		}
		loc := *a.Location
		d := haversineDistance(point.Latitude, point.Longitude, loc.Latitude, loc.Longitude)

		if best.closestKm < 0 || d < best.closestKm {
			best.closestKm = d
			best.alert = a
			best.distanceKm = d
		}

		dLat := math.Abs(loc.Latitude - point.Latitude)
		dLng := math.Abs(loc.Longitude - point.Longitude)
		if dLat <= ExactMatchEpsilon && dLng <= ExactMatchEpsilon {
			delta := dLat + dLng
			if loc == point {
				delta = -1
			}
			if delta < exactDelta {
				exact, exactDelta, exactDist = a, delta, d
			}
		}
	}

	if exact != nil {
		return closestMatch{alert: exact, kind: MatchExact, distanceKm: exactDist, closestKm: best.closestKm}
	}
	if best.alert != nil && best.distanceKm <= tieBreakKm {
		best.kind = MatchNearest
		return best
	}
	best.alert = nil
	return best
}

func buildProfile(userID string, owned []*alerts.Alert) UserProfile {
	p := UserProfile{UserID: userID, TotalAlerts: len(owned), UniqueSenders: []string{}}
	seen := make(map[string]struct{})

	for _, a := range owned {
		switch a.Severity {
		case alerts.SeverityFraud:
			p.FraudGradeCount++
		case alerts.SeveritySuspicious:
			p.SuspiciousGradeCount++
		}
		if a.Status == alerts.StatusActive {
			p.ActiveCount++
		}
		if a.RiskScore > p.MaxRiskScore {
			p.MaxRiskScore = a.RiskScore
		}
		if _, ok := seen[a.Sender]; !ok && a.Sender != "" {
			seen[a.Sender] = struct{}{}
			p.UniqueSenders = append(p.UniqueSenders, a.Sender)
		}

		at := a.CreatedAt
		if p.FirstAlertAt == nil || at.Before(*p.FirstAlertAt) {
			p.FirstAlertAt = timePtr(at)
		}
		if p.LastAlertAt == nil || at.After(*p.LastAlertAt) {
			p.LastAlertAt = timePtr(at)
		}
	}
	sort.Strings(p.UniqueSenders)
	return p
}

func timePtr(t time.Time) *time.Time { return &t }

// haversineDistance returns the great-circle distance in kilometers
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func roundKm(d float64) float64 {
	return math.Round(d*1000) / 1000
}
