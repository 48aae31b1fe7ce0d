package geo

import (
	"fmt"
	"testing"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/alerts"
)

func BenchmarkHaversineDistance(b *testing.B) {
	for i := 0; i < b.N; i++ {
		haversineDistance(-1.9441, 30.0619, -1.6778, 29.2386)
	}
}

func benchmarkFindClosest(b *testing.B, n int) {
	located := make([]*alerts.Alert, n)
	for i := range located {
		located[i] = &alerts.Alert{
			UserID:   fmt.Sprintf("u%d", i%50),
			Location: &alerts.Coordinates{Latitude: -2 + float64(i%1000)*0.001, Longitude: 29 + float64(i/1000)*0.001},
		}
	}
	point := alerts.Coordinates{Latitude: -1.5, Longitude: 29.004}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		findClosest(point, located, DefaultTieBreakRadiusKm)
	}
}

func BenchmarkFindClosest_1k(b *testing.B)  { benchmarkFindClosest(b, 1000) }
func BenchmarkFindClosest_10k(b *testing.B) { benchmarkFindClosest(b, 10000) }
