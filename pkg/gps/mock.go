package gps

import (
	"context"
	"math/rand"
	"time"

	"fieldnav/pkg/geo"
	"fieldnav/pkg/model"
)

// MockSource simulates a walker for development without a receiver: a
// steady pace along a wandering heading, with mildly jittered accuracy.
type MockSource struct {
	StartLat   float64
	StartLon   float64
	SpeedKmh   float64
	HeadingDeg float64
	Interval   time.Duration
}

// Run emits one synthetic fix per interval until ctx is cancelled.
func (m *MockSource) Run(ctx context.Context, emit FixHandler) error {
	interval := m.Interval
	if interval <= 0 {
		interval = time.Second
	}

	pos := geo.Point{Lat: m.StartLat, Lon: m.StartLon}
	heading := m.HeadingDeg
	speedMS := m.SpeedKmh / 3.6

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Wander a little so courses and bearings keep changing.
			heading += (rand.Float64() - 0.5) * 10
			heading = geo.RelativeBearing(heading, 0)

			step := speedMS * interval.Seconds()
			pos = geo.DestinationPoint(pos, step, heading)

			speed := speedMS
			acc := 3.0 + rand.Float64()*4
			alt := 120.0 + rand.Float64()*2
			hdg := heading

			emit(model.GeoFix{
				Lat:       pos.Lat,
				Lon:       pos.Lon,
				Altitude:  &alt,
				Accuracy:  &acc,
				Speed:     &speed,
				Heading:   &hdg,
				Timestamp: time.Now(),
			})
		}
	}
}
