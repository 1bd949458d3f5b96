// Package gps provides the position sources that feed the navigation
// core: an NMEA serial port, an NMEA TCP line feed (gpsd/kplex style),
// and a mock walker for development. Sources push fixes; the core never
// polls.
package gps

import (
	"context"

	"fieldnav/pkg/model"
)

// FixHandler receives each parsed position fix in arrival order.
type FixHandler func(model.GeoFix)

// Source is a push-based position provider.
type Source interface {
	// Run blocks, delivering fixes to emit until ctx is cancelled or
	// the provider fails permanently.
	Run(ctx context.Context, emit FixHandler) error
}
