// Package nav owns the navigation state: current position, waypoint
// collection, active target, track log, history buffers and the
// averaging session. All mutation happens through Core entry points
// called by the host on fix arrival, orientation arrival, or user
// command, matching the event-driven model of the surrounding app.
package nav

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldnav/pkg/geo"
	"fieldnav/pkg/model"
	"fieldnav/pkg/utm"
)

var (
	// ErrNoFix is returned by operations that need a current position
	// before any fix has arrived.
	ErrNoFix = errors.New("nav: no position fix yet")

	// ErrNotFound is returned when a waypoint id does not exist.
	ErrNotFound = errors.New("nav: waypoint not found")
)

// Config holds the core policy knobs.
type Config struct {
	// MaxAccuracyM excludes fixes with a worse reported accuracy from
	// proximity-alert evaluation. They are still recorded.
	MaxAccuracyM float64
	// AlertRadiusM is the proximity-alert trigger distance.
	AlertRadiusM float64
	// HistorySize caps the speed and altitude history buffers.
	HistorySize int
}

// DefaultConfig returns the stock policy values.
func DefaultConfig() Config {
	return Config{
		MaxAccuracyM: 20,
		AlertRadiusM: 30,
		HistorySize:  60,
	}
}

// Core is the single owner of navigation state. It is safe for
// concurrent use; internally every entry point takes the core lock, so
// fixes are folded in strictly in call order.
type Core struct {
	mu  sync.RWMutex
	cfg Config

	current     *model.GeoFix
	prev        *geo.Point // Position of the previous accepted fix, for course derivation
	orientation *model.OrientationSample

	target    *model.NavigationTarget
	waypoints []model.Waypoint
	wpIndex   map[string]int

	track    []model.TrackPoint
	tracking bool

	speedHist *geo.HistoryBuffer
	altHist   *geo.HistoryBuffer

	averaging AveragingSession
}

// New creates a Core with the given policy configuration.
func New(cfg Config) *Core {
	if cfg.HistorySize < 1 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	return &Core{
		cfg:       cfg,
		wpIndex:   make(map[string]int),
		speedHist: geo.NewHistoryBuffer(cfg.HistorySize),
		altHist:   geo.NewHistoryBuffer(cfg.HistorySize),
	}
}

// IngestFix folds one position fix into the core state and returns the
// per-fix readout plus a proximity alert when one fired.
//
// Out-of-range or duplicate fixes are the provider's problem: the core
// records what it is given, in arrival order.
func (c *Core) IngestFix(fix model.GeoFix) (model.DerivedState, *model.ProximityAlert) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos := geo.Point{Lat: fix.Lat, Lon: fix.Lon}

	// Course: trust the provider's heading when present, otherwise
	// derive course over ground from the previous fix. With no prior
	// fix the course stays undefined rather than defaulting.
	var course *float64
	switch {
	case fix.Heading != nil && !math.IsNaN(*fix.Heading):
		course = fix.Heading
	case c.prev != nil:
		v := geo.Bearing(*c.prev, pos)
		course = &v
	}

	if c.tracking {
		c.track = append(c.track, model.TrackPoint{Lat: fix.Lat, Lon: fix.Lon})
	}

	if fix.Speed != nil {
		c.speedHist.Push(*fix.Speed * 3.6) // Stored in km/h for display
	}
	if fix.Altitude != nil {
		c.altHist.Push(*fix.Altitude)
	}

	reliable := fix.Accuracy == nil || *fix.Accuracy <= c.cfg.MaxAccuracyM

	c.averaging.Ingest(Sample{Lat: fix.Lat, Lon: fix.Lon, Accuracy: fix.Accuracy})

	var alert *model.ProximityAlert
	if reliable {
		if wp, dist, ok := NearestWaypoint(pos, c.waypoints); ok && dist <= c.cfg.AlertRadiusM {
			alert = &model.ProximityAlert{WaypointID: wp.ID, DistanceM: dist}
		}
	}

	c.prev = &pos
	c.current = &fix

	return c.deriveStateLocked(fix, course, reliable), alert
}

// deriveStateLocked builds the readout for a fix. Caller holds the lock.
func (c *Core) deriveStateLocked(fix model.GeoFix, course *float64, reliable bool) model.DerivedState {
	grid := ""
	if coord, err := utm.FromLatLon(fix.Lat, fix.Lon); err == nil {
		grid = coord.String()
	}

	return model.DerivedState{
		Lat:       fix.Lat,
		Lon:       fix.Lon,
		Grid:      grid,
		Altitude:  fix.Altitude,
		Accuracy:  fix.Accuracy,
		SpeedKmh:  speedKmh(fix.Speed),
		Heading:   fix.Heading,
		Course:    course,
		Reliable:  reliable,
		Timestamp: fix.Timestamp,
	}
}

func speedKmh(ms *float64) *float64 {
	if ms == nil {
		return nil
	}
	v := *ms * 3.6
	return &v
}

// IngestOrientation records a device-orientation sample. Only absolute
// (north-referenced) samples steer the overlay.
func (c *Core) IngestOrientation(s model.OrientationSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orientation = &s
}

// Current returns the most recent fix, or nil before the first one.
// No fixes arriving is a valid steady state, not an error.
func (c *Core) Current() *model.GeoFix {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	fix := *c.current
	return &fix
}

// heading returns the best available heading for overlay rotation:
// an absolute orientation sample wins over GPS-derived course.
func (c *Core) headingLocked() (float64, bool) {
	if c.orientation != nil && c.orientation.Absolute {
		return c.orientation.Heading, true
	}
	if c.current != nil && c.current.Heading != nil {
		return *c.current.Heading, true
	}
	return 0, false
}

// Overlay computes the navigation-overlay readout for the active
// target. Inactive when no target is set or no fix has arrived yet.
func (c *Core) Overlay() model.OverlayReadout {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.target == nil || c.current == nil {
		return model.OverlayReadout{}
	}

	leg := geo.Navigate(
		geo.Point{Lat: c.current.Lat, Lon: c.current.Lon},
		geo.Point{Lat: c.target.Lat, Lon: c.target.Lon},
	)

	rel := leg.BearingDeg
	if hdg, ok := c.headingLocked(); ok {
		rel = geo.RelativeBearing(leg.BearingDeg, hdg)
	}

	return model.OverlayReadout{
		Active:             true,
		Label:              c.target.Label,
		DistanceM:          leg.DistanceM,
		BearingDeg:         leg.BearingDeg,
		RelativeBearingDeg: rel,
		TurnDeg:            geo.NormalizeAngle(rel),
	}
}

// SetTarget activates an ad-hoc navigation target, replacing any
// previous one.
func (c *Core) SetTarget(t model.NavigationTarget) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = &t
}

// SetTargetWaypoint activates an existing waypoint as the target.
func (c *Core) SetTargetWaypoint(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.wpIndex[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	wp := c.waypoints[i]
	label := wp.Note
	if label == "" {
		label = wp.ID
	}
	c.target = &model.NavigationTarget{
		Lat:        wp.Lat,
		Lon:        wp.Lon,
		Label:      label,
		WaypointID: wp.ID,
	}
	return nil
}

// ClearTarget deactivates navigation.
func (c *Core) ClearTarget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = nil
}

// Target returns the active target, or nil.
func (c *Core) Target() *model.NavigationTarget {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.target == nil {
		return nil
	}
	t := *c.target
	return &t
}

// SetTracking toggles track recording. The flag itself belongs to the
// host UI; the core only obeys it.
func (c *Core) SetTracking(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracking = enabled
}

// Tracking reports whether fixes are being appended to the track.
func (c *Core) Tracking() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracking
}

// Track returns a copy of the recorded track, oldest first.
func (c *Core) Track() []model.TrackPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.TrackPoint, len(c.track))
	copy(out, c.track)
	return out
}

// ReplaceTrack swaps the whole track, e.g. after a file import.
func (c *Core) ReplaceTrack(points []model.TrackPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track = make([]model.TrackPoint, len(points))
	copy(c.track, points)
}

// ClearTrack drops the recorded track.
func (c *Core) ClearTrack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track = nil
}

// SpeedHistory returns the rolling speed window in km/h, oldest first.
func (c *Core) SpeedHistory() []float64 {
	return c.speedHist.Samples()
}

// AltitudeHistory returns the rolling altitude window in meters.
func (c *Core) AltitudeHistory() []float64 {
	return c.altHist.Samples()
}

// UpdateSettings changes the accuracy gate and alert radius at runtime.
func (c *Core) UpdateSettings(maxAccuracyM, alertRadiusM float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxAccuracyM > 0 {
		c.cfg.MaxAccuracyM = maxAccuracyM
	}
	if alertRadiusM > 0 {
		c.cfg.AlertRadiusM = alertRadiusM
	}
}

// Settings returns the current policy configuration.
func (c *Core) Settings() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// newWaypointID generates a collision-free waypoint id. Averaged
// waypoints carry a distinct prefix so they are recognizable later.
func newWaypointID(averaged bool) string {
	if averaged {
		return "avg-" + uuid.NewString()
	}
	return "wp-" + uuid.NewString()
}

// timestampNow formats the waypoint creation instant as ISO 8601.
func timestampNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
