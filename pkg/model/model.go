package model

import (
	"time"
)

// GeoFix is a single position observation from a location provider.
// Optional sensor fields are pointers; a nil field means the provider
// did not report that value, and consumers must branch on presence.
type GeoFix struct {
	Lat       float64   `json:"lat"`                // Degrees, [-90, 90]
	Lon       float64   `json:"lon"`                // Degrees, [-180, 180]
	Altitude  *float64  `json:"altitude,omitempty"` // Meters MSL
	Accuracy  *float64  `json:"accuracy,omitempty"` // Horizontal accuracy, meters
	Speed     *float64  `json:"speed,omitempty"`    // Meters per second
	Heading   *float64  `json:"heading,omitempty"`  // Degrees true, [0, 360)
	Timestamp time.Time `json:"timestamp"`
}

// Waypoint is a user-marked or averaged point of interest.
// Lat, Lon and Timestamp are immutable after creation; the only
// mutation the collection supports is deletion.
type Waypoint struct {
	ID  string  `json:"id"` // Unique within the collection
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	Altitude *float64 `json:"altitude,omitempty"` // Meters MSL
	Accuracy *float64 `json:"accuracy,omitempty"` // Meters

	// Projected grid coordinate, derived from Lat/Lon at creation.
	Zone     int    `json:"zone"`
	Band     string `json:"band"`
	Easting  int    `json:"easting"`
	Northing int    `json:"northing"`

	Timestamp string `json:"timestamp"` // ISO 8601
	Type      string `json:"type,omitempty"`
	Note      string `json:"note,omitempty"`
}

// TrackPoint is one recorded position of the track log.
type TrackPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NavigationTarget is the single active destination: either a reference
// to a waypoint or an ad-hoc coordinate (e.g. a typed-in grid reference).
type NavigationTarget struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Label      string  `json:"label"`
	WaypointID string  `json:"waypoint_id,omitempty"` // Empty for ad-hoc targets
}

// OrientationSample is one device-orientation reading.
type OrientationSample struct {
	Heading  float64 `json:"heading"`  // Degrees, [0, 360)
	Absolute bool    `json:"absolute"` // True when north-referenced rather than device-relative
}

// DerivedState is the per-fix readout handed to the UI layer.
type DerivedState struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Grid string  `json:"grid"` // Formatted UTM string, e.g. "39S 539052 3949941"

	Altitude *float64 `json:"altitude,omitempty"` // Meters MSL
	Accuracy *float64 `json:"accuracy,omitempty"` // Meters
	SpeedKmh *float64 `json:"speed_kmh,omitempty"`
	Heading  *float64 `json:"heading,omitempty"` // Reported by the provider
	Course   *float64 `json:"course,omitempty"`  // Reported heading, or derived course over ground

	// Reliable is false when the fix failed the accuracy gate and was
	// excluded from proximity-alert evaluation.
	Reliable  bool      `json:"reliable"`
	Timestamp time.Time `json:"timestamp"`
}

// ProximityAlert fires when a reliable fix lands within the alert
// radius of the nearest waypoint.
type ProximityAlert struct {
	WaypointID string  `json:"waypoint_id"`
	DistanceM  float64 `json:"distance_m"`
}

// OverlayReadout drives the navigation arrow display. Active is false
// when no target is set; the remaining fields are then zero.
type OverlayReadout struct {
	Active             bool    `json:"active"`
	Label              string  `json:"label"`
	DistanceM          float64 `json:"distance_m"`
	BearingDeg         float64 `json:"bearing_deg"`          // Absolute, degrees true
	RelativeBearingDeg float64 `json:"relative_bearing_deg"` // Relative to current heading
	TurnDeg            float64 `json:"turn_deg"`             // Signed [-180, 180], negative turns left
}
