package store

import (
	"context"

	"fieldnav/pkg/model"
)

// WaypointStore persists the waypoint collection. Records are written
// once and only ever deleted, mirroring the in-memory collection rules.
type WaypointStore interface {
	SaveWaypoint(ctx context.Context, wp *model.Waypoint) error
	DeleteWaypoint(ctx context.Context, id string) error
	ListWaypoints(ctx context.Context) ([]model.Waypoint, error)
}

// TrackStore persists the recorded track in arrival order.
type TrackStore interface {
	AppendTrackPoint(ctx context.Context, p model.TrackPoint) error
	ReplaceTrack(ctx context.Context, points []model.TrackPoint) error
	ListTrack(ctx context.Context) ([]model.TrackPoint, error)
	ClearTrack(ctx context.Context) error
}

// StateStore handles persistent application state (active target,
// runtime settings).
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	WaypointStore
	TrackStore
	StateStore

	// Close closes the store connection.
	Close() error
}
