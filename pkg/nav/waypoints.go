package nav

import (
	"fmt"

	"fieldnav/pkg/geo"
	"fieldnav/pkg/model"
	"fieldnav/pkg/utm"
)

// NearestWaypoint scans the collection for the waypoint closest to pos.
// Ties keep the first-encountered waypoint, so the result is stable in
// collection order. Pure function; safe to call on every fix.
func NearestWaypoint(pos geo.Point, waypoints []model.Waypoint) (model.Waypoint, float64, bool) {
	var best model.Waypoint
	bestDist := 0.0
	found := false

	for _, wp := range waypoints {
		d := geo.Distance(pos, geo.Point{Lat: wp.Lat, Lon: wp.Lon})
		if !found || d < bestDist {
			best = wp
			bestDist = d
			found = true
		}
	}
	return best, bestDist, found
}

// MarkWaypoint snapshots the current fix as a new waypoint.
// Fails with ErrNoFix before any fix has arrived.
func (c *Core) MarkWaypoint(typ, note string) (model.Waypoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return model.Waypoint{}, ErrNoFix
	}
	wp := buildWaypoint(newWaypointID(false), c.current.Lat, c.current.Lon,
		c.current.Altitude, c.current.Accuracy, typ, note)
	c.addWaypointLocked(wp)
	return wp, nil
}

// ImportWaypoints bulk-adds parsed waypoints, skipping ids that already
// exist. Returns the records actually added, with missing projected
// coordinates and timestamps derived on the way in.
func (c *Core) ImportWaypoints(wps []model.Waypoint) []model.Waypoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	var added []model.Waypoint
	for _, wp := range wps {
		if wp.ID == "" {
			wp.ID = newWaypointID(false)
		}
		if _, exists := c.wpIndex[wp.ID]; exists {
			continue
		}
		if wp.Zone == 0 {
			if coord, err := utm.FromLatLon(wp.Lat, wp.Lon); err == nil {
				wp.Zone = coord.Zone
				wp.Band = coord.Band
				wp.Easting = coord.Easting
				wp.Northing = coord.Northing
			}
		}
		if wp.Timestamp == "" {
			wp.Timestamp = timestampNow()
		}
		c.addWaypointLocked(wp)
		added = append(added, wp)
	}
	return added
}

// DeleteWaypoint removes a waypoint by id. A target referencing it is
// cleared as well.
func (c *Core) DeleteWaypoint(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.wpIndex[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c.waypoints = append(c.waypoints[:i], c.waypoints[i+1:]...)
	delete(c.wpIndex, id)
	for j := i; j < len(c.waypoints); j++ {
		c.wpIndex[c.waypoints[j].ID] = j
	}

	if c.target != nil && c.target.WaypointID == id {
		c.target = nil
	}
	return nil
}

// Waypoints returns a copy of the collection in insertion order.
func (c *Core) Waypoints() []model.Waypoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Waypoint, len(c.waypoints))
	copy(out, c.waypoints)
	return out
}

// Waypoint looks up a single waypoint by id.
func (c *Core) Waypoint(id string) (model.Waypoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.wpIndex[id]
	if !ok {
		return model.Waypoint{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.waypoints[i], nil
}

func (c *Core) addWaypointLocked(wp model.Waypoint) {
	c.wpIndex[wp.ID] = len(c.waypoints)
	c.waypoints = append(c.waypoints, wp)
}

// buildWaypoint assembles a waypoint record with its derived grid
// coordinate and creation timestamp.
func buildWaypoint(id string, lat, lon float64, alt, acc *float64, typ, note string) model.Waypoint {
	wp := model.Waypoint{
		ID:        id,
		Lat:       lat,
		Lon:       lon,
		Altitude:  alt,
		Accuracy:  acc,
		Timestamp: timestampNow(),
		Type:      typ,
		Note:      note,
	}
	if coord, err := utm.FromLatLon(lat, lon); err == nil {
		wp.Zone = coord.Zone
		wp.Band = coord.Band
		wp.Easting = coord.Easting
		wp.Northing = coord.Northing
	}
	return wp
}
