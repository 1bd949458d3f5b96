package nav

import (
	"errors"

	"fieldnav/pkg/model"
)

// ErrNoSamples is returned when a mean is requested from an empty
// averaging session.
var ErrNoSamples = errors.New("nav: averaging session has no samples")

// AveragingState is the state of the averaging session machine.
type AveragingState int

const (
	AveragingIdle AveragingState = iota
	AveragingActive
	AveragingStopped
)

// String returns the lowercase state name for readouts and logs.
func (s AveragingState) String() string {
	switch s {
	case AveragingActive:
		return "active"
	case AveragingStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Sample is one position observation collected by an averaging session.
type Sample struct {
	Lat      float64
	Lon      float64
	Accuracy *float64
}

// Mean is the combined estimate of an averaging session. Accuracy is
// nil when no sample carried one.
type Mean struct {
	Lat      float64
	Lon      float64
	Accuracy *float64
}

// AveragingSession accumulates fixes into a higher-confidence point.
// Not safe for concurrent use on its own; Core serializes access.
type AveragingSession struct {
	state   AveragingState
	samples []Sample
}

// Start begins collection, clearing any previous samples.
func (s *AveragingSession) Start() {
	s.state = AveragingActive
	s.samples = nil
}

// Ingest appends a sample while active; otherwise it is a no-op.
func (s *AveragingSession) Ingest(smp Sample) {
	if s.state != AveragingActive {
		return
	}
	s.samples = append(s.samples, smp)
}

// Stop freezes the sample list for reading.
func (s *AveragingSession) Stop() {
	if s.state == AveragingActive {
		s.state = AveragingStopped
	}
}

// Reset returns to idle and discards all samples.
func (s *AveragingSession) Reset() {
	s.state = AveragingIdle
	s.samples = nil
}

// State returns the current machine state.
func (s *AveragingSession) State() AveragingState {
	return s.state
}

// Count returns the number of collected samples.
func (s *AveragingSession) Count() int {
	return len(s.samples)
}

// ComputeMean averages lat and lon arithmetically. That is not a
// geodesic mean, but for the small radius of an averaging session it is
// an acceptable approximation. The accuracy mean covers only samples
// that reported one.
func (s *AveragingSession) ComputeMean() (Mean, error) {
	if len(s.samples) == 0 {
		return Mean{}, ErrNoSamples
	}

	var latSum, lonSum, accSum float64
	accCount := 0
	for _, smp := range s.samples {
		latSum += smp.Lat
		lonSum += smp.Lon
		if smp.Accuracy != nil {
			accSum += *smp.Accuracy
			accCount++
		}
	}

	m := Mean{
		Lat: latSum / float64(len(s.samples)),
		Lon: lonSum / float64(len(s.samples)),
	}
	if accCount > 0 {
		acc := accSum / float64(accCount)
		m.Accuracy = &acc
	}
	return m, nil
}

// StartAveraging begins an averaging session; subsequent fixes feed it.
func (c *Core) StartAveraging() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.averaging.Start()
}

// StopAveraging freezes the session for mean computation.
func (c *Core) StopAveraging() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.averaging.Stop()
}

// ResetAveraging discards the session from any state.
func (c *Core) ResetAveraging() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.averaging.Reset()
}

// AveragingStatus reports the session state and sample count.
func (c *Core) AveragingStatus() (AveragingState, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.averaging.State(), c.averaging.Count()
}

// FinalizeAveraging converts the session mean into a waypoint with an
// "averaged" id prefix and resets the session. Fails with ErrNoSamples
// when nothing was collected.
func (c *Core) FinalizeAveraging(typ, note string) (model.Waypoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mean, err := c.averaging.ComputeMean()
	if err != nil {
		return model.Waypoint{}, err
	}

	wp := buildWaypoint(newWaypointID(true), mean.Lat, mean.Lon, nil, mean.Accuracy, typ, note)
	c.addWaypointLocked(wp)
	c.averaging.Reset()
	return wp, nil
}
