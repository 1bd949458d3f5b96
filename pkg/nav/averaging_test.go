package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAveragingStateMachine(t *testing.T) {
	var s AveragingSession

	assert.Equal(t, AveragingIdle, s.State())

	// Samples are dropped unless the session is active.
	s.Ingest(Sample{Lat: 1, Lon: 1})
	assert.Equal(t, 0, s.Count())

	s.Start()
	s.Ingest(Sample{Lat: 1, Lon: 1})
	s.Ingest(Sample{Lat: 2, Lon: 2})
	assert.Equal(t, AveragingActive, s.State())
	assert.Equal(t, 2, s.Count())

	s.Stop()
	assert.Equal(t, AveragingStopped, s.State())
	s.Ingest(Sample{Lat: 3, Lon: 3})
	assert.Equal(t, 2, s.Count(), "stopped session accepts no samples")

	// Restarting clears the frozen list.
	s.Start()
	assert.Equal(t, 0, s.Count())

	s.Reset()
	assert.Equal(t, AveragingIdle, s.State())
}

func TestComputeMean(t *testing.T) {
	var s AveragingSession

	_, err := s.ComputeMean()
	assert.ErrorIs(t, err, ErrNoSamples)

	s.Start()
	s.Ingest(Sample{Lat: 10.0, Lon: 20.0})
	s.Ingest(Sample{Lat: 10.0, Lon: 20.002})

	m, err := s.ComputeMean()
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.Lat)
	assert.InDelta(t, 20.001, m.Lon, 1e-12)
	assert.Nil(t, m.Accuracy, "no sample reported accuracy")
}

func TestComputeMeanAccuracySubset(t *testing.T) {
	var s AveragingSession
	s.Start()
	s.Ingest(Sample{Lat: 1, Lon: 1, Accuracy: fptr(4)})
	s.Ingest(Sample{Lat: 1, Lon: 1})
	s.Ingest(Sample{Lat: 1, Lon: 1, Accuracy: fptr(8)})

	m, err := s.ComputeMean()
	require.NoError(t, err)
	require.NotNil(t, m.Accuracy)
	assert.Equal(t, 6.0, *m.Accuracy, "mean over the two samples that carry accuracy")
}

func TestCoreAveragingFlow(t *testing.T) {
	c := New(DefaultConfig())

	// Fixes arriving while no session is active are ignored.
	c.IngestFix(fix(10.0, 20.0))
	_, count := c.AveragingStatus()
	assert.Equal(t, 0, count)

	c.StartAveraging()
	c.IngestFix(fix(10.0, 20.0))
	c.IngestFix(fix(10.0, 20.002))
	c.StopAveraging()

	state, count := c.AveragingStatus()
	assert.Equal(t, AveragingStopped, state)
	assert.Equal(t, 2, count)

	wp, err := c.FinalizeAveraging("camp", "averaged site")
	require.NoError(t, err)
	assert.Contains(t, wp.ID, "avg-")
	assert.Equal(t, 10.0, wp.Lat)
	assert.InDelta(t, 20.001, wp.Lon, 1e-12)

	// Finalize resets the session and lands the waypoint in the collection.
	state, count = c.AveragingStatus()
	assert.Equal(t, AveragingIdle, state)
	assert.Equal(t, 0, count)
	require.Len(t, c.Waypoints(), 1)

	_, err = c.FinalizeAveraging("", "")
	assert.ErrorIs(t, err, ErrNoSamples)
}
