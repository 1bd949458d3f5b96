package utm

import (
	"math"
	"testing"
)

func TestFromLatLonKnownPoint(t *testing.T) {
	// CN Tower, Toronto: 17T 630084 4833438
	c, err := FromLatLon(43.642567, -79.387139)
	if err != nil {
		t.Fatalf("FromLatLon failed: %v", err)
	}

	if c.Zone != 17 {
		t.Errorf("Zone = %d, want 17", c.Zone)
	}
	if c.Band != "T" {
		t.Errorf("Band = %q, want T", c.Band)
	}
	if math.Abs(float64(c.Easting-630084)) > 2 {
		t.Errorf("Easting = %d, want 630084 (+/- 2m)", c.Easting)
	}
	if math.Abs(float64(c.Northing-4833438)) > 2 {
		t.Errorf("Northing = %d, want 4833438 (+/- 2m)", c.Northing)
	}
}

func TestZoneDerivation(t *testing.T) {
	tests := []struct {
		lon  float64
		want int
	}{
		{lon: -180, want: 1},
		{lon: -177.001, want: 1},
		{lon: 0, want: 31},
		{lon: 3, want: 31},
		{lon: 5.999, want: 31},
		{lon: 6, want: 32},
		{lon: 179.999, want: 60},
	}

	for _, tt := range tests {
		if got := Zone(tt.lon); got != tt.want {
			t.Errorf("Zone(%v) = %d, want %d", tt.lon, got, tt.want)
		}
	}

	// Zone depends only on longitude.
	for _, lat := range []float64{-75, -10, 0, 45, 83} {
		c, err := FromLatLon(lat, 3.0)
		if err != nil {
			t.Fatalf("FromLatLon(%v, 3.0) failed: %v", lat, err)
		}
		if c.Zone != 31 {
			t.Errorf("FromLatLon(%v, 3.0).Zone = %d, want 31", lat, c.Zone)
		}
	}
}

func TestBandMonotonic(t *testing.T) {
	prev := ""
	for lat := -80.0; lat < 84.0; lat += 0.5 {
		b := Band(lat)
		if prev != "" && b < prev {
			t.Fatalf("band decreased from %q to %q at lat %v", prev, b, lat)
		}
		prev = b
	}

	// Poles clamp to the edge bands instead of erroring.
	if got := Band(-90); got != "C" {
		t.Errorf("Band(-90) = %q, want C", got)
	}
	if got := Band(90); got != "X" {
		t.Errorf("Band(90) = %q, want X", got)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{name: "Tehran", lat: 35.6892, lon: 51.389},
		{name: "Sydney", lat: -33.8688, lon: 151.2093},
		{name: "Quito", lat: -0.1807, lon: -78.4678},
		{name: "Reykjavik", lat: 64.1466, lon: -21.9426},
		{name: "Cape Town", lat: -33.9249, lon: 18.4241},
		{name: "Fairbanks", lat: 64.8378, lon: -147.7164},
		{name: "Zone edge", lat: 48.0, lon: 5.9999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromLatLon(tt.lat, tt.lon)
			if err != nil {
				t.Fatalf("FromLatLon failed: %v", err)
			}
			lat, lon, err := ToLatLon(c.Zone, c.Band, float64(c.Easting), float64(c.Northing))
			if err != nil {
				t.Fatalf("ToLatLon failed: %v", err)
			}
			// Meter rounding of easting/northing costs up to ~1e-5 degrees.
			if math.Abs(lat-tt.lat) > 2e-5 {
				t.Errorf("lat = %v, want %v", lat, tt.lat)
			}
			if math.Abs(lon-tt.lon) > 2e-5 {
				t.Errorf("lon = %v, want %v", lon, tt.lon)
			}
		})
	}
}

func TestToLatLonHemisphereFallback(t *testing.T) {
	c, err := FromLatLon(52.52, 13.405)
	if err != nil {
		t.Fatalf("FromLatLon failed: %v", err)
	}

	// Missing band assumes the northern hemisphere.
	lat, _, err := ToLatLon(c.Zone, "", float64(c.Easting), float64(c.Northing))
	if err != nil {
		t.Fatalf("ToLatLon failed: %v", err)
	}
	if math.Abs(lat-52.52) > 2e-5 {
		t.Errorf("lat = %v, want 52.52", lat)
	}
}

func TestInvalidInput(t *testing.T) {
	if _, _, err := ToLatLon(31, "U", math.NaN(), 5800000); err == nil {
		t.Error("ToLatLon accepted NaN easting")
	}
	if _, _, err := ToLatLon(31, "U", 400000, math.Inf(1)); err == nil {
		t.Error("ToLatLon accepted infinite northing")
	}
	if _, _, err := ToLatLon(0, "U", 400000, 5800000); err == nil {
		t.Error("ToLatLon accepted zone 0")
	}
	if _, err := FromLatLon(math.NaN(), 10); err == nil {
		t.Error("FromLatLon accepted NaN latitude")
	}
}

func TestFromLatLonZoneOverride(t *testing.T) {
	// Project a point just across the zone 31/32 boundary into zone 31
	// so an export set stays in one grid.
	native, err := FromLatLon(48.0, 6.1)
	if err != nil {
		t.Fatalf("FromLatLon failed: %v", err)
	}
	if native.Zone != 32 {
		t.Fatalf("native zone = %d, want 32", native.Zone)
	}

	forced, err := FromLatLonZone(48.0, 6.1, 31)
	if err != nil {
		t.Fatalf("FromLatLonZone failed: %v", err)
	}
	if forced.Zone != 31 {
		t.Errorf("forced zone = %d, want 31", forced.Zone)
	}
	if forced.Easting <= native.Easting {
		t.Errorf("easting in zone 31 (%d) should exceed easting in zone 32 (%d)",
			forced.Easting, native.Easting)
	}

	lat, lon, err := ToLatLon(forced.Zone, forced.Band, float64(forced.Easting), float64(forced.Northing))
	if err != nil {
		t.Fatalf("ToLatLon failed: %v", err)
	}
	if math.Abs(lat-48.0) > 2e-5 || math.Abs(lon-6.1) > 2e-5 {
		t.Errorf("round trip through forced zone = (%v, %v), want (48.0, 6.1)", lat, lon)
	}
}

func TestCoordinateString(t *testing.T) {
	c := Coordinate{Zone: 39, Band: "S", Easting: 539052, Northing: 3949941}
	if got := c.String(); got != "39S 539052 3949941" {
		t.Errorf("String() = %q", got)
	}
}
