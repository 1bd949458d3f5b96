// Package utm implements the Universal Transverse Mercator grid on the
// WGS84 ellipsoid: forward and inverse ellipsoidal Transverse Mercator
// transforms plus zone and latitude-band derivation.
package utm

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when a projection input is not a finite number.
var ErrInvalidInput = errors.New("utm: invalid input")

// WGS84 ellipsoid.
const (
	a  = 6378137.0           // Semi-major axis, meters
	f  = 1 / 298.257223563   // Flattening
	k0 = 0.9996              // UTM scale factor at the central meridian
)

var (
	e2  = f * (2 - f)     // First eccentricity squared
	ep2 = e2 / (1 - e2)   // Second eccentricity squared
	e1  = (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
)

// bands is the MGRS latitude band table, 8 degrees per letter from 80S
// northward. I and O are excluded.
const bands = "CDEFGHJKLMNPQRSTUVWX"

// Coordinate is a projected UTM grid position.
type Coordinate struct {
	Zone     int    // 1-60
	Band     string // Single letter from the MGRS band table
	Easting  int    // Meters, rounded
	Northing int    // Meters, rounded
}

// String formats the coordinate as "39S 539052 3949941".
func (c Coordinate) String() string {
	return fmt.Sprintf("%d%s %d %d", c.Zone, c.Band, c.Easting, c.Northing)
}

// Zone returns the UTM zone for a longitude.
func Zone(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	// lon=180 is the same meridian as lon=-180, not a phantom zone 61.
	if zone > 60 {
		zone = 1
	}
	if zone < 1 {
		zone = 1
	}
	return zone
}

// Band returns the MGRS latitude band letter. Latitudes beyond the
// defined band range clamp to the edge letters rather than erroring.
func Band(lat float64) string {
	i := int(math.Floor((lat + 80) / 8))
	if i < 0 {
		i = 0
	}
	if i > len(bands)-1 {
		i = len(bands) - 1
	}
	return string(bands[i])
}

// centralMeridian returns the central meridian of a zone in radians.
func centralMeridian(zone int) float64 {
	return (float64(zone-1)*6 - 180 + 3) * (math.Pi / 180.0)
}

// FromLatLon projects a WGS84 coordinate into the UTM grid, deriving the
// zone from the longitude. Every finite input produces a result.
func FromLatLon(lat, lon float64) (Coordinate, error) {
	return FromLatLonZone(lat, lon, Zone(lon))
}

// FromLatLonZone projects into an explicitly chosen zone. Exports use
// this to keep all points of a set in one consistent grid.
func FromLatLonZone(lat, lon float64, zone int) (Coordinate, error) {
	if !isFinite(lat) || !isFinite(lon) {
		return Coordinate{}, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidInput, lat, lon)
	}
	if zone < 1 || zone > 60 {
		return Coordinate{}, fmt.Errorf("%w: zone=%d", ErrInvalidInput, zone)
	}

	phi := lat * (math.Pi / 180.0)
	lambda := lon * (math.Pi / 180.0)
	lambda0 := centralMeridian(zone)

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := a / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	A := cosPhi * (lambda - lambda0)

	m := meridianArc(phi)

	easting := k0*n*(A+(1-t+c)*A*A*A/6+
		(5-18*t+t*t+72*c-58*ep2)*A*A*A*A*A/120) + 500000

	northing := k0 * (m + n*tanPhi*(A*A/2+
		(5-t+9*c+4*c*c)*A*A*A*A/24+
		(61-58*t+t*t+600*c-330*ep2)*A*A*A*A*A*A/720))
	if lat < 0 {
		northing += 10000000 // Southern hemisphere false northing
	}

	return Coordinate{
		Zone:     zone,
		Band:     Band(lat),
		Easting:  int(math.Round(easting)),
		Northing: int(math.Round(northing)),
	}, nil
}

// ToLatLon applies the inverse Transverse Mercator projection.
//
// The hemisphere is inferred from the band letter: "N" or later means
// northern. This heuristic matches the forward band table only away from
// the equator band boundary and is kept as observed legacy behavior; a
// missing band falls back to assuming northern.
func ToLatLon(zone int, band string, easting, northing float64) (lat, lon float64, err error) {
	if !isFinite(easting) || !isFinite(northing) {
		return 0, 0, fmt.Errorf("%w: easting=%v northing=%v", ErrInvalidInput, easting, northing)
	}
	if zone < 1 || zone > 60 {
		return 0, 0, fmt.Errorf("%w: zone=%d", ErrInvalidInput, zone)
	}

	northern := true
	if band != "" {
		northern = band[0] >= 'N'
	}

	x := easting - 500000
	y := northing
	if !northern {
		y -= 10000000
	}

	m := y / k0
	mu := m / (a * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := a / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := a * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * k0)

	phi := phi1 - (n1*tanPhi1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d*d*d*d/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d*d*d*d*d*d/720)

	lambda := centralMeridian(zone) + (d-
		(1+2*t1+c1)*d*d*d/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d*d*d*d*d/120)/cosPhi1

	return phi * (180.0 / math.Pi), lambda * (180.0 / math.Pi), nil
}

// meridianArc returns the meridian arc length from the equator to
// latitude phi (radians), in meters.
func meridianArc(phi float64) float64 {
	return a * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*phi -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*phi) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*phi) -
		(35*e2*e2*e2/3072)*math.Sin(6*phi))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
