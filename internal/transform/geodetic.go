package transform

import "math"

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// SubPoint is the geodetic point directly below a satellite.
type SubPoint struct {
	GeoPoint
	AltitudeM float64
}

// GeodeticToECEF converts a geodetic position (degrees, meters above the
// ellipsoid) to ECEF meters.
func GeodeticToECEF(p GeoPoint, altM float64) PositionECEF {
	lat := p.Latitude * math.Pi / 180.0
	lon := p.Longitude * math.Pi / 180.0
	sinLat := math.Sin(lat)

	// Prime vertical radius of curvature.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return PositionECEF{
		X: (n + altM) * math.Cos(lat) * math.Cos(lon),
		Y: (n + altM) * math.Cos(lat) * math.Sin(lon),
		Z: (n*(1-wgs84E2) + altM) * sinLat,
	}
}

// ECEFToGeodetic converts ECEF meters to a geodetic sub-point using Bowring's
// iteration. Five passes are plenty for orbital altitudes.
func ECEFToGeodetic(pos PositionECEF) SubPoint {
	lon := math.Atan2(pos.Y, pos.X)
	p := math.Hypot(pos.X, pos.Y)
	lat := math.Atan2(pos.Z, p*(1-wgs84E2))

	var n float64
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(pos.Z+wgs84E2*n*sinLat, p)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(pos.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return SubPoint{
		GeoPoint: GeoPoint{
			Latitude:  lat * 180.0 / math.Pi,
			Longitude: lon * 180.0 / math.Pi,
		},
		AltitudeM: alt,
	}
}
