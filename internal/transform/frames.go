package transform

import (
	"math"
	"time"
)

// PositionTEME is a satellite position in the TEME frame (km), as produced by SGP4.
type PositionTEME struct {
	X, Y, Z float64
}

// PositionECEF is a position in the Earth-fixed frame (meters).
type PositionECEF struct {
	X, Y, Z float64
}

// TEMEToECEF rotates a TEME position into ECEF at time t.
// Only the GMST rotation is applied; polar motion and the equation of the
// equinoxes are ignored (tens of meters, far below the visibility radius).
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST is TEMEToECEF with a precomputed GMST angle in radians.
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	return PositionECEF{
		X: (teme.X*cosG + teme.Y*sinG) * 1000.0,
		Y: (-teme.X*sinG + teme.Y*cosG) * 1000.0,
		Z: teme.Z * 1000.0,
	}
}

// ValidateECEF reports whether pos is a plausible Earth-orbit position:
// finite and between 6200 km and 50000 km from the geocenter.
func ValidateECEF(pos PositionECEF) bool {
	for _, v := range []float64{pos.X, pos.Y, pos.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	const (
		minRadius = 6200.0 * 1000.0
		maxRadius = 50000.0 * 1000.0
	)
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	return mag >= minRadius && mag <= maxRadius
}
