// Package transform converts propagated satellite positions into the
// renderer's world space.
//
// SGP4 emits positions in TEME (True Equator Mean Equinox). The renderer draws
// the reference body fixed in place, so positions are first rotated into the
// Earth-fixed frame using GMST only (TEME → PEF ≈ ECEF; polar motion and the
// equation of equinoxes are ignored, tens of metres at most), then scaled so
// the body's radius is exactly one world unit.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import "math"

// EarthRadiusKm is the WGS-84 equatorial radius.
const EarthRadiusKm = 6378.137

// PositionTEME is a propagated state in the TEME frame.
type PositionTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// PositionECEF is a position in the Earth-fixed frame.
type PositionECEF struct {
	X, Y, Z float64 // km
}

// TEMEToECEF rotates a TEME position about the Z axis by the given GMST
// angle (radians): r_ECEF = R3(θ) * r_TEME.
func TEMEToECEF(teme PositionTEME, gmst float64) PositionECEF {
	sinG, cosG := math.Sincos(gmst)
	return PositionECEF{
		X: teme.X*cosG + teme.Y*sinG,
		Y: -teme.X*sinG + teme.Y*cosG,
		Z: teme.Z,
	}
}

// ValidateECEF reports whether pos is finite and lies between just below the
// Earth's surface (6200 km) and beyond GEO (50000 km).
func ValidateECEF(pos PositionECEF) bool {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return false
	}
	if math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return false
	}
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	return mag >= 6200.0 && mag <= 50000.0
}
