package transform

import "time"

// WorldTransform is a column-major 4x4 placement matrix. Only the
// translation column (elements 12, 13, 14) is populated; the rotation and
// scale block stays identity.
type WorldTransform [16]float32

// Identity returns the identity transform.
func Identity() WorldTransform {
	return WorldTransform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns the world-space position encoded in t.
func (t WorldTransform) Translation() (x, y, z float32) {
	return t[12], t[13], t[14]
}

// SetTranslation resets t to identity and stores the given translation.
func (t *WorldTransform) SetTranslation(x, y, z float32) {
	*t = WorldTransform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// ToWorld places a TEME position in world space at time at. The sidereal
// angle is derived from at on every call. radiusKm is the reference body's
// radius; a point on its surface maps to distance 1.0 from the origin.
func ToWorld(pos PositionTEME, at time.Time, radiusKm float64) WorldTransform {
	var t WorldTransform
	ToWorldWithAngle(&t, pos, GMST(at), radiusKm)
	return t
}

// ToWorldWithAngle writes the world transform for pos into dst using a
// precomputed frame rotation angle. dst is overwritten completely, so a
// single scratch value can be reused across calls.
func ToWorldWithAngle(dst *WorldTransform, pos PositionTEME, angle, radiusKm float64) {
	PlaceECEF(dst, TEMEToECEF(pos, angle), radiusKm)
}

// PlaceECEF writes the world transform for an Earth-fixed position into dst.
func PlaceECEF(dst *WorldTransform, ecef PositionECEF, radiusKm float64) {
	dst.SetTranslation(
		float32(ecef.X/radiusKm),
		float32(ecef.Y/radiusKm),
		float32(ecef.Z/radiusKm),
	)
}
