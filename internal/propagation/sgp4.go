package propagation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/star/satview/internal/transform"
)

// SGP4 backend: github.com/joshuaferrara/go-satellite.
//
// satellite.Propagate takes the Satellite by value, so SGP4 error codes raised
// during propagation never reach the caller. Failures are detected from the
// output instead: NaN/Inf or an implausible orbital radius.

// SGP4Model is a Model backed by an initialized SGP4 element set.
type SGP4Model struct {
	sat satellite.Satellite
}

// ParseSGP4 is the default Parser. Lines are format-checked field by field
// before they reach go-satellite, which calls log.Fatal on any field it
// cannot parse.
func ParseSGP4(line1, line2 string) (Model, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrElementParse, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("%w: sgp4 init code=%d %s", ErrElementParse, sat.Error, sat.ErrorStr)
	}
	return &SGP4Model{sat: sat}, nil
}

func validateTLELines(line1, line2 string) error {
	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return validateFields(line1, line2)
}

// squeeze drops up to two spaces, matching how go-satellite prepares signed
// fixed-width fields.
func squeeze(s string) string {
	return strings.Replace(s, " ", "", 2)
}

// validateFields parses every fixed-width field go-satellite reads, with the
// same slicing, so TLEToSat never sees a value it cannot parse.
func validateFields(line1, line2 string) error {
	ints := []struct {
		name, value string
	}{
		{"satellite number", strings.TrimSpace(line1[2:7])},
		{"epoch year", line1[18:20]},
	}
	for _, f := range ints {
		if _, err := strconv.ParseInt(f.value, 10, 0); err != nil {
			return fmt.Errorf("line1 %s %q: not an integer", f.name, f.value)
		}
	}

	floats := []struct {
		line, name, value string
	}{
		{"line1", "epoch day", line1[20:32]},
		{"line1", "mean motion derivative", squeeze(line1[33:43])},
		{"line1", "mean motion second derivative", squeeze(line1[44:45] + "." + line1[45:50] + "e" + line1[50:52])},
		{"line1", "bstar", squeeze(line1[53:54] + "." + line1[54:59] + "e" + line1[59:61])},
		{"line2", "inclination", squeeze(line2[8:16])},
		{"line2", "right ascension", squeeze(line2[17:25])},
		{"line2", "eccentricity", "." + line2[26:33]},
		{"line2", "argument of perigee", squeeze(line2[34:42])},
		{"line2", "mean anomaly", squeeze(line2[43:51])},
		{"line2", "mean motion", squeeze(line2[52:63])},
	}
	for _, f := range floats {
		if _, err := strconv.ParseFloat(f.value, 64); err != nil {
			return fmt.Errorf("%s %s %q: not a number", f.line, f.name, f.value)
		}
	}
	return nil
}

// Propagate returns the TEME position and velocity at the given instant.
//
// go-satellite resolves time to whole seconds. The state is computed at the
// start of the second and advanced linearly along the velocity for the
// remainder, which keeps motion smooth at frame rate (LEO moves ~7.5 km/s,
// curvature error over one second is a few metres).
func (m *SGP4Model) Propagate(at time.Time) (transform.PositionTEME, error) {
	at = at.UTC()
	base := at.Truncate(time.Second)
	frac := at.Sub(base).Seconds()

	pos, vel := satellite.Propagate(m.sat,
		base.Year(), int(base.Month()), base.Day(),
		base.Hour(), base.Minute(), base.Second())

	if !finite(pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z) {
		return transform.PositionTEME{}, fmt.Errorf("%w: output is NaN/Inf", ErrUnavailable)
	}

	out := transform.PositionTEME{
		X:  pos.X + vel.X*frac,
		Y:  pos.Y + vel.Y*frac,
		Z:  pos.Z + vel.Z*frac,
		VX: vel.X,
		VY: vel.Y,
		VZ: vel.Z,
	}

	// Between sub-surface (decayed) and well beyond GEO.
	mag := math.Sqrt(out.X*out.X + out.Y*out.Y + out.Z*out.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.PositionTEME{}, fmt.Errorf("%w: unreasonable position magnitude %.1f km", ErrUnavailable, mag)
	}

	return out, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
