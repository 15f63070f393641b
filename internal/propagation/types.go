package propagation

import (
	"errors"
	"time"

	"github.com/star/satview/internal/transform"
)

var (
	// ErrElementParse marks an element set that could not be turned into a
	// Model. Ingestion drops the object and continues.
	ErrElementParse = errors.New("element parse failed")

	// ErrUnavailable marks an instant at which a Model cannot produce a
	// position (decayed orbit, degenerate elements, numeric blow-up).
	ErrUnavailable = errors.New("propagation unavailable")
)

// Model is the propagatable state of a single tracked object. It is built
// once from the two element lines and is immutable afterwards, so a Model
// can be shared between goroutines.
type Model interface {
	Propagate(at time.Time) (transform.PositionTEME, error)
}

// Parser builds a Model from the two element lines of a TLE.
type Parser func(line1, line2 string) (Model, error)
