package propagation

import (
	"context"
	"log/slog"
	"time"

	"github.com/star/satview/internal/transform"
)

// Stage runs the propagation step of a frame pass. It is owned by the frame
// goroutine and is not safe for concurrent use.
type Stage struct {
	logger *slog.Logger

	unavailable int // this pass
	logged      bool
}

// NewStage creates a propagation stage.
func NewStage(logger *slog.Logger) *Stage {
	return &Stage{logger: logger}
}

// Begin resets the per-pass counters.
func (s *Stage) Begin() {
	s.unavailable = 0
	s.logged = false
}

// Propagate returns the position of m at the given instant. ok is false when
// the model cannot be resolved at that instant; the caller must then leave the
// object's instance slot untouched for this frame.
func (s *Stage) Propagate(m Model, at time.Time) (pos transform.PositionTEME, ok bool) {
	if m == nil {
		s.unavailable++
		return transform.PositionTEME{}, false
	}

	pos, err := m.Propagate(at)
	if err != nil {
		s.unavailable++
		// One line per pass; thousands of decayed objects would flood the log at 60 fps.
		if !s.logged && s.logger.Enabled(context.Background(), slog.LevelDebug) {
			s.logged = true
			s.logger.Debug("propagation unavailable",
				"component", "propagation",
				"at", at.UTC().Format(time.RFC3339),
				"error", err,
			)
		}
		return transform.PositionTEME{}, false
	}
	return pos, true
}

// Unavailable returns how many objects could not be propagated since Begin.
func (s *Stage) Unavailable() int {
	return s.unavailable
}
