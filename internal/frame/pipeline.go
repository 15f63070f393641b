// Package frame runs the per-frame pass: propagate every object in the
// current active set, place it in world space and write its instance slot.
package frame

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/star/satview/internal/elements"
	"github.com/star/satview/internal/instance"
	"github.com/star/satview/internal/metrics"
	"github.com/star/satview/internal/propagation"
	"github.com/star/satview/internal/transform"
)

// Stats summarizes one pass.
type Stats struct {
	At          time.Time     `json:"at"`
	Generation  uint64        `json:"generation"`
	Objects     int           `json:"objects"`
	Written     int           `json:"written"`
	Unavailable int           `json:"unavailable"`
	Duration    time.Duration `json:"duration_ns"`
}

// Config controls the pass.
type Config struct {
	BodyRadiusKm float64 // default transform.EarthRadiusKm
}

// Pipeline owns the propagation stage, the scratch transform and the instance
// buffer. Pass must be called from a single goroutine (the frame loop); Last
// may be called from any goroutine.
type Pipeline struct {
	store  *elements.Store
	stage  *propagation.Stage
	buffer *instance.Buffer
	radius float64
	logger *slog.Logger

	// Frame rotation angle; replaceable in tests.
	angle func(time.Time) float64

	scratch    transform.WorldTransform
	generation uint64
	last       atomic.Pointer[Stats]
}

// NewPipeline creates a pipeline reading from store and writing into buffer.
func NewPipeline(store *elements.Store, buffer *instance.Buffer, config Config, logger *slog.Logger) *Pipeline {
	if config.BodyRadiusKm <= 0 {
		config.BodyRadiusKm = transform.EarthRadiusKm
	}
	return &Pipeline{
		store:  store,
		stage:  propagation.NewStage(logger),
		buffer: buffer,
		radius: config.BodyRadiusKm,
		logger: logger,
		angle:  transform.GMST,
	}
}

// Buffer returns the instance buffer the pipeline writes.
func (p *Pipeline) Buffer() *instance.Buffer {
	return p.buffer
}

// Pass runs one frame at instant at. The active set is loaded exactly once;
// a swap published while the pass runs takes effect on the next pass.
// Objects that cannot be propagated, or whose Earth-fixed position is
// non-finite or out of orbital range, keep last frame's transform. The buffer
// is flushed exactly once, with the snapshot's length as the visible count.
func (p *Pipeline) Pass(at time.Time) Stats {
	start := time.Now()
	snap := p.store.Get()

	if gen := generationOf(snap); gen != p.generation {
		p.logger.Info("frame pass switched active set",
			"component", "frame",
			"old_generation", p.generation,
			"new_generation", gen,
			"objects", snap.Len(),
		)
		p.generation = gen
	}

	var written, rejected int
	p.stage.Begin()
	if snap != nil {
		angle := p.angle(at)
		for i := range snap.Objects {
			pos, ok := p.stage.Propagate(snap.Objects[i].Model, at)
			if !ok {
				continue
			}
			ecef := transform.TEMEToECEF(pos, angle)
			if !transform.ValidateECEF(ecef) {
				rejected++
				continue
			}
			transform.PlaceECEF(&p.scratch, ecef, p.radius)
			p.buffer.Write(i, &p.scratch)
			written++
		}
	}
	p.buffer.Flush(snap.Len())

	stats := Stats{
		At:          at,
		Generation:  p.generation,
		Objects:     snap.Len(),
		Written:     written,
		Unavailable: p.stage.Unavailable() + rejected,
		Duration:    time.Since(start),
	}
	p.last.Store(&stats)
	metrics.RecordFramePass(stats.Duration, stats.Unavailable)

	if p.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.logger.Debug("frame pass complete",
			"component", "frame",
			"objects", stats.Objects,
			"written", stats.Written,
			"unavailable", stats.Unavailable,
			"duration_us", stats.Duration.Microseconds(),
		)
	}
	return stats
}

// Last returns the stats of the most recent pass, or nil before the first.
func (p *Pipeline) Last() *Stats {
	return p.last.Load()
}

func generationOf(set *elements.ActiveSet) uint64 {
	if set == nil {
		return 0
	}
	return set.Generation
}
