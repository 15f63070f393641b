// Package elements holds the authoritative set of tracked objects.
//
// An ActiveSet is built off to the side by ingestion and published with a
// single atomic pointer swap. Frame passes load the pointer once and iterate
// that snapshot; a concurrent swap never becomes visible halfway through a
// pass, and no ActiveSet is mutated after it has been published.
package elements

import (
	"time"

	"github.com/star/satview/internal/propagation"
)

// TrackedObject is one object the pipeline propagates and draws.
type TrackedObject struct {
	Name    string
	NORADID int
	Epoch   time.Time
	Model   propagation.Model
}

// EpochRange is the minimum and maximum element epoch in a set.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// ActiveSet is one immutable generation of tracked objects. Objects[i] owns
// instance slot i for as long as this generation is current.
type ActiveSet struct {
	Generation uint64
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Objects    []TrackedObject
}

// Len returns the number of objects, treating a nil set as empty.
func (s *ActiveSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Objects)
}

// ComputeEpochRange returns the epoch range of objs, skipping objects whose
// epoch could not be read.
func ComputeEpochRange(objs []TrackedObject) EpochRange {
	var r EpochRange
	for _, o := range objs {
		if o.Epoch.IsZero() {
			continue
		}
		if r.Min.IsZero() || o.Epoch.Before(r.Min) {
			r.Min = o.Epoch
		}
		if r.Max.IsZero() || o.Epoch.After(r.Max) {
			r.Max = o.Epoch
		}
	}
	return r
}
