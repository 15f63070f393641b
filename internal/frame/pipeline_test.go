package frame

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/star/satview/internal/elements"
	"github.com/star/satview/internal/instance"
	"github.com/star/satview/internal/propagation"
	"github.com/star/satview/internal/transform"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var frameTime = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

// fakeModel returns a fixed position, or ErrUnavailable when unavailable is
// set. onPropagate runs before the result is returned.
type fakeModel struct {
	pos         transform.PositionTEME
	unavailable bool
	onPropagate func()
}

func (m *fakeModel) Propagate(at time.Time) (transform.PositionTEME, error) {
	if m.onPropagate != nil {
		m.onPropagate()
	}
	if m.unavailable {
		return transform.PositionTEME{}, propagation.ErrUnavailable
	}
	return m.pos, nil
}

// radii builds models at x = r * EarthRadiusKm for each r.
func radii(rs ...float64) ([]elements.TrackedObject, []*fakeModel) {
	objs := make([]elements.TrackedObject, len(rs))
	models := make([]*fakeModel, len(rs))
	for i, r := range rs {
		models[i] = &fakeModel{pos: transform.PositionTEME{X: r * transform.EarthRadiusKm}}
		objs[i] = elements.TrackedObject{Name: "obj", Model: models[i]}
	}
	return objs, models
}

func newPipeline(capacity int) (*Pipeline, *elements.Store) {
	store := elements.NewStore(capacity)
	p := NewPipeline(store, instance.New(capacity), Config{}, testLogger())
	p.angle = func(time.Time) float64 { return 0 }
	return p, store
}

func slotX(p *Pipeline, i int) float32 {
	x, _, _ := p.Buffer().Slot(i).Translation()
	return x
}

func TestPassWritesEverySlot(t *testing.T) {
	p, store := newPipeline(5)
	objs, _ := radii(1.1, 1.2, 1.3)
	store.Swap(&elements.ActiveSet{Objects: objs})

	stats := p.Pass(frameTime)

	if stats.Objects != 3 || stats.Written != 3 || stats.Unavailable != 0 {
		t.Errorf("stats = %+v, want 3 objects, 3 written", stats)
	}
	for i, want := range []float32{1.1, 1.2, 1.3} {
		if got := slotX(p, i); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("slot %d x = %v, want %v", i, got, want)
		}
	}
	if p.Buffer().Count() != 3 || !p.Buffer().Dirty() {
		t.Errorf("buffer count=%d dirty=%v, want 3/true", p.Buffer().Count(), p.Buffer().Dirty())
	}
	// Slots past the set are untouched.
	if p.Buffer().Slot(3) != transform.Identity() {
		t.Error("slot 3 was written")
	}
}

// TestPassUnavailableLeavesSlotUnchanged forces object 1 unavailable on the
// second frame and compares its slot before and after.
func TestPassUnavailableLeavesSlotUnchanged(t *testing.T) {
	p, store := newPipeline(3)
	objs, models := radii(1.1, 1.2, 1.3)
	store.Swap(&elements.ActiveSet{Objects: objs})
	p.Pass(frameTime)

	before := p.Buffer().Slot(1)

	for _, m := range models {
		m.pos.X *= 2
	}
	models[1].unavailable = true
	stats := p.Pass(frameTime.Add(time.Second))

	if stats.Unavailable != 1 || stats.Written != 2 {
		t.Errorf("stats = %+v, want 1 unavailable, 2 written", stats)
	}
	if after := p.Buffer().Slot(1); after != before {
		t.Errorf("slot 1 changed: before %v, after %v", before, after)
	}
	if got := slotX(p, 0); math.Abs(float64(got-2.2)) > 1e-6 {
		t.Errorf("slot 0 x = %v, want 2.2", got)
	}
	if got := slotX(p, 2); math.Abs(float64(got-2.6)) > 1e-6 {
		t.Errorf("slot 2 x = %v, want 2.6", got)
	}
	// The object still counts as present.
	if p.Buffer().Count() != 3 {
		t.Errorf("count = %d, want 3", p.Buffer().Count())
	}
}

// TestPassRejectsImplausibleEarthFixedPosition feeds positions a model
// returned without error but that are inside the body, beyond range or NaN.
func TestPassRejectsImplausibleEarthFixedPosition(t *testing.T) {
	tests := []struct {
		name string
		pos  transform.PositionTEME
	}{
		{"below surface", transform.PositionTEME{X: 0.5 * transform.EarthRadiusKm}},
		{"beyond range", transform.PositionTEME{X: 60000}},
		{"NaN", transform.PositionTEME{X: math.NaN(), Y: 7000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store := newPipeline(2)
			objs, models := radii(1.1, 1.2)
			store.Swap(&elements.ActiveSet{Objects: objs})
			p.Pass(frameTime)
			before := p.Buffer().Slot(1)

			models[1].pos = tt.pos
			stats := p.Pass(frameTime.Add(time.Second))

			if stats.Unavailable != 1 || stats.Written != 1 {
				t.Errorf("stats = %+v, want 1 unavailable, 1 written", stats)
			}
			if after := p.Buffer().Slot(1); after != before {
				t.Errorf("slot 1 changed: before %v, after %v", before, after)
			}
		})
	}
}

func TestPassNilModelIsUnavailable(t *testing.T) {
	p, store := newPipeline(2)
	store.Swap(&elements.ActiveSet{Objects: []elements.TrackedObject{{Name: "nil"}}})
	if stats := p.Pass(frameTime); stats.Unavailable != 1 || stats.Written != 0 {
		t.Errorf("stats = %+v, want 1 unavailable", stats)
	}
}

// TestPassFlushesOncePerFrame asserts flush count equals frames rendered,
// regardless of set size (including no set at all).
func TestPassFlushesOncePerFrame(t *testing.T) {
	p, store := newPipeline(64)

	frames := 0
	p.Pass(frameTime)
	frames++

	for _, n := range []int{1, 10, 64} {
		rs := make([]float64, n)
		for i := range rs {
			rs[i] = 1.5
		}
		objs, _ := radii(rs...)
		store.Swap(&elements.ActiveSet{Objects: objs})
		for i := 0; i < 5; i++ {
			p.Pass(frameTime.Add(time.Duration(frames) * time.Second))
			frames++
		}
	}

	if got := p.Buffer().Flushes(); got != uint64(frames) {
		t.Errorf("Flushes() = %d, want %d", got, frames)
	}
}

// TestPassConsistentAcrossSwap publishes a new set between two writes of a
// pass and checks the pass completes against the set it started with.
func TestPassConsistentAcrossSwap(t *testing.T) {
	p, store := newPipeline(4)
	objs, models := radii(1.1, 1.2, 1.3)
	store.Swap(&elements.ActiveSet{Objects: objs})

	replacement, _ := radii(3.0)
	swapped := false
	models[0].onPropagate = func() {
		if !swapped {
			swapped = true
			store.Swap(&elements.ActiveSet{Objects: replacement})
		}
	}

	stats := p.Pass(frameTime)
	if !swapped {
		t.Fatal("swap hook did not run")
	}
	if stats.Generation != 1 || stats.Objects != 3 || stats.Written != 3 {
		t.Errorf("mid-pass stats = %+v, want generation 1 with 3 objects written", stats)
	}
	if p.Buffer().Count() != 3 {
		t.Errorf("count = %d, want 3", p.Buffer().Count())
	}
	for i, want := range []float32{1.1, 1.2, 1.3} {
		if got := slotX(p, i); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("slot %d x = %v, want %v (old set)", i, got, want)
		}
	}

	stats = p.Pass(frameTime.Add(time.Second))
	if stats.Generation != 2 || stats.Objects != 1 {
		t.Errorf("next pass stats = %+v, want generation 2 with 1 object", stats)
	}
	if got := slotX(p, 0); math.Abs(float64(got-3.0)) > 1e-6 {
		t.Errorf("slot 0 x = %v, want 3.0", got)
	}
}

func TestPassEmptyStore(t *testing.T) {
	p, _ := newPipeline(2)
	if p.Last() != nil {
		t.Fatal("Last() should be nil before the first pass")
	}
	stats := p.Pass(frameTime)
	if stats.Objects != 0 || stats.Generation != 0 {
		t.Errorf("stats = %+v, want empty", stats)
	}
	if p.Buffer().Count() != 0 || p.Buffer().Flushes() != 1 {
		t.Errorf("count=%d flushes=%d, want 0/1", p.Buffer().Count(), p.Buffer().Flushes())
	}
	if last := p.Last(); last == nil || last.At != frameTime {
		t.Errorf("Last() = %+v", last)
	}
}

// TestPassRotatesByFrameAngle checks the pass applies the frame's rotation
// angle to every object.
func TestPassRotatesByFrameAngle(t *testing.T) {
	p, store := newPipeline(1)
	p.angle = func(time.Time) float64 { return math.Pi / 2 }
	objs, _ := radii(2)
	store.Swap(&elements.ActiveSet{Objects: objs})
	p.Pass(frameTime)

	x, y, _ := p.Buffer().Slot(0).Translation()
	if math.Abs(float64(x)) > 1e-6 || math.Abs(float64(y)+2) > 1e-6 {
		t.Errorf("got (%v, %v), want (0, -2)", x, y)
	}
}

func TestPassWithSGP4(t *testing.T) {
	model, err := propagation.ParseSGP4(issLine1, issLine2)
	if err != nil {
		t.Fatalf("ParseSGP4: %v", err)
	}
	store := elements.NewStore(1)
	store.Swap(&elements.ActiveSet{Objects: []elements.TrackedObject{{Name: "ISS", Model: model}}})
	p := NewPipeline(store, instance.New(1), Config{}, testLogger())

	stats := p.Pass(frameTime)
	if stats.Written != 1 {
		t.Fatalf("stats = %+v, want 1 written", stats)
	}

	x, y, z := p.Buffer().Slot(0).Translation()
	r := math.Sqrt(float64(x*x + y*y + z*z))
	// ISS altitude ~420 km: 6790 / 6378 ≈ 1.065 body radii.
	if r < 1.03 || r > 1.10 {
		t.Errorf("ISS world radius = %.4f, want ~1.065", r)
	}
}
