// Package instance holds the fixed-capacity per-instance transform array the
// renderer draws in a single instanced call.
//
// The frame goroutine writes slots and flushes once per pass; the renderer
// copies the flushed prefix out with Upload. Both run on the same goroutine,
// so Buffer carries no locks.
package instance

import (
	"fmt"

	"github.com/star/satview/internal/transform"
)

// Buffer is a capacity-C array of world transforms with a dirty flag.
// Slots at or beyond the flushed count are never reported as visible.
type Buffer struct {
	slots   []transform.WorldTransform
	count   int
	dirty   bool
	flushes uint64
}

// New allocates a buffer with capacity slots, each initialized to identity.
// The capacity is fixed for the buffer's lifetime.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic(fmt.Sprintf("instance: invalid capacity %d", capacity))
	}
	slots := make([]transform.WorldTransform, capacity)
	for i := range slots {
		slots[i] = transform.Identity()
	}
	return &Buffer{slots: slots}
}

// Capacity returns the number of physical slots.
func (b *Buffer) Capacity() int {
	return len(b.slots)
}

// Write stores t in slot. A slot outside [0, Capacity) means the active set
// outgrew the buffer, which ingestion truncation rules out; Write panics.
func (b *Buffer) Write(slot int, t *transform.WorldTransform) {
	if slot < 0 || slot >= len(b.slots) {
		panic(fmt.Sprintf("instance: slot index %d out of range [0, %d)", slot, len(b.slots)))
	}
	b.slots[slot] = *t
}

// Flush marks the buffer dirty after a full pass and records how many
// leading slots are logically present. Call it once per frame.
func (b *Buffer) Flush(count int) {
	if count < 0 || count > len(b.slots) {
		panic(fmt.Sprintf("instance: flush count %d out of range [0, %d]", count, len(b.slots)))
	}
	b.count = count
	b.dirty = true
	b.flushes++
}

// Dirty reports whether a flush has happened since the last Upload.
func (b *Buffer) Dirty() bool {
	return b.dirty
}

// Count returns the logical instance count recorded by the last Flush.
func (b *Buffer) Count() int {
	return b.count
}

// Flushes returns the total number of Flush calls.
func (b *Buffer) Flushes() uint64 {
	return b.flushes
}

// Slot returns a copy of slot i.
func (b *Buffer) Slot(i int) transform.WorldTransform {
	return b.slots[i]
}

// Upload copies the visible prefix into dst if the buffer is dirty and clears
// the flag. It returns the number of transforms copied and whether an upload
// took place. dst must have room for Capacity transforms.
func (b *Buffer) Upload(dst []transform.WorldTransform) (int, bool) {
	if !b.dirty {
		return 0, false
	}
	n := copy(dst, b.slots[:b.count])
	b.dirty = false
	return n, true
}
