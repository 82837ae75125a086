// SPDX-License-Identifier: Apache-2.0

package tagpool

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Allocator hands out runs of T from a single fixed-size Arena. Elements are
// stored as raw bytes, so T must not contain Go pointers.
type Allocator[T any] struct {
	arena *Arena
	size  int // unsafe.Sizeof(T)
}

// New creates an allocator managing capacity bytes for elements of type T.
// It fails with ErrOutOfMemory if capacity cannot hold one element plus its
// two tags, and with ErrInvalidArgument for zero sized element types.
func New[T any](capacity int, opts ...Option) (*Allocator[T], error) {
	var x T
	size := int(unsafe.Sizeof(x))
	if size == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "zero sized element type")
	}
	a, err := NewArena(capacity, size, opts...)
	if err != nil {
		return nil, err
	}
	return &Allocator[T]{arena: a, size: size}, nil
}

// Allocate reserves room for n contiguous elements and returns a handle to
// the first one. A zero n, or a request no free block can currently satisfy,
// yields the nil handle without error. Requests larger than the whole arena
// fail with ErrOutOfMemory.
func (a *Allocator[T]) Allocate(n int) (Handle, error) {
	if n < 0 {
		return Handle{}, errors.Wrapf(ErrInvalidArgument, "negative count %d", n)
	}
	if n == 0 {
		return Handle{}, nil
	}
	if n > a.arena.Cap()/a.size {
		return Handle{}, errors.Wrapf(ErrOutOfMemory, "%d elements of %d bytes exceed arena of %d bytes", n, a.size, a.arena.Cap())
	}
	return a.arena.Alloc(n * a.size)
}

// Deallocate releases the block that h points to. The element count is not
// consulted; the block's tags record its size.
func (a *Allocator[T]) Deallocate(h Handle, n int) error {
	return a.arena.Free(h)
}

// Element returns a handle to the i-th element counted from h. The result is
// the nil handle when h is nil, no longer refers to a used block, or the
// element would fall outside that block.
func (a *Allocator[T]) Element(h Handle, i int) Handle {
	if h.IsNil() || h.arena != a.arena {
		return Handle{}
	}
	start, size, err := a.arena.blockOf(h)
	if err != nil {
		return Handle{}
	}
	off := h.off + i*a.size
	if off < start || off+a.size > start+size {
		return Handle{}
	}
	return Handle{arena: h.arena, off: off, base: h.base}
}

// Construct stores v in the element slot at h.
func (a *Allocator[T]) Construct(h Handle, v T) error {
	slot, err := a.slot(h)
	if err != nil {
		return err
	}
	copy(slot, unsafe.Slice((*byte)(unsafe.Pointer(&v)), a.size))
	return nil
}

// Load returns the element stored in the slot at h.
func (a *Allocator[T]) Load(h Handle) (T, error) {
	var v T
	slot, err := a.slot(h)
	if err != nil {
		return v, err
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), a.size), slot)
	return v, nil
}

// Destroy zeroes the element slot at h.
func (a *Allocator[T]) Destroy(h Handle) error {
	slot, err := a.slot(h)
	if err != nil {
		return err
	}
	clear(slot)
	return nil
}

// slot returns the bytes of one element at h. A slot always lies inside the
// payload of a used block, so it never overlaps a tag.
func (a *Allocator[T]) slot(h Handle) ([]byte, error) {
	if h.arena != a.arena {
		return nil, errors.Wrap(ErrInvalidArgument, "handle belongs to another arena")
	}
	start, size, err := a.arena.blockOf(h)
	if err != nil {
		return nil, err
	}
	if h.off < start || h.off+a.size > start+size {
		return nil, errors.Wrapf(ErrInvalidArgument, "element at %d outside block at %d", h.off, start)
	}
	return a.arena.buf[h.off : h.off+a.size], nil
}

// Bytes returns the raw payload of the block at h.
func (a *Allocator[T]) Bytes(h Handle) ([]byte, error) {
	return a.arena.Bytes(h)
}

// Count returns the number of elements in the block at h.
func (a *Allocator[T]) Count(h Handle) (int, error) {
	b, err := a.arena.Bytes(h)
	if err != nil {
		return 0, err
	}
	return len(b) / a.size, nil
}

// Equal reports whether a and o are interchangeable: allocators of the same
// element type and capacity compare equal even though each owns its own arena.
func (a *Allocator[T]) Equal(o *Allocator[T]) bool {
	return a.arena.Cap() == o.arena.Cap()
}

// Fragmented reports whether n elements fit in the total free space but not
// in any single free block.
func (a *Allocator[T]) Fragmented(n int) bool {
	if n <= 0 || n > a.arena.Cap()/a.size {
		return false
	}
	return a.arena.Fragmented(n * a.size)
}

// ElemSize returns the size of T in bytes.
func (a *Allocator[T]) ElemSize() int {
	return a.size
}

// Arena returns the arena backing a.
func (a *Allocator[T]) Arena() *Arena {
	return a.arena
}

// Len returns the number of payload bytes currently allocated.
func (a *Allocator[T]) Len() int {
	return a.arena.Len()
}

// Cap returns the arena size in bytes.
func (a *Allocator[T]) Cap() int {
	return a.arena.Cap()
}

// Peak returns the high-water mark of allocated payload bytes.
func (a *Allocator[T]) Peak() int {
	return a.arena.Peak()
}

// Reset frees every block at once.
func (a *Allocator[T]) Reset() {
	a.arena.Reset()
}
