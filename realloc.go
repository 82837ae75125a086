// SPDX-License-Identifier: Apache-2.0

package tagpool

const growThreshold = 256

// Reallocate moves the block at h into a fresh block of n elements, copying
// as many leading bytes as both blocks hold, and frees the old block.
// A nil h behaves like Allocate and a zero n like Deallocate. When no free
// block can host n elements the old block is left in place and the nil
// handle is returned without error.
func (a *Allocator[T]) Reallocate(h Handle, n int) (Handle, error) {
	if h.IsNil() {
		return a.Allocate(n)
	}
	old, err := a.arena.Bytes(h)
	if err != nil {
		return Handle{}, err
	}
	if n == 0 {
		return Handle{}, a.Deallocate(h, 0)
	}

	nh, err := a.Allocate(n)
	if err != nil || nh.IsNil() {
		return Handle{}, err
	}
	dst, err := a.arena.Bytes(nh)
	if err != nil {
		return Handle{}, err
	}
	copy(dst, old)
	if err := a.arena.Free(h); err != nil {
		return Handle{}, err
	}
	return nh, nil
}

// growCap returns the capacity a block of cur elements grows to in order to
// hold need elements: doubling while small, then by a quarter.
func growCap(cur, need int) int {
	if cur <= 0 {
		return need
	}
	for need > cur {
		if cur < growThreshold {
			cur *= 2
		} else {
			cur += cur / 4
		}
	}
	return cur
}
