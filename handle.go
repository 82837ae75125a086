// SPDX-License-Identifier: Apache-2.0

package tagpool

// Handle refers to a payload inside an arena. It pairs the owning arena with
// the payload's byte offset. The zero Handle is the nil result returned by
// zero-length and unsatisfiable allocations.
type Handle struct {
	arena *Arena
	off   int
	base  int // payload offset of the block the handle was derived from
}

// IsNil reports whether h is the nil handle.
func (h Handle) IsNil() bool {
	return h.arena == nil
}

// Offset returns the byte offset of the payload within its arena, or -1 for
// the nil handle.
func (h Handle) Offset() int {
	if h.arena == nil {
		return -1
	}
	return h.off
}
