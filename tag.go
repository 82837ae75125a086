// SPDX-License-Identifier: Apache-2.0

package tagpool

import (
	"encoding/binary"
)

// SentinelSize is the width in bytes of one boundary tag.
const SentinelSize = 4

// overhead is the number of tag bytes surrounding every payload.
const overhead = 2 * SentinelSize

// tag is the decoded form of a boundary tag. On the wire it is a signed
// little endian int32 whose magnitude is the payload size; negative marks
// the block as used.
type tag struct {
	size int
	used bool
}

func (t tag) encode() int32 {
	if t.used {
		return -int32(t.size)
	}
	return int32(t.size)
}

func decodeTag(v int32) tag {
	if v < 0 {
		return tag{size: int(-v), used: true}
	}
	return tag{size: int(v)}
}

func (a *Arena) readTag(off int) tag {
	return decodeTag(a.sentinel(off))
}

func (a *Arena) writeTag(off int, t tag) {
	binary.LittleEndian.PutUint32(a.buf[off:off+SentinelSize], uint32(t.encode()))
}

// writeBlock writes the same tag at both ends of the block starting at off.
func (a *Arena) writeBlock(off int, t tag) {
	a.writeTag(off, t)
	a.writeTag(backOf(off, t.size), t)
}

func (a *Arena) sentinel(off int) int32 {
	return int32(binary.LittleEndian.Uint32(a.buf[off : off+SentinelSize]))
}

// backOf returns the offset of the back tag of the block whose front tag is
// at off.
func backOf(off, size int) int {
	return off + SentinelSize + size
}

// nextOf returns the offset of the block following the one at off.
func nextOf(off, size int) int {
	return off + overhead + size
}
