// SPDX-License-Identifier: Apache-2.0

package tagpool

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Arena is a fixed-size byte buffer carved into blocks delimited by boundary
// tags. Every block is laid out as [front tag][payload][back tag] and the
// blocks tile the buffer exactly, starting at offset 0.
type Arena struct {
	buf        []byte
	minPayload int // smallest payload a caller may allocate
	used       int // payload bytes held by used blocks
	peak       int // high-water mark of used

	log  Logger
	name string
}

type options struct {
	log  Logger
	name string
}

// Option represents a configuration option for an arena.
type Option func(*options)

// WithLogger routes the arena's diagnostics to l.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithName sets the prefix used in log messages.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Block describes one block of an arena.
type Block struct {
	Offset int  // offset of the front tag
	Size   int  // payload size in bytes
	Used   bool // false for free blocks
}

// Payload returns the offset of the block's first payload byte.
func (b Block) Payload() int {
	return b.Offset + SentinelSize
}

// NewArena creates an arena of capacity bytes whose callers never allocate
// less than minPayload bytes at a time. It fails with ErrOutOfMemory when the
// arena cannot host a single block of minPayload bytes.
func NewArena(capacity, minPayload int, opts ...Option) (*Arena, error) {
	o := options{name: "tagpool"}
	for _, opt := range opts {
		opt(&o)
	}

	if minPayload <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "minimum payload %d must be positive", minPayload)
	}
	if capacity > math.MaxInt32 {
		return nil, errors.Wrapf(ErrInvalidArgument, "capacity %d exceeds %d", capacity, math.MaxInt32)
	}
	if capacity < minPayload+overhead {
		return nil, errors.Wrapf(ErrOutOfMemory, "capacity %d cannot hold a %d byte block", capacity, minPayload+overhead)
	}

	a := &Arena{
		buf:        make([]byte, capacity),
		minPayload: minPayload,
		log:        o.log,
		name:       o.name,
	}
	a.init()
	a.infof("arena of %s for %d byte elements", humanize.IBytes(uint64(capacity)), minPayload)
	a.assertValid()
	return a, nil
}

// init lays a single free block over the whole buffer.
func (a *Arena) init() {
	a.writeBlock(0, tag{size: len(a.buf) - overhead})
	a.used = 0
}

// Alloc reserves size payload bytes from the first free block large enough
// to hold them. A zero size yields the nil handle. So does a request that no
// single free block can satisfy, leaving the arena untouched. A request that
// would not fit even in an empty arena fails with ErrOutOfMemory, and sizes
// below the arena's minimum payload fail with ErrInvalidArgument.
func (a *Arena) Alloc(size int) (Handle, error) {
	if size == 0 {
		return Handle{}, nil
	}
	if size < a.minPayload {
		return Handle{}, errors.Wrapf(ErrInvalidArgument, "size %d below minimum payload %d", size, a.minPayload)
	}
	if size > len(a.buf)-overhead {
		return Handle{}, errors.Wrapf(ErrOutOfMemory, "%d bytes requested, arena holds at most %d", size, len(a.buf)-overhead)
	}

	required := size + overhead
	for off := 0; off < len(a.buf); {
		t, err := a.block(off)
		if err != nil {
			return Handle{}, err
		}
		if !t.used {
			switch {
			case t.size == size:
				a.writeBlock(off, tag{size: size, used: true})
				a.debugf("alloc %d bytes at %d, exact fit", size, off)
				return a.commit(off, size), nil

			case t.size > required:
				a.writeBlock(off, tag{size: size, used: true})
				a.writeBlock(nextOf(off, size), tag{size: t.size - required})
				a.debugf("alloc %d bytes at %d, split %d byte block", size, off, t.size)
				return a.commit(off, size), nil
			}
		}
		off = nextOf(off, t.size)
	}

	if a.log != nil {
		a.warnf("no free block fits %d bytes, %s free", size, humanize.IBytes(uint64(a.free())))
	}
	return Handle{}, nil
}

func (a *Arena) commit(off, size int) Handle {
	a.used += size
	if a.used > a.peak {
		a.peak = a.used
	}
	a.assertValid()
	return Handle{arena: a, off: off + SentinelSize, base: off + SentinelSize}
}

// Free returns the block behind h to the arena and merges it with free
// neighbours. Freeing the nil handle is a no-op. A handle that does not point
// at the payload of a used block of this arena fails with ErrInvalidArgument.
func (a *Arena) Free(h Handle) error {
	if h.IsNil() {
		return nil
	}
	off, t, err := a.usedBlock(h)
	if err != nil {
		return err
	}

	a.used -= t.size
	t.used = false

	// Tags at a merged seam are zeroed; a zero tag never resolves to a
	// used block.
	if off > 0 {
		if prev := a.readTag(off - SentinelSize); !prev.used {
			a.debugf("free %d: merge with %d byte block before", off, prev.size)
			a.writeTag(off-SentinelSize, tag{})
			a.writeTag(off, tag{})
			off -= overhead + prev.size
			t.size += overhead + prev.size
		}
	}
	if next := nextOf(off, t.size); next < len(a.buf) {
		if succ := a.readTag(next); !succ.used {
			a.debugf("free %d: merge with %d byte block after", h.off-SentinelSize, succ.size)
			a.writeTag(next-SentinelSize, tag{})
			a.writeTag(next, tag{})
			t.size += overhead + succ.size
		}
	}
	a.writeBlock(off, t)
	a.debugf("free %d: %d byte block at %d", h.off-SentinelSize, t.size, off)

	a.assertValid()
	return nil
}

// Bytes returns the payload of the used block behind h. The slice aliases
// the arena and is valid until the block is freed.
func (a *Arena) Bytes(h Handle) ([]byte, error) {
	if h.IsNil() {
		return nil, nil
	}
	off, t, err := a.usedBlock(h)
	if err != nil {
		return nil, err
	}
	start := off + SentinelSize
	return a.buf[start : start+t.size : start+t.size], nil
}

// usedBlock resolves h to the front tag offset and tag of a used block.
// Payload offsets are accepted from the first payload byte of the arena up
// to the last offset that still leaves room for a minimum sized payload,
// both inclusive.
func (a *Arena) usedBlock(h Handle) (int, tag, error) {
	if h.arena != a {
		return 0, tag{}, errors.Wrap(ErrInvalidArgument, "handle belongs to another arena")
	}
	first, last := SentinelSize, len(a.buf)-SentinelSize-a.minPayload
	if h.off < first || h.off > last {
		return 0, tag{}, errors.Wrapf(ErrInvalidArgument, "offset %d outside [%d, %d]", h.off, first, last)
	}
	off := h.off - SentinelSize
	t := a.readTag(off)
	if !t.used {
		return 0, tag{}, errors.Wrapf(ErrInvalidArgument, "no used block at offset %d", h.off)
	}
	back := backOf(off, t.size)
	if t.size < a.minPayload || back+SentinelSize > len(a.buf) || a.readTag(back) != t {
		return 0, tag{}, errors.Wrapf(ErrInvalidArgument, "offset %d is not the start of a block", h.off)
	}
	return off, t, nil
}

// blockOf returns the payload offset and size of the used block that h was
// derived from.
func (a *Arena) blockOf(h Handle) (int, int, error) {
	off, t, err := a.usedBlock(Handle{arena: h.arena, off: h.base})
	if err != nil {
		return 0, 0, err
	}
	return off + SentinelSize, t.size, nil
}

// block reads the front tag at off and verifies that its back tag matches.
func (a *Arena) block(off int) (tag, error) {
	if off+overhead > len(a.buf) {
		a.errorf("block at %d overruns arena of %d bytes", off, len(a.buf))
		return tag{}, errors.Wrapf(ErrCorruption, "block at %d overruns arena of %d bytes", off, len(a.buf))
	}
	front := a.sentinel(off)
	t := decodeTag(front)
	back := backOf(off, t.size)
	if t.size < 0 || back+SentinelSize > len(a.buf) {
		a.errorf("block at %d of %d bytes overruns arena", off, t.size)
		return tag{}, errors.Wrapf(ErrCorruption, "block at %d of %d bytes overruns arena of %d bytes", off, t.size, len(a.buf))
	}
	if b := a.sentinel(back); b != front {
		a.errorf("front tag %d at %d, back tag %d at %d", front, off, b, back)
		return tag{}, errors.Wrapf(ErrCorruption, "front tag %d at %d, back tag %d at %d", front, off, b, back)
	}
	return t, nil
}

// Walk calls fn for every block from the start of the arena until fn returns
// false. It fails with ErrCorruption when a tag pair does not match.
func (a *Arena) Walk(fn func(Block) bool) error {
	for off := 0; off < len(a.buf); {
		t, err := a.block(off)
		if err != nil {
			return err
		}
		if !fn(Block{Offset: off, Size: t.size, Used: t.used}) {
			return nil
		}
		off = nextOf(off, t.size)
	}
	return nil
}

// Blocks returns every block of the arena in address order.
func (a *Arena) Blocks() ([]Block, error) {
	var blocks []Block
	err := a.Walk(func(b Block) bool {
		blocks = append(blocks, b)
		return true
	})
	return blocks, err
}

// Check scans the whole arena and verifies that the blocks tile it exactly
// and that every front tag equals its back tag.
func (a *Arena) Check() error {
	return a.Walk(func(Block) bool { return true })
}

// Sentinel returns the raw tag value stored at byte offset off.
func (a *Arena) Sentinel(off int) int32 {
	return a.sentinel(off)
}

// Reset turns the arena back into a single free block. Every handle obtained
// before Reset becomes invalid.
func (a *Arena) Reset() {
	clear(a.buf)
	a.init()
	a.assertValid()
}

// Len returns the number of payload bytes held by used blocks.
func (a *Arena) Len() int {
	return a.used
}

// Cap returns the size of the arena in bytes, tags included.
func (a *Arena) Cap() int {
	return len(a.buf)
}

// Peak returns the largest value Len has reached. It survives Reset.
func (a *Arena) Peak() int {
	return a.peak
}

// free returns the payload bytes available across all free blocks.
func (a *Arena) free() int {
	free := 0
	_ = a.Walk(func(b Block) bool {
		if !b.Used {
			free += b.Size
		}
		return true
	})
	return free
}
