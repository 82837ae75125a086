// SPDX-License-Identifier: Apache-2.0

package tagpool

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats is a snapshot of an arena's block layout.
type Stats struct {
	Capacity    int // arena size in bytes
	Used        int // payload bytes in used blocks
	Free        int // payload bytes in free blocks
	Overhead    int // bytes taken by tags
	Blocks      int
	UsedBlocks  int
	FreeBlocks  int
	LargestFree int // payload size of the largest free block
	Peak        int // high-water mark of Used
}

// Utilization returns the ratio of used payload bytes to capacity (0.0 to 1.0).
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Used) / float64(s.Capacity)
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"capacity %s, used %s in %s blocks, free %s in %s blocks (largest %s), overhead %s, peak %s",
		humanize.IBytes(uint64(s.Capacity)),
		humanize.IBytes(uint64(s.Used)), humanize.Comma(int64(s.UsedBlocks)),
		humanize.IBytes(uint64(s.Free)), humanize.Comma(int64(s.FreeBlocks)),
		humanize.IBytes(uint64(s.LargestFree)),
		humanize.IBytes(uint64(s.Overhead)),
		humanize.IBytes(uint64(s.Peak)),
	)
}

// Stats walks the arena and summarizes its blocks.
func (a *Arena) Stats() (Stats, error) {
	s := Stats{Capacity: len(a.buf), Peak: a.peak}
	err := a.Walk(func(b Block) bool {
		s.Blocks++
		s.Overhead += overhead
		if b.Used {
			s.UsedBlocks++
			s.Used += b.Size
			return true
		}
		s.FreeBlocks++
		s.Free += b.Size
		if b.Size > s.LargestFree {
			s.LargestFree = b.Size
		}
		return true
	})
	return s, err
}

// Fragmented reports whether the free blocks together hold at least size
// bytes while none of them can satisfy an allocation of size bytes.
func (a *Arena) Fragmented(size int) bool {
	if size <= 0 {
		return false
	}
	free, fits := 0, false
	err := a.Walk(func(b Block) bool {
		if b.Used {
			return true
		}
		free += b.Size
		if b.Size == size || b.Size > size+overhead {
			fits = true
			return false
		}
		return true
	})
	return err == nil && !fits && free >= size
}
