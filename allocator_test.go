// SPDX-License-Identifier: Apache-2.0

package tagpool

import (
	"math/rand"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID     int64
	Score  float64
	Count  uint32
	Active bool
}

func TestAllocatorConstructLoadDestroy(t *testing.T) {
	a, err := New[record](1024)
	require.NoError(t, err)
	require.Equal(t, 24, a.ElemSize())

	h, err := a.Allocate(10)
	require.NoError(t, err)

	want := make([]record, 10)
	for i := range want {
		require.NoError(t, faker.FakeData(&want[i]))
		require.NoError(t, a.Construct(a.Element(h, i), want[i]))
	}
	for i := range want {
		got, err := a.Load(a.Element(h, i))
		require.NoError(t, err)
		require.Equal(t, want[i], got)
	}

	// elements never touch the tags
	require.NoError(t, a.Arena().Check())
	require.Equal(t, int32(-240), a.Arena().Sentinel(0))
	require.Equal(t, int32(-240), a.Arena().Sentinel(244))

	require.NoError(t, a.Destroy(a.Element(h, 3)))
	got, err := a.Load(a.Element(h, 3))
	require.NoError(t, err)
	require.Equal(t, record{}, got)

	n, err := a.Count(h)
	require.NoError(t, err)
	require.Equal(t, 10, n)

	require.NoError(t, a.Deallocate(h, 10))
	require.NoError(t, a.Arena().Check())
}

func TestAllocatorConstructInvalidSlot(t *testing.T) {
	a, err := New[int64](64)
	require.NoError(t, err)
	other, err := New[int64](64)
	require.NoError(t, err)

	h, err := a.Allocate(2)
	require.NoError(t, err)
	oh, err := other.Allocate(1)
	require.NoError(t, err)
	before := blocks(t, a.Arena())

	for _, bad := range []Handle{
		{},
		{arena: a.Arena(), off: 0},
		{arena: a.Arena(), off: 28, base: 28}, // free block
		{arena: a.Arena(), off: 20, base: 4},  // runs into the back tag
		a.Element(h, 2),
		a.Element(h, -1),
		oh,
	} {
		require.ErrorIs(t, a.Construct(bad, 7), ErrInvalidArgument)
		require.ErrorIs(t, a.Destroy(bad), ErrInvalidArgument)
		_, err := a.Load(bad)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	require.Equal(t, before, blocks(t, a.Arena()))

	// last slot before the block's back tag
	require.NoError(t, a.Construct(a.Element(h, 1), -1))
	require.Equal(t, before, blocks(t, a.Arena()))
}

func TestAllocatorElementBounds(t *testing.T) {
	a, err := New[int32](100)
	require.NoError(t, err)

	h, err := a.Allocate(10)
	require.NoError(t, err)

	require.Equal(t, 40, a.Element(h, 9).Offset())
	require.True(t, a.Element(h, 10).IsNil())
	require.True(t, a.Element(h, 11).IsNil())
	require.True(t, a.Element(h, -1).IsNil())

	// relative to an element handle
	require.Equal(t, 4, a.Element(a.Element(h, 5), -5).Offset())
	require.True(t, a.Element(a.Element(h, 9), 1).IsNil())

	require.ErrorIs(t, a.Construct(a.Element(h, 10), 7), ErrInvalidArgument)
	require.Equal(t, int32(-40), a.Arena().Sentinel(44))
	require.NoError(t, a.Arena().Check())

	// element handles die with their block
	e := a.Element(h, 3)
	require.NoError(t, a.Deallocate(h, 10))
	require.ErrorIs(t, a.Construct(e, 7), ErrInvalidArgument)
	require.True(t, a.Element(h, 0).IsNil())
	require.NoError(t, a.Arena().Check())
}

func TestAllocatorBytes(t *testing.T) {
	a, err := New[uint16](128)
	require.NoError(t, err)

	h, err := a.Allocate(6)
	require.NoError(t, err)
	b, err := a.Bytes(h)
	require.NoError(t, err)
	require.Len(t, b, 12)
	require.Equal(t, 12, cap(b))

	require.NoError(t, a.Construct(a.Element(h, 0), 0x0201))
	require.Equal(t, []byte{0x01, 0x02}, b[:2])

	b, err = a.Bytes(Handle{})
	require.NoError(t, err)
	require.Nil(t, b)

	_, err = a.Bytes(a.Element(h, 1))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAllocatorEqual(t *testing.T) {
	a, err := New[int32](100)
	require.NoError(t, err)
	b, err := New[int32](100)
	require.NoError(t, err)
	c, err := New[int32](200)
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.True(t, b.Equal(a))
	require.False(t, a.Equal(c))

	// independent arenas despite comparing equal
	h, err := a.Allocate(3)
	require.NoError(t, err)
	require.ErrorIs(t, b.Deallocate(h, 3), ErrInvalidArgument)
	require.True(t, a.Equal(b))
}

func TestAllocatorElementOfNil(t *testing.T) {
	a, err := New[int32](100)
	require.NoError(t, err)
	require.True(t, a.Element(Handle{}, 4).IsNil())
}

// TestAllocatorRandomized runs a random mix of allocations and
// deallocations and checks the layout after every step.
func TestAllocatorRandomized(t *testing.T) {
	a, err := New[uint64](4096)
	require.NoError(t, err)
	ar := a.Arena()
	rnd := rand.New(rand.NewSource(42))

	type live struct {
		h    Handle
		n    int
		mark byte
	}
	var lives []live
	inUse := 0

	for step := 0; step < 3000; step++ {
		if len(lives) == 0 || rnd.Intn(100) < 55 {
			n := 1 + rnd.Intn(32)
			h, err := a.Allocate(n)
			require.NoError(t, err)
			if h.IsNil() {
				for _, b := range blocks(t, ar) {
					if !b.Used {
						require.False(t, b.Size == n*8 || b.Size > n*8+2*SentinelSize)
					}
				}
				continue
			}
			mark := byte(step)
			payload, err := a.Bytes(h)
			require.NoError(t, err)
			require.Len(t, payload, n*8)
			for i := range payload {
				payload[i] = mark
			}
			lives = append(lives, live{h: h, n: n, mark: mark})
			inUse += n * 8
		} else {
			i := rnd.Intn(len(lives))
			l := lives[i]
			payload, err := a.Bytes(l.h)
			require.NoError(t, err)
			for _, c := range payload {
				assert.Equal(t, l.mark, c)
			}
			require.NoError(t, a.Deallocate(l.h, l.n))
			lives[i] = lives[len(lives)-1]
			lives = lives[:len(lives)-1]
			inUse -= l.n * 8
		}

		require.NoError(t, ar.Check())
		require.Equal(t, inUse, a.Len())

		// coalescing never leaves two free blocks side by side
		prevFree := false
		for _, b := range blocks(t, ar) {
			require.False(t, prevFree && !b.Used, "adjacent free blocks at %d", b.Offset)
			prevFree = !b.Used
		}
	}

	for _, l := range lives {
		require.NoError(t, a.Deallocate(l.h, l.n))
	}
	require.Equal(t, []Block{{Offset: 0, Size: 4088}}, blocks(t, ar))
	require.Equal(t, 0, a.Len())
	require.LessOrEqual(t, a.Peak(), 4088)
}

func BenchmarkAllocatorAllocateDeallocate(b *testing.B) {
	a, err := New[uint64](1024 * 1024)
	require.NoError(b, err)
	for i := 0; i < b.N; i++ {
		h, _ := a.Allocate(16)
		_ = a.Deallocate(h, 16)
	}
}
