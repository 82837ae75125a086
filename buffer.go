// SPDX-License-Identifier: Apache-2.0

package tagpool

import (
	"io"

	"github.com/pkg/errors"
)

const readBufferSize = 4 * 1024

// Buffer is a FIFO byte buffer whose storage is a single block of a byte
// allocator. Growing moves the data into a larger block and frees the old
// one, so the buffer holds at most one block of the pool at a time.
type Buffer struct {
	pool    *Allocator[byte]
	h       Handle
	buf     []byte // payload of h
	off     int    // unread bytes at the start of buf
	readBuf []byte // intermediate buffer for ReadFrom
}

// NewBuffer creates an empty Buffer backed by pool. No block is taken until
// the first write.
func NewBuffer(pool *Allocator[byte]) *Buffer {
	return &Buffer{pool: pool}
}

// grow makes room for n more bytes. It tries the growth policy size first
// and falls back to the exact size when the pool cannot host it.
func (b *Buffer) grow(n int) error {
	need := b.off + n
	if need <= len(b.buf) {
		return nil
	}
	h, err := b.pool.Reallocate(b.h, growCap(len(b.buf), need))
	if (err != nil || h.IsNil()) && growCap(len(b.buf), need) > need {
		h, err = b.pool.Reallocate(b.h, need)
	}
	if err != nil {
		return errors.Wrapf(err, "grow buffer to %d bytes", need)
	}
	if h.IsNil() {
		return errors.Wrapf(ErrNoSpace, "grow buffer to %d bytes", need)
	}
	buf, err := b.pool.Bytes(h)
	if err != nil {
		return err
	}
	b.h, b.buf = h, buf
	return nil
}

// Write appends p, growing the backing block if needed. On error nothing is
// appended.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := b.grow(len(p)); err != nil {
		return 0, err
	}
	copy(b.buf[b.off:], p)
	b.off += len(p)
	return len(p), nil
}

// WriteByte appends c.
func (b *Buffer) WriteByte(c byte) error {
	if err := b.grow(1); err != nil {
		return err
	}
	b.buf[b.off] = c
	b.off++
	return nil
}

// WriteString appends s without converting it to a byte slice first.
func (b *Buffer) WriteString(s string) (n int, err error) {
	if len(s) == 0 {
		return 0, nil
	}
	if err := b.grow(len(s)); err != nil {
		return 0, err
	}
	copy(b.buf[b.off:], s)
	b.off += len(s)
	return len(s), nil
}

// WriteTo drains the buffer into w. Bytes that w accepted are dropped even
// when w reports an error.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if b.off == 0 {
		return 0, nil
	}
	m, err := w.Write(b.buf[:b.off])
	b.consume(m)
	return int64(m), err
}

// consume drops the first n buffered bytes and moves the rest to the start
// of the block.
func (b *Buffer) consume(n int) {
	if n <= 0 {
		return
	}
	copy(b.buf, b.buf[n:b.off])
	b.off -= n
}

// Read moves up to len(p) buffered bytes into p. It reports io.EOF once the
// buffer runs dry, including on a short read.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.off == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.buf[:b.off])
	b.consume(n)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ReadByte pops the first buffered byte.
func (b *Buffer) ReadByte() (byte, error) {
	if b.off == 0 {
		return 0, io.EOF
	}
	c := b.buf[0]
	b.consume(1)
	return c, nil
}

// Bytes returns the buffered data. The slice aliases the pool block and is
// only good until the next write, read or Release.
func (b *Buffer) Bytes() []byte {
	if b.off == 0 {
		return []byte{}
	}
	return b.buf[:b.off]
}

func (b *Buffer) String() string {
	return string(b.buf[:b.off])
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return b.off
}

// Cap returns the size of the block currently backing the buffer.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Reset empties the buffer and keeps its block for reuse.
func (b *Buffer) Reset() {
	b.off = 0
}

// Truncate keeps the first n buffered bytes. It panics unless 0 <= n <= Len().
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.off {
		panic("tagpool: truncation out of range")
	}
	b.off = n
}

// Next pops up to n bytes and returns them in a fresh slice.
func (b *Buffer) Next(n int) []byte {
	n = min(n, b.off)
	if n <= 0 {
		return []byte{}
	}
	out := append([]byte(nil), b.buf[:n]...)
	b.consume(n)
	return out
}

// ReadFrom copies r into the buffer until io.EOF. A pool that cannot grow
// the buffer stops the copy with the grow error.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	if b.readBuf == nil {
		b.readBuf = make([]byte, readBufferSize)
	}
	var total int64
	for {
		n, err := r.Read(b.readBuf)
		if n > 0 {
			if _, werr := b.Write(b.readBuf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		switch {
		case err == io.EOF:
			return total, nil
		case err != nil:
			return total, err
		}
	}
}

// Release returns the buffer's block to the pool and empties the buffer.
func (b *Buffer) Release() error {
	err := b.pool.Deallocate(b.h, len(b.buf))
	b.h, b.buf, b.off = Handle{}, nil, 0
	return err
}
