// SPDX-License-Identifier: Apache-2.0

// Package tagpool implements a fixed-capacity pool allocator over a single
// byte arena. Blocks are delimited by boundary tags stored in the arena
// itself: a signed 32-bit size before and after every payload, negative
// while the block is in use. Allocation is first-fit with splitting,
// deallocation coalesces with free neighbours, and the arena never grows.
//
// Neither Arena nor Allocator is safe for concurrent use.
package tagpool
