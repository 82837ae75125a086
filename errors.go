// SPDX-License-Identifier: Apache-2.0

package tagpool

import (
	"github.com/pkg/errors"
)

var (
	// ErrOutOfMemory is returned when the arena is too small to host even one
	// element, or when a single request exceeds the arena's total capacity.
	ErrOutOfMemory = errors.New("tagpool: out of memory")

	// ErrInvalidArgument is returned for handles that do not point at the
	// payload of a used block of this arena, and for malformed arguments.
	ErrInvalidArgument = errors.New("tagpool: invalid argument")

	// ErrCorruption is returned when a front tag does not match its back tag.
	ErrCorruption = errors.New("tagpool: arena corrupted")

	// ErrNoSpace is returned by Buffer when no free block can host its data.
	ErrNoSpace = errors.New("tagpool: no free block large enough")
)
