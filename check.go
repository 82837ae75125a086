// SPDX-License-Identifier: Apache-2.0

//go:build !release

package tagpool

// assertValid panics if the arena no longer satisfies its tag invariant.
// It is a no-op when compiled with the release build tag.
func (a *Arena) assertValid() {
	if err := a.Check(); err != nil {
		a.errorf("%v", err)
		panic(err)
	}
}
