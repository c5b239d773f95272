// Package trap is the last line of defense around a thread's entry
// function: a panicking thread body must not take the whole simulated
// kernel down with it, any more than a genuine page fault in user
// code should wedge the real scheduler. Grounded on caller.Callerdump
// for the diagnostic dump itself.
package trap

import (
	"fmt"

	"caller"
)

/// Recover must be called via defer at the top of a goroutine that
/// runs caller-supplied code. If that code panics, Recover prints who
/// panicked, the panic value, and the call stack at the point of the
/// panic (via caller.Callerdump), then swallows the panic so the
/// goroutine can unwind normally instead of crashing the process.
func Recover(who string) {
	if r := recover(); r != nil {
		fmt.Printf("trap: %s panicked: %v\n", who, r)
		caller.Callerdump(3)
	}
}
