// Package tinfo holds the per-thread kill/doom bookkeeping that
// proc.Thread.Kill updates; no handle operation calls Kill, so no
// handle right reaches this state. biscuit
// tracks "the current thread" with a goroutine-local pointer installed
// via runtime.Gptr/Setgptr — primitives that only exist in biscuit's
// forked Go runtime. This core has exactly one logical CPU running one
// thread at a time under cooperative scheduling, so "current" is just
// an explicit field on proc.Scheduler; this package keeps only the
// data Tnote_t/Threadinfo_t carried, not the goroutine-local plumbing.
package tinfo

import (
	"sync"

	"defs"
)

/// Tnote_t stores per-thread kill/doom state.
type Tnote_t struct {
	Alive    bool
	Killed   bool
	Isdoomed bool
	// protects Killed, Killnaps.Cond and Kerr, and is a leaf lock
	sync.Mutex
	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Err_t
	}
}

/// Doomed reports whether the thread is marked as doomed.
func (t *Tnote_t) Doomed() bool {
	return t.Isdoomed
}

/// Threadinfo_t tracks the notes of every thread in a process.
type Threadinfo_t struct {
	Notes map[defs.Tid_t]*Tnote_t
	sync.Mutex
}

/// Init initializes the thread info map.
func (t *Threadinfo_t) Init() {
	t.Notes = make(map[defs.Tid_t]*Tnote_t)
}
