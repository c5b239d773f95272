// Package limits tracks system-wide resource budgets as atomically
// updated counting semaphores, the same discipline biscuit uses for
// process/vnode/socket limits, repurposed here for the resources this
// kernel core actually owns: processes, threads and channels. A budget
// for VMO pages is kept as well, but vmo does not charge it.
package limits

import (
	"sync/atomic"
)

/// Lhits counts how many times a caller was refused because a limit was
/// exhausted; exposed for diagnostics.
var Lhits int64

/// Sysatomic_t is a numeric limit that can be atomically given back and
/// taken from, i.e. a counting semaphore sized in whatever unit the
/// limit tracks (objects, pages, ...).
type Sysatomic_t struct {
	v int64
}

/// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(n uint) {
	atomic.AddInt64(&s.v, int64(n))
}

/// Taken tries to decrement the limit by the provided amount, returning
/// true on success and leaving the limit unchanged on failure.
func (s *Sysatomic_t) Taken(n uint) bool {
	d := int64(n)
	g := atomic.AddInt64(&s.v, -d)
	if g >= 0 {
		return true
	}
	atomic.AddInt64(&s.v, d)
	atomic.AddInt64(&Lhits, 1)
	return false
}

/// Take decrements the limit by one and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

/// Give increments the limit by one.
func (s *Sysatomic_t) Give() {
	s.Given(1)
}

/// Remaining returns the current value of the limit.
func (s *Sysatomic_t) Remaining() int64 {
	return atomic.LoadInt64(&s.v)
}

/// Syslimit_t tracks system-wide resource budgets.
type Syslimit_t struct {
	/// Procs bounds live processes, including the kernel process.
	Procs Sysatomic_t
	/// Threads bounds live threads across all processes.
	Threads Sysatomic_t
	/// Channels bounds live channel objects (each owns two endpoints).
	Channels Sysatomic_t
	/// Pages is a budget of physical pages for VMOs; vmo.Create and
	/// Resize do not take from it, so it is never charged.
	Pages Sysatomic_t
}

/// Syslimit holds the default set of system-wide limits.
var Syslimit = MkSysLimit()

/// MkSysLimit returns a freshly initialized set of default limits.
func MkSysLimit() *Syslimit_t {
	sl := &Syslimit_t{}
	sl.Procs.Given(1 << 16)
	sl.Threads.Given(1 << 18)
	sl.Channels.Given(1 << 16)
	sl.Pages.Given(1 << 22) // 16 GiB at 4 KiB pages
	return sl
}
