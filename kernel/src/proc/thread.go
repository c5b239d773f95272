// Package proc implements processes, threads, the scheduler, and wait
// queues. It is authored directly from the original thread/sched/wait/
// process C sources rather than ported from any biscuit file — biscuit's
// own proc package is an empty placeholder module, present only to be
// filled in.
//
// The one structural choice forced by hosting this on stdlib Go: there
// is no real timer interrupt and no real context switch. Each Thread
// runs its entry function on its own goroutine, but only one goroutine
// is ever allowed to run at a time — the Scheduler hands a token to
// exactly one thread's goroutine and waits for that thread to
// voluntarily hand it back (by yielding, blocking on a WaitQueue, or
// exiting) before picking the next one. That handoff is what stands in
// for a context switch; "preemption" is cooperative in the sense that
// a running thread gives up the token only at a checkpoint (Yield, a
// WaitQueue sleep, or a Tick call that exhausts the quantum and yields
// on the thread's behalf), since nothing can interrupt a goroutine
// mid-stride without the forked runtime hooks biscuit relies on.
package proc

import (
	"fmt"
	"sync"

	"defs"
	"tinfo"
	"trap"
)

/// ThreadState is a thread's scheduling state.
type ThreadState int

const (
	READY ThreadState = iota
	RUNNING
	BLOCKED
	DEAD
)

func (s ThreadState) String() string {
	switch s {
	case READY:
		return "READY"
	case RUNNING:
		return "RUNNING"
	case BLOCKED:
		return "BLOCKED"
	case DEAD:
		return "DEAD"
	default:
		return "?"
	}
}

/// Thread is a schedulable unit of execution within a Process.
type Thread struct {
	Tid   defs.Tid_t
	Proc  *Process
	Note  *tinfo.Tnote_t
	entry func(*Thread)

	mu         sync.Mutex
	state      ThreadState
	exitStatus int

	token chan struct{} // scheduler -> thread: "you may run now"
	yield chan yieldMsg // thread -> scheduler: "I'm done running for now"

	next *Thread // run-queue / wait-queue intrusive link
}

type yieldMsg struct {
	exited bool
}

func newThread(tid defs.Tid_t, p *Process, entry func(*Thread)) *Thread {
	return &Thread{
		Tid:   tid,
		Proc:  p,
		Note:  &tinfo.Tnote_t{Alive: true},
		entry: entry,
		state: READY,
		token: make(chan struct{}),
		yield: make(chan yieldMsg),
	}
}

func (t *Thread) State() ThreadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Thread) setState(s ThreadState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

/// SetExitStatus records the status a later Wait(tid) call will
/// observe; a thread body calls this before returning, if it has a
/// status to report. Unset threads report 0.
func (t *Thread) SetExitStatus(status int) {
	t.mu.Lock()
	t.exitStatus = status
	t.mu.Unlock()
}

/// ExitStatus returns the status last recorded by SetExitStatus.
func (t *Thread) ExitStatus() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitStatus
}

// run is the thread's goroutine body: block until the scheduler grants
// the token, run the entry function once to completion (the entry
// function itself calls back into the scheduler at Yield/Sleep points
// and never returns except at thread exit), then report exit.
func (t *Thread) run() {
	<-t.token
	func() {
		defer trap.Recover(fmt.Sprintf("thread %d", t.Tid))
		t.entry(t)
	}()
	t.setState(DEAD)
	t.Note.Lock()
	t.Note.Alive = false
	t.Note.Unlock()
	t.yield <- yieldMsg{exited: true}
}

/// Kill marks the thread doomed and, if it is parked waiting on a kill
/// channel, wakes it with the given error. No syscall or handle
/// operation calls Kill, and no OTYPE_THREAD objects are created.
func (t *Thread) Kill(err defs.Err_t) {
	t.Note.Lock()
	defer t.Note.Unlock()
	if t.Note.Killed {
		return
	}
	t.Note.Killed = true
	t.Note.Isdoomed = true
	t.Note.Killnaps.Kerr = err
	if t.Note.Killnaps.Killch != nil {
		select {
		case t.Note.Killnaps.Killch <- true:
		default:
		}
	}
	if t.Note.Killnaps.Cond != nil {
		t.Note.Killnaps.Cond.Broadcast()
	}
}
