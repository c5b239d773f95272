package proc

import (
	"sync"

	"bounds"
	"defs"
	"mmu"
	"stats"
)

/// Stats_t collects always-on scheduler counters, dumped via
/// stats.Stats2String for diagnostics.
type Stats_t struct {
	Ticks       stats.Counter_t
	Switches    stats.Counter_t
	Preemptions stats.Counter_t
	Yields      stats.Counter_t
}

/// Scheduler runs exactly one Thread at a time across however many
/// Processes exist, round-robin over a single ready queue: an idle
/// thread that runs when the queue is empty, tick-based preemption
/// gated on whether the tick arrived from user-mode execution, and
/// deferred reaping of the thread that was RUNNING when it exited (it
/// is removed from its process at the start of the following context
/// switch, not in the switch that saw it exit).
type Scheduler struct {
	mu      sync.Mutex
	runq    []*Thread
	current *Thread
	idle    *Thread
	quantum uint
	reap    *Thread // DEAD thread whose goroutine has not yet been drained

	Stats Stats_t
}

/// NewScheduler returns a scheduler with its idle thread created and
/// ready, but not yet running.
func NewScheduler() *Scheduler {
	s := &Scheduler{quantum: bounds.TIME_SLICE}
	idleProc := &Process{Pid: -1, Threads: map[defs.Tid_t]*Thread{}}
	s.idle = newThread(0, idleProc, func(t *Thread) {
		for {
			s.parkIdle(t)
		}
	})
	go s.idle.run()
	return s
}

func (s *Scheduler) parkIdle(t *Thread) {
	t.yield <- yieldMsg{}
	<-t.token
}

/// Add places t on the tail of the ready queue, mirroring sched_add.
func (s *Scheduler) Add(t *Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.setState(READY)
	s.runq = append(s.runq, t)
}

/// Remove splices t out of the ready queue if present, mirroring
/// sched_remove.
func (s *Scheduler) Remove(t *Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.runq {
		if r == t {
			s.runq = append(s.runq[:i], s.runq[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) popNext() *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runq) == 0 {
		return s.idle
	}
	t := s.runq[0]
	s.runq = s.runq[1:]
	return t
}

/// Start launches the scheduler's run loop on the calling goroutine;
/// it returns only once stop has been closed, which it checks between
/// context switches (used by tests and by a clean kernel shutdown).
/// Spawn and Yield/Sleep/Wake from other goroutines drive
/// the loop forward; Start itself just repeatedly hands out the token.
func (s *Scheduler) Start(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		s.schedule()
	}
}

// schedule performs exactly one context switch: drain any deferred
// reap from the previous switch, pick the next thread, switch to its
// address space, hand it the token, and wait for it to yield, block,
// or exit.
func (s *Scheduler) schedule() {
	if s.reap != nil {
		s.finishReap(s.reap)
		s.reap = nil
	}

	next := s.popNext()
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	mmu.Switch(next.Proc.Pagemap)
	next.setState(RUNNING)
	s.quantum = bounds.TIME_SLICE
	s.Stats.Switches.Inc()

	next.token <- struct{}{}
	msg := <-next.yield

	if msg.exited {
		s.reap = next
		return
	}
	if next != s.idle && next.State() == RUNNING {
		// still runnable: re-enqueue at the tail, matching schedule()'s
		// treatment of the outgoing thread in original_source/sched.c
		s.Add(next)
	}
}

func (s *Scheduler) finishReap(t *Thread) {
	if t == s.idle {
		return
	}
	t.Proc.removeThread(s, t.Tid, t.ExitStatus())
}

/// Current returns the thread presently holding the token.
func (s *Scheduler) Current() *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

/// Yield voluntarily gives up the remainder of t's quantum, mirroring
/// sched_yield: t is re-queued (by schedule, once it notices State()
/// is still RUNNING) and control returns to t only after every other
/// ready thread has had a turn.
func (t *Thread) Yield(s *Scheduler) {
	s.Stats.Yields.Inc()
	s.handoff(t)
}

// handoff is the checkpoint every cooperative point (Yield, a
// WaitQueue sleep) passes through: tell the scheduler
// this thread is done running for now and block until it is scheduled
// again.
func (s *Scheduler) handoff(t *Thread) {
	t.yield <- yieldMsg{}
	<-t.token
}

/// Tick is called once per simulated timer interrupt, mirroring
/// sched_tick(from_usermode). fromUsermode mirrors the ISR-safe
/// distinction the original makes: a tick that interrupted kernel code
/// (fromUsermode == false) still counts down the quantum but must not
/// itself force a preemption checkpoint, since kernel code may be
/// holding locks a preemption could deadlock on. A tick from user-mode
/// execution that exhausts the quantum preempts the current thread at
/// once: Tick counts a preemption and yields on that thread's behalf.
///
/// Tick must be called from the currently-running thread's own
/// goroutine (e.g. at a syscall-entry checkpoint standing in for the
/// timer ISR) — it hands the token back via the same Yield path a
/// thread uses to voluntarily give up the CPU, which only makes sense
/// from inside that thread's own call stack.
func (s *Scheduler) Tick(fromUsermode bool) {
	s.Stats.Ticks.Inc()
	s.mu.Lock()
	if s.quantum > 0 {
		s.quantum--
	}
	exhausted := s.quantum == 0
	cur := s.current
	s.mu.Unlock()

	if exhausted && fromUsermode && cur != nil && cur != s.idle {
		s.Stats.Preemptions.Inc()
		cur.Yield(s)
	}
}
