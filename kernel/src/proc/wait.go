package proc

import "sync"

/// WaitQueue_t is a FIFO queue of blocked threads, a direct port of
/// original_source/wait.c's wait_queue_t: Sleep enqueues the calling
/// thread and parks it until woken, WakeOne/WakeAll move waiters back
/// to the scheduler's ready queue.
type WaitQueue_t struct {
	mu      sync.Mutex
	waiters []*Thread
}

/// Sleep blocks the current thread t on wq until a matching wake call
/// removes it, mirroring thread_sleep: mark BLOCKED, enqueue, hand off
/// to the scheduler, and only return once some waker has transitioned
/// the thread back to READY and the scheduler has run it again.
func (wq *WaitQueue_t) Sleep(s *Scheduler, t *Thread) {
	wq.mu.Lock()
	t.setState(BLOCKED)
	wq.waiters = append(wq.waiters, t)
	wq.mu.Unlock()

	s.handoff(t)
}

/// WakeOne moves the longest-waiting thread on wq to the scheduler's
/// ready queue, mirroring thread_wake_one. Reports whether a waiter
/// was woken.
func (wq *WaitQueue_t) WakeOne(s *Scheduler) bool {
	wq.mu.Lock()
	if len(wq.waiters) == 0 {
		wq.mu.Unlock()
		return false
	}
	t := wq.waiters[0]
	wq.waiters = wq.waiters[1:]
	wq.mu.Unlock()

	s.Add(t)
	return true
}

/// WakeAll moves every waiter on wq to the scheduler's ready queue,
/// mirroring thread_wake_all.
func (wq *WaitQueue_t) WakeAll(s *Scheduler) {
	wq.mu.Lock()
	waiters := wq.waiters
	wq.waiters = nil
	wq.mu.Unlock()

	for _, t := range waiters {
		s.Add(t)
	}
}

/// Empty reports whether any thread is currently parked on wq.
func (wq *WaitQueue_t) Empty() bool {
	wq.mu.Lock()
	defer wq.mu.Unlock()
	return len(wq.waiters) == 0
}
