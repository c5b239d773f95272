package proc

import (
	"sync"

	"accnt"
	"bounds"
	"defs"
	"limits"
	"mmu"
	"obj"
	"pmm"
)

/// Process is a container of Threads and a HandleTable, the unit a
/// PROCESS object's Destroy right tears down. Grounded on
/// original_source/process.c's process_create/process_destroy.
type Process struct {
	Pid     defs.Pid_t
	Handles *obj.HandleTable
	Accnt   accnt.Accnt_t
	// Pagemap is this process's address space, nil for a kernel
	// thread's process, matching process_t.pagemap's "NULL for
	// kernel threads".
	Pagemap *mmu.Pagemap_t

	mu           sync.Mutex
	Threads      map[defs.Tid_t]*Thread
	nexttid      defs.Tid_t
	dead         bool
	exitStatuses map[defs.Tid_t]int
	childWQ      WaitQueue_t
	nextVirt     uint64
}

var processesMu sync.Mutex
var processes = map[defs.Pid_t]*Process{}
var nextpid defs.Pid_t = 1

/// CreateProcess allocates a new process with an empty handle table and
/// a fresh address space, charging the system process limit, mirroring
/// process_create followed by mmu_pagemap_create.
func CreateProcess(pm *pmm.PMM_t) (*Process, defs.Err_t) {
	if !limits.Syslimit.Procs.Take() {
		return nil, defs.ErrNoMemory
	}
	processesMu.Lock()
	pid := nextpid
	nextpid++
	p := &Process{
		Pid:          pid,
		Handles:      obj.NewHandleTable(bounds.INITIAL_HANDLES),
		Pagemap:      mmu.Create(pm),
		Threads:      map[defs.Tid_t]*Thread{},
		nexttid:      1,
		exitStatuses: map[defs.Tid_t]int{},
		nextVirt:     bounds.USERVA_BASE,
	}
	processes[pid] = p
	processesMu.Unlock()
	return p, 0
}

/// FindProcess looks up a live process by pid.
func FindProcess(pid defs.Pid_t) (*Process, bool) {
	processesMu.Lock()
	defer processesMu.Unlock()
	p, ok := processes[pid]
	return p, ok
}

/// Spawn creates a new thread in p running entry, charging the system
/// thread limit, and hands it to the scheduler in READY state,
/// mirroring thread_create followed by sched_add.
func (p *Process) Spawn(s *Scheduler, entry func(*Thread)) (*Thread, defs.Err_t) {
	if !limits.Syslimit.Threads.Take() {
		return nil, defs.ErrNoMemory
	}
	p.mu.Lock()
	if p.dead {
		p.mu.Unlock()
		limits.Syslimit.Threads.Give()
		return nil, defs.ErrNotFound
	}
	tid := p.nexttid
	p.nexttid++
	t := newThread(tid, p, entry)
	p.Threads[tid] = t
	p.mu.Unlock()

	go t.run()
	s.Add(t)
	return t, 0
}

// removeThread drops tid from the process's thread table once its
// goroutine has reported exit (the deferred-reap rule: the scheduler
// does not reap the DEAD thread in the switch that saw it exit, but at
// the start of the next one, before picking a successor), records its
// exit status for Wait, and wakes anyone blocked waiting on it.
func (p *Process) removeThread(s *Scheduler, tid defs.Tid_t, status int) {
	p.mu.Lock()
	delete(p.Threads, tid)
	p.exitStatuses[tid] = status
	empty := len(p.Threads) == 0
	dead := p.dead
	p.mu.Unlock()
	limits.Syslimit.Threads.Give()
	p.childWQ.WakeAll(s)
	if empty && dead {
		p.finish()
	}
}

/// Wait blocks caller until the thread named by tid has exited and
/// been reaped, then returns its exit status, mirroring wait(pid) laid
/// atop a wait queue the way a blocking recv is: "loop { check →
/// sleep → wake on the event }".
func (p *Process) Wait(s *Scheduler, caller *Thread, tid defs.Tid_t) (int, defs.Err_t) {
	p.mu.Lock()
	for {
		if status, done := p.exitStatuses[tid]; done {
			p.mu.Unlock()
			return status, 0
		}
		if _, alive := p.Threads[tid]; !alive {
			p.mu.Unlock()
			return 0, defs.ErrNotFound
		}
		p.mu.Unlock()
		p.childWQ.Sleep(s, caller)
		p.mu.Lock()
	}
}

/// AllocVirt hands out the next size bytes of the process's virtual
/// address space, a bump allocator standing in for the original's
/// virtual-address-area manager when vmo_map is called with no hint.
func (p *Process) AllocVirt(size uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.nextVirt
	p.nextVirt += size
	return v
}

/// Destroy tears down every live handle and the address space of p and
/// marks it for teardown once its last thread has been reaped,
/// mirroring process_destroy's handle sweep followed by the process's
/// removal from the global process list.
func (p *Process) Destroy() {
	p.mu.Lock()
	p.dead = true
	empty := len(p.Threads) == 0
	p.mu.Unlock()
	p.Handles.CloseAll()
	if p.Pagemap != nil {
		p.Pagemap.Destroy()
	}
	if empty {
		p.finish()
	}
}

func (p *Process) finish() {
	processesMu.Lock()
	delete(processes, p.Pid)
	processesMu.Unlock()
	limits.Syslimit.Procs.Give()
}

/// ThreadCount reports how many threads p currently has live. GET_INFO
/// does not report it; no PROCESS objects are created in this core.
func (p *Process) ThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Threads)
}
