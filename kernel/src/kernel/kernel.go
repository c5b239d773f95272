// Package kernel wires the core's subsystems into one bootable
// instance: the physical memory manager, the namespace, the built-in
// devices, and the scheduler's run loop. There is no equivalent single
// file in biscuit (its main.go boots a real machine); this is authored
// to bring the simulated machine up in a hosted process, for tests and
// for cmd/nucleus.
package kernel

import (
	"device"
	"defs"
	"mmu"
	"ns"
	"obj"
	"pmm"
	"proc"
	"ustr"
)

/// Kernel_t is one instance of the simulated machine.
type Kernel_t struct {
	PMM   *pmm.PMM_t
	NS    *ns.Namespace_t
	Sched *proc.Scheduler

	stop chan struct{}
}

/// Config bounds the simulated machine's resources at boot.
type Config struct {
	/// Pages is the number of page frames the PMM manages.
	Pages int
	/// NamespaceBuckets sizes the namespace's hash table.
	NamespaceBuckets int
}

/// DefaultConfig is a reasonably sized configuration for tests and
/// small programs: 64 MiB of simulated RAM, a modest namespace.
var DefaultConfig = Config{Pages: (64 << 20) / 4096, NamespaceBuckets: 64}

/// Boot brings up a Kernel_t: allocates the simulated RAM arena,
/// initializes the namespace, registers the built-in devices, and
/// constructs the scheduler with its idle thread created but not yet
/// running. The caller
/// must subsequently call Run (typically on its own goroutine) to
/// start the scheduler's dispatch loop, and Shutdown to stop it.
func Boot(cfg Config) *Kernel_t {
	k := &Kernel_t{
		PMM:   pmm.Init(cfg.Pages),
		NS:    ns.Init(cfg.NamespaceBuckets),
		Sched: proc.NewScheduler(),
		stop:  make(chan struct{}),
	}
	mmu.Init(k.PMM, nil)

	console := obj.New(defs.OTYPE_DEVICE, device.NewConsole(k.PMM))
	k.NS.Register(ustr.Ustr("/devices/console"), console)
	console.Deref()

	null := obj.New(defs.OTYPE_DEVICE, device.Null_t{})
	k.NS.Register(ustr.Ustr("/devices/null"), null)
	null.Deref()

	return k
}

/// Run starts the scheduler's dispatch loop; it blocks until Shutdown
/// is called.
func (k *Kernel_t) Run() {
	k.Sched.Start(k.stop)
}

/// Shutdown stops the scheduler's dispatch loop. It does not wait for
/// in-flight threads to exit.
func (k *Kernel_t) Shutdown() {
	close(k.stop)
}

/// SpawnRoot creates a new process with a single thread running entry
/// and hands it to the scheduler — the entry point for bringing up the
/// first user program after Boot.
func (k *Kernel_t) SpawnRoot(entry func(*proc.Thread)) (*proc.Process, *proc.Thread, defs.Err_t) {
	p, err := proc.CreateProcess(k.PMM)
	if err != 0 {
		return nil, nil, err
	}
	t, err := p.Spawn(k.Sched, entry)
	if err != 0 {
		p.Destroy()
		return nil, nil, err
	}
	return p, t, 0
}
