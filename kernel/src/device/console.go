// Package device holds the kernel's built-in device objects — external
// collaborators the core only knows as handle-table Objects exposing
// Read/Write/Close/GetInfo. One console device is implemented here,
// backed by the adapted circbuf.Circbuf_t ring buffer, registered in
// the namespace under "/devices/console" by the kernel package at
// boot.
package device

import (
	"sync"

	"bounds"
	"circbuf"
	"defs"
	"pmm"
	"stat"
)

/// Console_t is a single-buffer console device: writes append to the
/// ring, reads drain it. Grounded on biscuit's console daemon use of
/// circbuf.Circbuf_t, minus the daemon/interrupt plumbing that has no
/// counterpart in this core — here a handle's Write/Read calls are
/// synchronous and non-blocking.
type Console_t struct {
	mu sync.Mutex
	cb circbuf.Circbuf_t
}

/// NewConsole returns a console device backed by a single page of
/// buffering.
func NewConsole(pm *pmm.PMM_t) *Console_t {
	c := &Console_t{}
	c.cb.Cb_init(bounds.PGSIZE, pm)
	return c
}

func (c *Console_t) Write(buf []byte) (int, defs.Err_t) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cb.Copyin(buf)
}

func (c *Console_t) Read(buf []byte) (int, defs.Err_t) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cb.Copyout(buf)
}

func (c *Console_t) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb.Cb_release()
}

func (c *Console_t) GetInfo() stat.Info_t {
	c.mu.Lock()
	defer c.mu.Unlock()
	var st stat.Info_t
	st.Wtype(uint(defs.OTYPE_DEVICE))
	st.Wsize(uint(c.cb.Used()))
	return st
}
