// Package usyscall is the numeric-id dispatch table user-mode threads
// invoke into: exit, getpid, yield, spawn, wait, get_obj (namespace
// lookup), the handle operations (read/write/close/duplicate/
// get_info), and the channel and VMO operations. Grounded on the shape
// of original_source/process.c and channel.c's public entry points;
// biscuit has no equivalent single file, since its syscalls live behind
// a monolithic trap dispatcher this core has no analogue for (no real
// trap frame - the Context methods are called directly by simulated
// user-mode thread bodies).
package usyscall

import (
	"defs"
	"ipc"
	"mmu"
	"ns"
	"pmm"
	"proc"
	"rights"
	"ustr"
	"vmo"
)

/// Num is a syscall number.
type Num int

const (
	SYS_EXIT Num = iota
	SYS_GETPID
	SYS_YIELD
	SYS_SPAWN
	SYS_WAIT
	SYS_GET_OBJ
	SYS_HANDLE_CLOSE
	SYS_HANDLE_DUPLICATE
	SYS_HANDLE_GET_INFO
	SYS_HANDLE_READ
	SYS_HANDLE_WRITE
	SYS_CHANNEL_CREATE
	SYS_CHANNEL_SEND
	SYS_CHANNEL_RECV
	SYS_VMO_CREATE
	SYS_VMO_RESIZE
	SYS_VMO_MAP
	SYS_VMO_UNMAP
	SYS_HANDLE_SEEK
)

/// Context bundles everything a syscall handler needs to know about
/// the caller: which process, which thread, which scheduler, and the
/// shared namespace it may look things up in.
type Context struct {
	Sched *proc.Scheduler
	Thr   *proc.Thread
	Proc  *proc.Process
	NS    *ns.Namespace_t
	PMM   *pmm.PMM_t
}

func (c *Context) Exit() {
	c.Proc.Destroy()
}

func (c *Context) Getpid() defs.Pid_t {
	return c.Proc.Pid
}

func (c *Context) Yield() {
	c.Thr.Yield(c.Sched)
}

/// Spawn creates a new thread in the calling process running entry.
func (c *Context) Spawn(entry func(*proc.Thread)) (defs.Tid_t, defs.Err_t) {
	t, err := c.Proc.Spawn(c.Sched, entry)
	if err != 0 {
		return 0, err
	}
	return t.Tid, 0
}

/// Wait blocks until the thread named by tid has exited, returning its
/// exit status.
func (c *Context) Wait(tid defs.Tid_t) (int, defs.Err_t) {
	return c.Proc.Wait(c.Sched, c.Thr, tid)
}

/// GetObj looks up path in the namespace and grants a handle to it in
/// the calling process with exactly the requested rights. Namespace
/// entries carry no rights of their own, so want is not narrowed.
func (c *Context) GetObj(path string, want rights.Rights) (defs.Handle_t, defs.Err_t) {
	o, err := c.NS.Lookup(ustr.Ustr(path))
	if err != 0 {
		return defs.NoHandle, err
	}
	h := c.Proc.Handles.Grant(o, want)
	o.Deref() // Grant took its own reference; release Lookup's.
	return h, 0
}

func (c *Context) HandleClose(h defs.Handle_t) defs.Err_t {
	return c.Proc.Handles.Close(h)
}

func (c *Context) HandleDuplicate(h defs.Handle_t, mask rights.Rights) (defs.Handle_t, defs.Err_t) {
	return c.Proc.Handles.Duplicate(h, mask)
}

func (c *Context) HandleGetInfo(h defs.Handle_t) (uint, uint, uint, uint, defs.Err_t) {
	o, r, err := c.Proc.Handles.Lookup(h)
	if err != 0 {
		return 0, 0, 0, 0, err
	}
	if !r.Has(rights.GetInfo) {
		return 0, 0, 0, 0, defs.ErrPermissionDenied
	}
	st := o.Ops.GetInfo()
	return st.Type(), uint(o.Refcount()), st.Size(), uint(r), 0
}

func (c *Context) HandleRead(h defs.Handle_t, buf []byte) (int, defs.Err_t) {
	o, err := c.Proc.Handles.Check(h, rights.Read)
	if err != 0 {
		return 0, err
	}
	return o.Ops.Read(buf)
}

func (c *Context) HandleWrite(h defs.Handle_t, buf []byte) (int, defs.Err_t) {
	o, err := c.Proc.Handles.Check(h, rights.Write)
	if err != 0 {
		return 0, err
	}
	return o.Ops.Write(buf)
}

/// HandleSeek repositions h's seek cursor and returns the resulting
/// absolute offset.
func (c *Context) HandleSeek(h defs.Handle_t, offset int64, whence defs.Whence_t) (int64, defs.Err_t) {
	return c.Proc.Handles.Seek(h, offset, whence)
}

/// ChannelCreate creates a connected endpoint pair and grants both ends
/// to the calling process, returning both handles; the caller keeps one
/// and may transfer the other to whoever should hold the peer (for
/// example across an existing channel).
func (c *Context) ChannelCreate() (defs.Handle_t, defs.Handle_t, defs.Err_t) {
	a, b, err := ipc.Create()
	if err != 0 {
		return defs.NoHandle, defs.NoHandle, err
	}
	ha := c.Proc.Handles.Grant(a, rights.Default|rights.Signal)
	hb := c.Proc.Handles.Grant(b, rights.Default|rights.Signal)
	a.Deref()
	b.Deref()
	return ha, hb, 0
}

func (c *Context) ChannelSend(h defs.Handle_t, data []byte, hs []defs.Handle_t) defs.Err_t {
	o, err := c.Proc.Handles.Check(h, rights.Write)
	if err != 0 {
		return err
	}
	ep, ok := o.Ops.(*ipc.Endpoint_t)
	if !ok {
		return defs.ErrWrongType
	}
	return ep.Send(c.Proc.Handles, data, hs)
}

func (c *Context) ChannelRecv(h defs.Handle_t, blocking bool) ([]byte, []defs.Handle_t, defs.Err_t) {
	o, err := c.Proc.Handles.Check(h, rights.Read)
	if err != 0 {
		return nil, nil, err
	}
	ep, ok := o.Ops.(*ipc.Endpoint_t)
	if !ok {
		return nil, nil, defs.ErrWrongType
	}
	if blocking {
		return ep.RecvBlocking(c.Sched, c.Thr, c.Proc.Handles)
	}
	return ep.Recv(c.Proc.Handles)
}

/// VmoCreate allocates a new VMO of npages pages, fully committed, and
/// grants a handle to it in the calling process.
func (c *Context) VmoCreate(npages int) (defs.Handle_t, defs.Err_t) {
	o, _, err := vmo.Create(c.PMM, npages, rights.Default|rights.Map|rights.Execute)
	if err != 0 {
		return defs.NoHandle, err
	}
	h := c.Proc.Handles.Grant(o, rights.Default|rights.Map|rights.Execute)
	o.Deref()
	return h, 0
}

func (c *Context) VmoResize(h defs.Handle_t, newPages int) defs.Err_t {
	o, err := c.Proc.Handles.Check(h, rights.Write)
	if err != 0 {
		return err
	}
	v, ok := o.Ops.(*vmo.Vmo_t)
	if !ok {
		return defs.ErrWrongType
	}
	return v.Resize(newPages)
}

/// VmoMap installs the VMO named by h into the calling process's
/// address space at hint, or at an address chosen by the process's
/// bump-allocated virtual-address-area manager when hint is zero,
/// returning the address used.
func (c *Context) VmoMap(h defs.Handle_t, hint uint64, flags mmu.Flag, r rights.Rights) (uint64, defs.Err_t) {
	o, err := c.Proc.Handles.Check(h, rights.Map)
	if err != 0 {
		return 0, err
	}
	v, ok := o.Ops.(*vmo.Vmo_t)
	if !ok {
		return 0, defs.ErrWrongType
	}
	virt := hint
	if virt == 0 {
		virt = c.Proc.AllocVirt(v.Size())
	}
	if err := v.Map(c.Proc.Pagemap, virt, flags, r); err != 0 {
		return 0, err
	}
	return virt, 0
}

/// VmoUnmap tears down the mapping of the VMO named by h at virt in
/// the calling process's address space.
func (c *Context) VmoUnmap(h defs.Handle_t, virt uint64) defs.Err_t {
	o, err := c.Proc.Handles.Check(h, rights.Map)
	if err != 0 {
		return err
	}
	v, ok := o.Ops.(*vmo.Vmo_t)
	if !ok {
		return defs.ErrWrongType
	}
	v.Unmap(c.Proc.Pagemap, virt)
	return 0
}
