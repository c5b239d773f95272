package usyscall

import (
	"testing"
	"time"

	"defs"
	"mmu"
	"ns"
	"pmm"
	"proc"
	"rights"
	"ustr"
	"vmo"
)

func newContext(t *testing.T) (*Context, chan struct{}) {
	t.Helper()
	pm := pmm.Init(64)
	p, err := proc.CreateProcess(pm)
	if err != 0 {
		t.Fatalf("create process failed: %v", err)
	}
	s := proc.NewScheduler()
	stop := make(chan struct{})
	go s.Start(stop)
	return &Context{Sched: s, Proc: p, NS: ns.Init(8), PMM: pm}, stop
}

func TestGetpid(t *testing.T) {
	c, stop := newContext(t)
	defer close(stop)
	if c.Getpid() != c.Proc.Pid {
		t.Fatal("getpid mismatch")
	}
}

func TestGetObjGrantsHandle(t *testing.T) {
	c, stop := newContext(t)
	defer close(stop)

	o, _, _ := vmo.Create(c.PMM, 1, rights.Default)
	path := ustr.Ustr("/x")
	c.NS.Register(path, o)
	o.Deref()

	h, err := c.GetObj(path.String(), rights.Default)
	if err != 0 {
		t.Fatalf("get_obj failed: %v", err)
	}
	if _, err := c.Proc.Handles.Check(h, rights.Read); err != 0 {
		t.Fatalf("granted handle should carry default rights: %v", err)
	}
}

func TestVmoCreateAndResize(t *testing.T) {
	c, stop := newContext(t)
	defer close(stop)

	h, err := c.VmoCreate(2)
	if err != 0 {
		t.Fatalf("vmo_create failed: %v", err)
	}
	if err := c.VmoResize(h, 4); err != 0 {
		t.Fatalf("vmo_resize failed: %v", err)
	}
}

func TestChannelCreateSendRecv(t *testing.T) {
	c, stop := newContext(t)
	defer close(stop)

	ha, hb, err := c.ChannelCreate()
	if err != 0 {
		t.Fatalf("channel_create failed: %v", err)
	}
	if err := c.ChannelSend(ha, []byte("ping"), nil); err != 0 {
		t.Fatalf("send failed: %v", err)
	}
	data, _, err := c.ChannelRecv(hb, false)
	if err != 0 {
		t.Fatalf("recv failed: %v", err)
	}
	if string(data) != "ping" {
		t.Fatalf("got %q", data)
	}
}

func TestHandleCloseRemovesHandle(t *testing.T) {
	c, stop := newContext(t)
	defer close(stop)

	h, _ := c.VmoCreate(1)
	if err := c.HandleClose(h); err != 0 {
		t.Fatalf("handle_close failed: %v", err)
	}
	if _, err := c.Proc.Handles.Check(h, rights.Read); err == 0 {
		t.Fatal("expected handle to be gone after close")
	}
}

func TestWaitReturnsExitStatus(t *testing.T) {
	c, stop := newContext(t)
	defer close(stop)

	tid, err := c.Spawn(func(th *proc.Thread) { th.SetExitStatus(7) })
	if err != 0 {
		t.Fatalf("spawn failed: %v", err)
	}

	// Wait parks the calling thread, so it has to run on a scheduled
	// thread of the process rather than on the test goroutine.
	type result struct {
		status int
		err    defs.Err_t
	}
	res := make(chan result, 1)
	if _, err := c.Spawn(func(th *proc.Thread) {
		wc := *c
		wc.Thr = th
		status, err := wc.Wait(tid)
		res <- result{status, err}
	}); err != 0 {
		t.Fatalf("spawn waiter failed: %v", err)
	}
	var r result
	select {
	case r = <-res:
	case <-time.After(2 * time.Second):
		t.Fatal("wait never returned")
	}
	status, err := r.status, r.err
	if err != 0 {
		t.Fatalf("wait failed: %v", err)
	}
	if status != 7 {
		t.Fatalf("got status %d, want 7", status)
	}
}

func TestHandleSeek(t *testing.T) {
	c, stop := newContext(t)
	defer close(stop)

	h, err := c.VmoCreate(2)
	if err != 0 {
		t.Fatalf("vmo_create failed: %v", err)
	}

	off, err := c.HandleSeek(h, 100, defs.SeekSet)
	if err != 0 || off != 100 {
		t.Fatalf("seek set: got (%d, %v)", off, err)
	}
	off, err = c.HandleSeek(h, 10, defs.SeekCur)
	if err != 0 || off != 110 {
		t.Fatalf("seek cur: got (%d, %v)", off, err)
	}
	off, err = c.HandleSeek(h, 0, defs.SeekEnd)
	if err != 0 || off != 2*4096 {
		t.Fatalf("seek end: got (%d, %v)", off, err)
	}
}

func TestVmoMapUnmap(t *testing.T) {
	c, stop := newContext(t)
	defer close(stop)

	h, err := c.VmoCreate(1)
	if err != 0 {
		t.Fatalf("vmo_create failed: %v", err)
	}

	virt, err := c.VmoMap(h, 0, mmu.FlagWrite|mmu.FlagUser, rights.Default|rights.Map)
	if err != 0 {
		t.Fatalf("vmo_map failed: %v", err)
	}
	if _, ok := c.Proc.Pagemap.VirtToPhys(virt); !ok {
		t.Fatal("expected virt mapped after vmo_map")
	}

	if err := c.VmoUnmap(h, virt); err != 0 {
		t.Fatalf("vmo_unmap failed: %v", err)
	}
	if _, ok := c.Proc.Pagemap.VirtToPhys(virt); ok {
		t.Fatal("expected virt unmapped after vmo_unmap")
	}
}

func TestSpawnStartsNewThread(t *testing.T) {
	c, stop := newContext(t)
	defer close(stop)

	ran := make(chan struct{})
	tid, err := c.Spawn(func(th *proc.Thread) { close(ran) })
	if err != 0 {
		t.Fatalf("spawn failed: %v", err)
	}
	if tid == 0 {
		t.Fatal("expected a nonzero thread id")
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("spawned thread never ran")
	}
}
