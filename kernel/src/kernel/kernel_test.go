package kernel

import (
	"testing"
	"time"

	"defs"
	"ipc"
	"mmu"
	"proc"
	"rights"
	"ustr"
	"vmo"
)

func TestBootRegistersBuiltinDevices(t *testing.T) {
	k := Boot(Config{Pages: 256, NamespaceBuckets: 8})

	console, err := k.NS.Lookup(ustr.Ustr("/devices/console"))
	if err != 0 {
		t.Fatalf("console lookup failed: %v", err)
	}
	console.Deref()

	null, err := k.NS.Lookup(ustr.Ustr("/devices/null"))
	if err != 0 {
		t.Fatalf("null lookup failed: %v", err)
	}
	null.Deref()
}

func TestSpawnRootRunsUnderScheduler(t *testing.T) {
	k := Boot(DefaultConfig)
	go k.Run()
	defer k.Shutdown()

	done := make(chan struct{})
	_, _, err := k.SpawnRoot(func(th *proc.Thread) {
		h, err := func() (defs.Handle_t, defs.Err_t) {
			o, err := k.NS.Lookup(ustr.Ustr("/devices/console"))
			if err != 0 {
				return defs.NoHandle, err
			}
			defer o.Deref()
			return th.Proc.Handles.Grant(o, rights.Default), 0
		}()
		if err != 0 {
			close(done)
			return
		}
		o, _, _ := th.Proc.Handles.Lookup(h)
		o.Ops.Write([]byte("hello from root\n"))
		close(done)
	})
	if err != 0 {
		t.Fatalf("spawn_root failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("root thread never ran")
	}
}

func TestHandleLifecycleEndToEnd(t *testing.T) {
	k := Boot(Config{Pages: 64, NamespaceBuckets: 8})
	go k.Run()
	defer k.Shutdown()

	p, err := proc.CreateProcess(k.PMM)
	if err != 0 {
		t.Fatalf("create process failed: %v", err)
	}

	o, err := k.NS.Lookup(ustr.Ustr("/devices/null"))
	if err != 0 {
		t.Fatalf("lookup failed: %v", err)
	}
	h := p.Handles.Grant(o, rights.Default)
	o.Deref()

	if _, _, err := p.Handles.Lookup(h); err != 0 {
		t.Fatalf("expected handle to be live: %v", err)
	}
	if err := p.Handles.Close(h); err != 0 {
		t.Fatalf("close failed: %v", err)
	}
	if _, _, err := p.Handles.Lookup(h); err == 0 {
		t.Fatal("expected handle to be gone after close")
	}
}

func TestChannelTransferAcrossProcessesEndToEnd(t *testing.T) {
	k := Boot(Config{Pages: 64, NamespaceBuckets: 8})
	go k.Run()
	defer k.Shutdown()

	sender, _ := proc.CreateProcess(k.PMM)
	receiver, _ := proc.CreateProcess(k.PMM)

	vo, _ := k.NS.Lookup(ustr.Ustr("/devices/null"))
	payload := sender.Handles.Grant(vo, rights.Default|rights.Transfer)
	vo.Deref()

	// A channel between the two processes; the sender transfers its
	// /devices/null handle to the receiver over it.
	aObj, bObj, err := ipc.Create()
	if err != 0 {
		t.Fatalf("channel create failed: %v", err)
	}
	ha := sender.Handles.Grant(aObj, rights.Default|rights.Signal)
	hb := receiver.Handles.Grant(bObj, rights.Default|rights.Signal)
	aObj.Deref()
	bObj.Deref()

	aEp := aObj.Ops.(*ipc.Endpoint_t)
	if err := aEp.Send(sender.Handles, nil, []defs.Handle_t{payload}); err != 0 {
		t.Fatalf("send failed: %v", err)
	}
	if _, _, err := sender.Handles.Lookup(payload); err == 0 {
		t.Fatal("sender's handle should be gone after transfer")
	}

	bEp := bObj.Ops.(*ipc.Endpoint_t)
	_, hs, err := bEp.Recv(receiver.Handles)
	if err != 0 {
		t.Fatalf("recv failed: %v", err)
	}
	if len(hs) != 1 {
		t.Fatalf("expected one transferred handle, got %d", len(hs))
	}
	if _, _, err := receiver.Handles.Lookup(hs[0]); err != 0 {
		t.Fatal("receiver should now hold the transferred handle")
	}
	_ = ha
	_ = hb
}

func TestPagemapIsolationAcrossProcesses(t *testing.T) {
	k := Boot(Config{Pages: 64, NamespaceBuckets: 8})
	go k.Run()
	defer k.Shutdown()

	a, err := proc.CreateProcess(k.PMM)
	if err != 0 {
		t.Fatalf("create process a failed: %v", err)
	}
	b, err := proc.CreateProcess(k.PMM)
	if err != 0 {
		t.Fatalf("create process b failed: %v", err)
	}

	vmoObj, v, err := vmo.Create(k.PMM, 1, rights.Default|rights.Map)
	if err != 0 {
		t.Fatalf("vmo create failed: %v", err)
	}
	defer vmoObj.Deref()

	const virt = 0x400000
	if err := v.Map(a.Pagemap, virt, mmu.FlagWrite|mmu.FlagUser, rights.Default|rights.Map); err != 0 {
		t.Fatalf("map into process a failed: %v", err)
	}

	if _, ok := a.Pagemap.VirtToPhys(virt); !ok {
		t.Fatal("expected virt mapped in process a's pagemap")
	}
	if _, ok := b.Pagemap.VirtToPhys(virt); ok {
		t.Fatal("process b's pagemap should not see process a's mapping")
	}

	// The scheduler must install a thread's process's pagemap as the
	// active one on every context switch.
	done := make(chan struct{})
	_, err = a.Spawn(k.Sched, func(th *proc.Thread) {
		defer close(done)
		if mmu.Current() != a.Pagemap {
			t.Error("scheduler did not switch to the running thread's pagemap")
		}
	})
	if err != 0 {
		t.Fatalf("spawn failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("thread never ran")
	}
}
