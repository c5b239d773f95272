package ns

import (
	"testing"

	"defs"
	"obj"
	"stat"
	"ustr"
)

type fakeOps struct{ closed bool }

func (f *fakeOps) Read(buf []byte) (int, defs.Err_t)  { return 0, 0 }
func (f *fakeOps) Write(buf []byte) (int, defs.Err_t) { return len(buf), 0 }
func (f *fakeOps) Close()                             { f.closed = true }
func (f *fakeOps) GetInfo() stat.Info_t               { return stat.Info_t{} }

func TestRegisterLookup(t *testing.T) {
	n := Init(8)
	o := obj.New(defs.OTYPE_DEVICE, &fakeOps{})
	defer o.Deref()

	if err := n.Register(ustr.Ustr("/devices/console"), o); err != 0 {
		t.Fatalf("register failed: %v", err)
	}

	got, err := n.Lookup(ustr.Ustr("/devices/console"))
	if err != 0 {
		t.Fatalf("lookup failed: %v", err)
	}
	defer got.Deref()
	if got != o {
		t.Fatal("lookup returned a different object")
	}
}

func TestRegisterCollision(t *testing.T) {
	n := Init(8)
	o1 := obj.New(defs.OTYPE_DEVICE, &fakeOps{})
	o2 := obj.New(defs.OTYPE_DEVICE, &fakeOps{})
	defer o1.Deref()
	defer o2.Deref()

	n.Register(ustr.Ustr("/x"), o1)
	if err := n.Register(ustr.Ustr("/x"), o2); err == 0 {
		t.Fatal("expected collision error")
	}
}

func TestUnregisterDerefs(t *testing.T) {
	n := Init(8)
	ops := &fakeOps{}
	o := obj.New(defs.OTYPE_DEVICE, ops)

	n.Register(ustr.Ustr("/x"), o)
	o.Deref() // drop creator's reference; namespace still holds one

	if err := n.Unregister(ustr.Ustr("/x")); err != 0 {
		t.Fatalf("unregister failed: %v", err)
	}
	if !ops.closed {
		t.Fatal("unregister should have dropped the namespace's last reference")
	}
}

func TestLookupMissing(t *testing.T) {
	n := Init(8)
	if _, err := n.Lookup(ustr.Ustr("/nope")); err == 0 {
		t.Fatal("expected not-found error")
	}
}
