package ipc

import (
	"bytes"
	"testing"

	"bounds"
	"defs"
	"obj"
	"proc"
	"rights"
	"stat"
)

type fakeOps struct{ closed bool }

func (f *fakeOps) Read(buf []byte) (int, defs.Err_t)  { return 0, 0 }
func (f *fakeOps) Write(buf []byte) (int, defs.Err_t) { return len(buf), 0 }
func (f *fakeOps) Close()                             { f.closed = true }
func (f *fakeOps) GetInfo() stat.Info_t               { return stat.Info_t{} }

func TestSendRecvData(t *testing.T) {
	a, b, err := Create()
	if err != 0 {
		t.Fatalf("create failed: %v", err)
	}
	ea := a.Ops.(*Endpoint_t)
	eb := b.Ops.(*Endpoint_t)

	ht := obj.NewHandleTable(4)
	if err := ea.Send(ht, []byte("hello"), nil); err != 0 {
		t.Fatalf("send failed: %v", err)
	}
	data, hs, err := eb.Recv(ht)
	if err != 0 {
		t.Fatalf("recv failed: %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Fatalf("got %q", data)
	}
	if len(hs) != 0 {
		t.Fatalf("expected no handles, got %d", len(hs))
	}
}

func TestHandleTransferMovesOwnership(t *testing.T) {
	a, b, _ := Create()
	ea := a.Ops.(*Endpoint_t)
	eb := b.Ops.(*Endpoint_t)

	senderTable := obj.NewHandleTable(4)
	payload := obj.New(defs.OTYPE_VMO, &fakeOps{})
	h := senderTable.Grant(payload, rights.Default)
	payload.Deref()

	if err := ea.Send(senderTable, nil, []defs.Handle_t{h}); err != 0 {
		t.Fatalf("send failed: %v", err)
	}
	if _, _, err := senderTable.Lookup(h); err == 0 {
		t.Fatal("sender's handle should be gone after a successful transfer")
	}

	receiverTable := obj.NewHandleTable(4)
	_, hs, err := eb.Recv(receiverTable)
	if err != 0 {
		t.Fatalf("recv failed: %v", err)
	}
	if len(hs) != 1 {
		t.Fatalf("expected 1 transferred handle, got %d", len(hs))
	}
	if _, _, err := receiverTable.Lookup(hs[0]); err != 0 {
		t.Fatal("receiver should have the transferred handle")
	}
}

func TestSendRejectsUntransferableHandle(t *testing.T) {
	a, _, _ := Create()
	ea := a.Ops.(*Endpoint_t)

	senderTable := obj.NewHandleTable(4)
	payload := obj.New(defs.OTYPE_VMO, &fakeOps{})
	h := senderTable.Grant(payload, rights.Read) // no Transfer right
	payload.Deref()

	if err := ea.Send(senderTable, nil, []defs.Handle_t{h}); err == 0 {
		t.Fatal("expected permission denied")
	}
	if _, _, err := senderTable.Lookup(h); err != 0 {
		t.Fatal("handle should remain on failed send (no partial transfer)")
	}
}

func TestCloseDiscardsQueuedMessages(t *testing.T) {
	a, b, _ := Create()
	ea := a.Ops.(*Endpoint_t)
	eb := b.Ops.(*Endpoint_t)

	senderTable := obj.NewHandleTable(4)
	payload := obj.New(defs.OTYPE_VMO, &fakeOps{})
	ops := payload.Ops.(*fakeOps)
	h := senderTable.Grant(payload, rights.Default)
	payload.Deref()

	ea.Send(senderTable, []byte("queued"), []defs.Handle_t{h})

	s := proc.NewScheduler()
	eb.Close(s)

	if !ops.closed {
		t.Fatal("closing an endpoint with queued messages should deref their held objects")
	}
}

func TestRecvAfterPeerCloseReportsPeerClosed(t *testing.T) {
	a, b, _ := Create()
	ea := a.Ops.(*Endpoint_t)
	eb := b.Ops.(*Endpoint_t)

	s := proc.NewScheduler()
	ea.Close(s)

	ht := obj.NewHandleTable(4)
	if _, _, err := eb.Recv(ht); err != defs.ErrPeerClosed {
		t.Fatalf("got %v, want ErrPeerClosed", err)
	}
}

func TestMessageSizeLimit(t *testing.T) {
	a, _, _ := Create()
	ea := a.Ops.(*Endpoint_t)
	ht := obj.NewHandleTable(4)
	big := make([]byte, bounds.MAX_MSG_SIZE+1)
	if err := ea.Send(ht, big, nil); err != defs.ErrMessageTooLarge {
		t.Fatalf("got %v, want ErrMessageTooLarge", err)
	}
}
