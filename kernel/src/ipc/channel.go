// Package ipc implements synchronous two-way Channels: a pair of
// Endpoints, each a bounded FIFO of Messages, each Message carrying a
// byte payload plus zero or more transferred Handles. A direct port of
// original_source/channel.c's channel_create/channel_send/
// channel_recv/channel_close, including its move-semantics handle
// transfer and rollback rules.
package ipc

import (
	"sync"

	"bounds"
	"defs"
	"limits"
	"obj"
	"proc"
	"rights"
	"stat"
)

type transferredHandle struct {
	obj *obj.Object
	r   rights.Rights
}

/// Message_t is one entry in an endpoint's inbound queue.
type Message_t struct {
	Data    []byte
	Handles []transferredHandle
}

/// Endpoint_t is one side of a Channel. Reachable only through a
/// handle-table Object wrapping it (OTYPE_CHANNEL_ENDPOINT).
type Endpoint_t struct {
	mu      sync.Mutex
	peer    *Endpoint_t
	closed  bool
	queue   []*Message_t
	waiters proc.WaitQueue_t
}

/// Create allocates a connected pair of channel endpoints, each wrapped
/// as an OTYPE_CHANNEL_ENDPOINT Object (rights are attached later, by
/// whoever grants handles to them), charging the system channel limit
/// once for the pair. Mirrors channel_create.
func Create() (*obj.Object, *obj.Object, defs.Err_t) {
	if !limits.Syslimit.Channels.Take() {
		return nil, nil, defs.ErrNoMemory
	}
	a := &Endpoint_t{}
	b := &Endpoint_t{}
	a.peer = b
	b.peer = a
	return obj.New(defs.OTYPE_CHANNEL_ENDPOINT, a), obj.New(defs.OTYPE_CHANNEL_ENDPOINT, b), 0
}

/// PeerClosed reports whether this endpoint's peer has closed.
func (e *Endpoint_t) PeerClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peer == nil || e.peer.isClosed()
}

func (e *Endpoint_t) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

/// Send validates and transfers handles, then enqueues a message at
/// the peer's tail, mirroring channel_send. Send does not wake a
/// receiver parked in RecvBlocking; such a receiver is woken only when
/// either endpoint is closed. Every transferred handle's TRANSFER right is checked
/// before any handle is removed from table — either all of them move,
/// or none do.
func (e *Endpoint_t) Send(table *obj.HandleTable, data []byte, hs []defs.Handle_t) defs.Err_t {
	if len(data) > bounds.MAX_MSG_SIZE {
		return defs.ErrMessageTooLarge
	}
	if len(hs) > bounds.MAX_MSG_HANDLES {
		return defs.ErrTooManyHandles
	}

	e.mu.Lock()
	peer := e.peer
	e.mu.Unlock()
	if peer == nil {
		return defs.ErrPeerClosed
	}
	peer.mu.Lock()
	if peer.closed {
		peer.mu.Unlock()
		return defs.ErrPeerClosed
	}
	if len(peer.queue) >= bounds.MAX_QUEUE {
		peer.mu.Unlock()
		return defs.ErrQueueFull
	}
	peer.mu.Unlock()

	// Validate every handle before taking any of them.
	for _, h := range hs {
		_, r, err := table.Lookup(h)
		if err != 0 {
			return err
		}
		if !r.Has(rights.Transfer) {
			return defs.ErrPermissionDenied
		}
	}

	taken := make([]transferredHandle, 0, len(hs))
	for _, h := range hs {
		o, r, err := table.Take(h)
		if err != 0 {
			// Shouldn't happen after validation above, but roll back
			// what we've already taken if it does: each handle goes
			// back into table at its lowest free slot, so its index
			// may differ from the one it had.
			for _, th := range taken {
				table.GrantTaken(th.obj, th.r)
			}
			return err
		}
		taken = append(taken, transferredHandle{obj: o, r: r})
	}

	msg := &Message_t{Data: append([]byte(nil), data...), Handles: taken}

	peer.mu.Lock()
	if peer.closed {
		peer.mu.Unlock()
		// Return the taken handles to the sender, as above.
		for _, th := range taken {
			table.GrantTaken(th.obj, th.r)
		}
		return defs.ErrPeerClosed
	}
	peer.queue = append(peer.queue, msg)
	peer.mu.Unlock()
	return 0
}

/// Recv dequeues this endpoint's oldest message, granting its
/// transferred handles into table. GrantTaken grows the table when it
/// is full, so every handle on the message is granted and none is
/// dropped.
func (e *Endpoint_t) Recv(table *obj.HandleTable) ([]byte, []defs.Handle_t, defs.Err_t) {
	e.mu.Lock()
	if len(e.queue) == 0 {
		peerClosed := e.peer == nil || e.peer.isClosed()
		e.mu.Unlock()
		if peerClosed {
			return nil, nil, defs.ErrPeerClosed
		}
		return nil, nil, defs.ErrWouldBlock
	}
	msg := e.queue[0]
	e.queue = e.queue[1:]
	e.mu.Unlock()

	hs := make([]defs.Handle_t, 0, len(msg.Handles))
	for _, th := range msg.Handles {
		hs = append(hs, table.GrantTaken(th.obj, th.r))
	}
	return msg.Data, hs, 0
}

/// RecvBlocking behaves like Recv but parks the calling thread t on
/// this endpoint's wait queue instead of returning ErrWouldBlock. The
/// queue is woken by Close on either endpoint; Send does not wake it.
func (e *Endpoint_t) RecvBlocking(s *proc.Scheduler, t *proc.Thread, table *obj.HandleTable) ([]byte, []defs.Handle_t, defs.Err_t) {
	for {
		data, hs, err := e.Recv(table)
		if err != defs.ErrWouldBlock {
			return data, hs, err
		}
		e.waiters.Sleep(s, t)
	}
}

/// Close marks the endpoint closed, discards any messages still
/// queued for it (derefing every object those messages were carrying
/// rather than waiting for a receive that will never come — the
/// chosen resolution where the two traced implementations disagreed),
/// and wakes anyone blocked in RecvBlocking so they observe
/// ErrPeerClosed. Mirrors channel_endpoint_close.
func (e *Endpoint_t) Close(s *proc.Scheduler) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	queue := e.queue
	e.queue = nil
	peer := e.peer
	e.mu.Unlock()

	for _, msg := range queue {
		for _, th := range msg.Handles {
			th.obj.Deref()
		}
	}
	e.waiters.WakeAll(s)
	if peer != nil {
		peer.waiters.WakeAll(s)
	}
	if peer == nil || peer.isClosed() {
		limits.Syslimit.Channels.Give()
	}
}

/// GetInfo satisfies obj.Ops for GET_INFO.
func (e *Endpoint_t) GetInfo() stat.Info_t {
	e.mu.Lock()
	defer e.mu.Unlock()
	var st stat.Info_t
	st.Wtype(uint(defs.OTYPE_CHANNEL_ENDPOINT))
	st.Wsize(uint(len(e.queue)))
	return st
}

/// Write satisfies obj.Ops by sending buf to the peer as a message
/// that carries no handles.
func (e *Endpoint_t) Write(buf []byte) (int, defs.Err_t) {
	err := e.Send(nil, buf, nil)
	if err != 0 {
		return 0, err
	}
	return len(buf), 0
}

/// Read drains one message's data with no handle table to grant
/// transferred handles into; any handles on that message are derefed.
func (e *Endpoint_t) Read(buf []byte) (int, defs.Err_t) {
	e.mu.Lock()
	if len(e.queue) == 0 {
		e.mu.Unlock()
		return 0, defs.ErrWouldBlock
	}
	msg := e.queue[0]
	e.queue = e.queue[1:]
	e.mu.Unlock()
	for _, th := range msg.Handles {
		th.obj.Deref()
	}
	return copy(buf, msg.Data), 0
}
