// Package obj implements the kernel's object model: reference-counted
// Objects reachable only through rights-checked Handles in a process's
// HandleTable. Grounded on process_grant_handle's lowest-free-slot,
// doubling-growth handle table and on biscuit's fd.Fd_t/Copyfd pairing
// of an operations vector with a permission mask — here generalized
// from file permission bits to the rights bitmask.
package obj

import (
	"sync"
	"sync/atomic"

	"defs"
	"rights"
	"stat"
)

/// Ops is the operation vector a kernel Object exposes. Not every
/// object type implements every operation meaningfully; unsupported
/// operations return ErrWrongType.
type Ops interface {
	Read(buf []byte) (int, defs.Err_t)
	Write(buf []byte) (int, defs.Err_t)
	Close()
	GetInfo() stat.Info_t
}

/// Object is a reference-counted kernel object. Objects are created
/// with a refcount of one (the creator's reference) and destroyed via
/// their Ops.Close when the count reaches zero.
type Object struct {
	Type     defs.Otype_t
	refcount int32
	Ops      Ops
}

/// New wraps ops as a refcount-one Object of the given type.
func New(t defs.Otype_t, ops Ops) *Object {
	return &Object{Type: t, refcount: 1, Ops: ops}
}

/// Ref increments the object's reference count. Called whenever a new
/// handle is granted to name it.
func (o *Object) Ref() {
	atomic.AddInt32(&o.refcount, 1)
}

/// Deref decrements the reference count and closes the object's Ops
/// when it reaches zero. Called whenever a handle naming the object is
/// closed.
func (o *Object) Deref() {
	if atomic.AddInt32(&o.refcount, -1) == 0 {
		o.Ops.Close()
	}
}

/// Refcount returns the object's current reference count, used by the
/// GET_INFO handle operation.
func (o *Object) Refcount() int {
	return int(atomic.LoadInt32(&o.refcount))
}

type handleEntry struct {
	obj    *Object
	rights rights.Rights
	offset int64 // handle_seek cursor; every fresh grant starts at 0
}

/// HandleTable is a process's private mapping from Handle_t to the
/// (Object, Rights) pair it names. The table starts at
/// bounds.INITIAL_HANDLES slots and doubles on exhaustion, matching
/// process_grant_handle's realloc-doubling growth; a new handle always
/// takes the lowest free slot.
type HandleTable struct {
	mu      sync.Mutex
	entries []handleEntry // nil obj marks a free slot
}

/// NewHandleTable returns an empty table sized to the initial handle
/// capacity.
func NewHandleTable(initial int) *HandleTable {
	return &HandleTable{entries: make([]handleEntry, initial)}
}

/// Grant installs o under a fresh handle with the given rights, taking
/// a reference on o, and returns the new handle. Growth doubles the
/// table when every slot is in use.
func (ht *HandleTable) Grant(o *Object, r rights.Rights) defs.Handle_t {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	for i := range ht.entries {
		if ht.entries[i].obj == nil {
			o.Ref()
			ht.entries[i] = handleEntry{obj: o, rights: r}
			return defs.Handle_t(i)
		}
	}

	old := len(ht.entries)
	grown := make([]handleEntry, old*2)
	copy(grown, ht.entries)
	ht.entries = grown

	o.Ref()
	ht.entries[old] = handleEntry{obj: o, rights: r}
	return defs.Handle_t(old)
}

/// Lookup returns the object and rights named by h, or ErrBadHandle.
func (ht *HandleTable) Lookup(h defs.Handle_t) (*Object, rights.Rights, defs.Err_t) {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	if h < 0 || int(h) >= len(ht.entries) || ht.entries[h].obj == nil {
		return nil, 0, defs.ErrBadHandle
	}
	e := ht.entries[h]
	return e.obj, e.rights, 0
}

/// Check is Lookup followed by a rights check, the combination nearly
/// every syscall handler performs before touching an object.
func (ht *HandleTable) Check(h defs.Handle_t, need rights.Rights) (*Object, defs.Err_t) {
	o, r, err := ht.Lookup(h)
	if err != 0 {
		return nil, err
	}
	if !r.Has(need) {
		return nil, defs.ErrPermissionDenied
	}
	return o, 0
}

/// Seek updates h's seek cursor per whence (defs.SeekSet/SeekCur/SeekEnd)
/// and offset, and returns the resulting absolute offset, mirroring
/// proc_handle_t.offset and handle_seek. SeekEnd bases the new offset on
/// the object's current size as reported by GetInfo.
func (ht *HandleTable) Seek(h defs.Handle_t, offset int64, whence defs.Whence_t) (int64, defs.Err_t) {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	if h < 0 || int(h) >= len(ht.entries) || ht.entries[h].obj == nil {
		return 0, defs.ErrBadHandle
	}
	e := &ht.entries[h]

	var base int64
	switch whence {
	case defs.SeekSet:
		base = 0
	case defs.SeekCur:
		base = e.offset
	case defs.SeekEnd:
		info := e.obj.Ops.GetInfo()
		base = int64(info.Size())
	default:
		return 0, defs.ErrInvalidArgument
	}

	newOffset := base + offset
	if newOffset < 0 {
		return 0, defs.ErrInvalidArgument
	}
	e.offset = newOffset
	return newOffset, 0
}

/// Close removes h from the table and derefs the object it named.
func (ht *HandleTable) Close(h defs.Handle_t) defs.Err_t {
	ht.mu.Lock()
	if h < 0 || int(h) >= len(ht.entries) || ht.entries[h].obj == nil {
		ht.mu.Unlock()
		return defs.ErrBadHandle
	}
	o := ht.entries[h].obj
	ht.entries[h] = handleEntry{}
	ht.mu.Unlock()
	o.Deref()
	return 0
}

/// Duplicate grants a new handle naming the same object as h, with
/// rights reduced to the intersection of h's current rights and mask —
/// rights may only narrow across a duplicate, never widen.
func (ht *HandleTable) Duplicate(h defs.Handle_t, mask rights.Rights) (defs.Handle_t, defs.Err_t) {
	o, r, err := ht.Lookup(h)
	if err != 0 {
		return defs.NoHandle, err
	}
	if !r.Has(rights.Duplicate) {
		return defs.NoHandle, defs.ErrPermissionDenied
	}
	return ht.Grant(o, r.Reduce(mask)), 0
}

/// Take removes h from the table without derefing the object,
/// transferring ownership of its single reference to the caller — the
/// first half of a channel-transfer move.
func (ht *HandleTable) Take(h defs.Handle_t) (*Object, rights.Rights, defs.Err_t) {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	if h < 0 || int(h) >= len(ht.entries) || ht.entries[h].obj == nil {
		return nil, 0, defs.ErrBadHandle
	}
	e := ht.entries[h]
	ht.entries[h] = handleEntry{}
	return e.obj, e.rights, 0
}

/// GrantTaken installs an object+rights pair obtained from Take into
/// this table without taking an additional reference — the second half
/// of a channel-transfer move.
func (ht *HandleTable) GrantTaken(o *Object, r rights.Rights) defs.Handle_t {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	for i := range ht.entries {
		if ht.entries[i].obj == nil {
			ht.entries[i] = handleEntry{obj: o, rights: r}
			return defs.Handle_t(i)
		}
	}
	old := len(ht.entries)
	grown := make([]handleEntry, old*2)
	copy(grown, ht.entries)
	ht.entries = grown
	ht.entries[old] = handleEntry{obj: o, rights: r}
	return defs.Handle_t(old)
}

/// CloseAll closes and derefs every live handle — called when a
/// process is destroyed, mirroring process_destroy's handle sweep.
func (ht *HandleTable) CloseAll() {
	ht.mu.Lock()
	live := make([]*Object, 0, len(ht.entries))
	for i := range ht.entries {
		if ht.entries[i].obj != nil {
			live = append(live, ht.entries[i].obj)
			ht.entries[i] = handleEntry{}
		}
	}
	ht.mu.Unlock()
	for _, o := range live {
		o.Deref()
	}
}
