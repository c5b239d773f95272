// Package ns is the kernel object namespace: a registry mapping
// canonical paths to Objects, so a process can open a handle to
// something (a device, another process, a well-known service channel)
// by name instead of inheriting a handle across a spawn. A direct
// port of original_source/namespace.h's ns_register/ns_unregister/
// ns_lookup, backed by biscuit's sharded, lock-free-read
// hashtable.Hashtable_t instead of a hand-rolled hash table.
package ns

import (
	"bpath"
	"defs"
	"hashtable"
	"obj"
	"ustr"
)

/// Namespace_t maps canonical paths to the Object registered there.
type Namespace_t struct {
	table *hashtable.Hashtable_t
}

/// Init returns an empty namespace sized for nbkts buckets.
func Init(nbkts int) *Namespace_t {
	return &Namespace_t{table: hashtable.MkHash(nbkts)}
}

// canon canonicalizes path against the namespace root so that
// "/devices//console", "/devices/./console" and "/devices/console" all
// name the same registry entry.
func canon(path ustr.Ustr) ustr.Ustr {
	return bpath.Canonicalize(ustr.MkUstrRoot(), path)
}

/// Register publishes o under path, taking a reference on it.
/// ErrInvalidArgument if path is already registered, mirroring
/// ns_register's collision check.
func (n *Namespace_t) Register(path ustr.Ustr, o *obj.Object) defs.Err_t {
	path = canon(path)
	if _, ok := n.table.Get(path); ok {
		return defs.ErrInvalidArgument
	}
	o.Ref()
	n.table.Set(path, o)
	return 0
}

/// Unregister removes path from the namespace and derefs the object it
/// named, mirroring ns_unregister.
func (n *Namespace_t) Unregister(path ustr.Ustr) defs.Err_t {
	path = canon(path)
	v, ok := n.table.Get(path)
	if !ok {
		return defs.ErrNotFound
	}
	n.table.Del(path)
	v.(*obj.Object).Deref()
	return 0
}

/// Lookup returns the object registered at path with an extra
/// reference taken on behalf of the caller, mirroring ns_lookup's "+1
/// ref" contract — the caller owns exactly one reference and must
/// Deref it (typically by granting it into a handle table, which
/// itself takes its own reference, then derefing this one).
func (n *Namespace_t) Lookup(path ustr.Ustr) (*obj.Object, defs.Err_t) {
	path = canon(path)
	v, ok := n.table.Get(path)
	if !ok {
		return nil, defs.ErrNotFound
	}
	o := v.(*obj.Object)
	o.Ref()
	return o, 0
}
