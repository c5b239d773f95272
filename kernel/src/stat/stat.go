// Package stat describes the object-metadata snapshot returned by the
// GET_INFO handle operation.
package stat

/// Info_t is the metadata snapshot returned by ops.GetInfo. Fields are
/// write-once at snapshot time; callers get a copy, never a live view.
type Info_t struct {
	_otype    uint
	_refcount uint
	_size     uint
	_rights   uint
}

/// Wtype records the object's kernel type tag (THREAD, PROCESS, VMO, ...).
func (st *Info_t) Wtype(v uint) {
	st._otype = v
}

/// Wrefcount records the object's refcount at snapshot time.
func (st *Info_t) Wrefcount(v uint) {
	st._refcount = v
}

/// Wsize records the object's size, where applicable (VMOs); zero otherwise.
func (st *Info_t) Wsize(v uint) {
	st._size = v
}

/// Wrights records the rights of the handle used to query this info.
func (st *Info_t) Wrights(v uint) {
	st._rights = v
}

/// Type returns the object's kernel type tag.
func (st *Info_t) Type() uint {
	return st._otype
}

/// Refcount returns the object's refcount at snapshot time.
func (st *Info_t) Refcount() uint {
	return st._refcount
}

/// Size returns the object's size, where applicable.
func (st *Info_t) Size() uint {
	return st._size
}

/// Rights returns the rights of the handle used to query this info.
func (st *Info_t) Rights() uint {
	return st._rights
}
