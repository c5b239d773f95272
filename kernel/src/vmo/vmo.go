// Package vmo implements Virtual Memory Objects: a resizable bag of
// physical pages that may be mapped into one or more address spaces.
// A direct port of vmo_create/vmo_read/vmo_write/vmo_map/vmo_unmap,
// with VMO_OBJ_READ/WRITE/CLOSE expressed as obj.Ops so a VMO is a
// first-class handle-table object like everything else in this core.
package vmo

import (
	"sync"

	"bounds"
	"defs"
	"mmu"
	"obj"
	"pmm"
	"rights"
	"stat"
)

/// Vmo_t is a Virtual Memory Object: committed pages plus the set of
/// address spaces it is currently mapped into.
type Vmo_t struct {
	mu     sync.Mutex
	pm     *pmm.PMM_t
	pages  []pmm.Pa_t // one physical frame per page of the object; always NoFrame-free once Create succeeds
	maps   []mapping
	closed bool
}

type mapping struct {
	pmap *mmu.Pagemap_t
	virt uint64
	r    rights.Rights
}

/// Create allocates a VMO of npages pages, fully committed up front —
/// vmo_create does `kzalloc(size)` and sets `committed = size`
/// immediately, with no lazy/deferred path anywhere in the original.
/// On an allocation failure partway through, every frame already taken
/// is returned to pm before reporting the error.
func Create(pm *pmm.PMM_t, npages int, r rights.Rights) (*obj.Object, *Vmo_t, defs.Err_t) {
	pages := make([]pmm.Pa_t, npages)
	for i := range pages {
		pa, err := pm.Alloc(1)
		if err != 0 {
			for j := 0; j < i; j++ {
				pm.Free(pages[j], 1)
			}
			return nil, nil, err
		}
		pages[i] = pa
	}
	v := &Vmo_t{pm: pm, pages: pages}
	return obj.New(defs.OTYPE_VMO, v), v, 0
}

/// Read copies up to len(buf) bytes from the start of the VMO (byte
/// offset 0) into buf, mirroring vmo_read.
func (v *Vmo_t) Read(buf []byte) (int, defs.Err_t) {
	return v.ReadAt(buf, 0)
}

/// ReadAt is Read with an explicit offset, since obj.Ops.Read has no
/// offset parameter of its own. Syscall dispatch does not call it:
/// HandleRead goes through the Ops vector, so a read through a VMO
/// handle always starts at offset 0 and ignores the handle's seek
/// cursor.
func (v *Vmo_t) ReadAt(buf []byte, off uint64) (int, defs.Err_t) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, defs.ErrBadHandle
	}
	n := 0
	for n < len(buf) {
		page := int((off + uint64(n)) / uint64(bounds.PGSIZE))
		if page >= len(v.pages) {
			break
		}
		pageoff := (off + uint64(n)) % uint64(bounds.PGSIZE)
		data := v.pm.Dmap(v.pages[page], 1)
		cnt := copy(buf[n:], data[pageoff:])
		n += cnt
	}
	return n, 0
}

/// Write copies buf into the VMO at offset 0. As with Read, this is the
/// method HandleWrite reaches through obj.Ops; WriteAt is used only by
/// direct callers.
func (v *Vmo_t) Write(buf []byte) (int, defs.Err_t) {
	return v.WriteAt(buf, 0)
}

/// WriteAt is Write with an explicit offset.
func (v *Vmo_t) WriteAt(buf []byte, off uint64) (int, defs.Err_t) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, defs.ErrBadHandle
	}
	n := 0
	for n < len(buf) {
		page := int((off + uint64(n)) / uint64(bounds.PGSIZE))
		if page >= len(v.pages) {
			break
		}
		pageoff := (off + uint64(n)) % uint64(bounds.PGSIZE)
		data := v.pm.Dmap(v.pages[page], 1)
		cnt := copy(data[pageoff:], buf[n:])
		n += cnt
	}
	return n, 0
}

/// Size reports the VMO's size in bytes.
func (v *Vmo_t) Size() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return uint64(len(v.pages)) * uint64(bounds.PGSIZE)
}

/// GetInfo satisfies obj.Ops for the GET_INFO handle operation.
func (v *Vmo_t) GetInfo() stat.Info_t {
	v.mu.Lock()
	defer v.mu.Unlock()
	var st stat.Info_t
	st.Wtype(uint(defs.OTYPE_VMO))
	st.Wsize(uint(len(v.pages)) * uint(bounds.PGSIZE))
	return st
}

/// Map installs every (already-committed) page of the VMO into pmap at
/// virt with the given flags, recording the mapping so a shrinking
/// Resize can unmap the discarded tail from it (a growing Resize does
/// not extend existing mappings), matching vmo_map.
func (v *Vmo_t) Map(pmap *mmu.Pagemap_t, virt uint64, flags mmu.Flag, r rights.Rights) defs.Err_t {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return defs.ErrBadHandle
	}
	if !r.Has(rights.Map) {
		return defs.ErrPermissionDenied
	}
	for i, pa := range v.pages {
		if err := pmap.MapRange(virt+uint64(i*bounds.PGSIZE), pa, 1, flags); err != 0 {
			return err
		}
	}
	v.maps = append(v.maps, mapping{pmap: pmap, virt: virt, r: r})
	return 0
}

/// Unmap tears down the mapping of this VMO at virt in pmap, mirroring
/// vmo_unmap. The VMO's pages are not freed — other mappings, or the
/// VMO's own handle, may still reference them.
func (v *Vmo_t) Unmap(pmap *mmu.Pagemap_t, virt uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pmap.UnmapRange(virt, len(v.pages))
	for i, m := range v.maps {
		if m.pmap == pmap && m.virt == virt {
			v.maps = append(v.maps[:i], v.maps[i+1:]...)
			break
		}
	}
}

/// Resize grows or shrinks the VMO's page count. Growing commits fresh
/// frames for every added page immediately, same as Create; shrinking
/// frees the discarded pages' frames and unmaps the tail from every
/// address space that currently maps this VMO.
func (v *Vmo_t) Resize(newPages int) defs.Err_t {
	v.mu.Lock()
	defer v.mu.Unlock()
	if newPages < 0 {
		return defs.ErrInvalidArgument
	}
	old := len(v.pages)
	if newPages > old {
		grown := make([]pmm.Pa_t, newPages)
		copy(grown, v.pages)
		for i := old; i < newPages; i++ {
			pa, err := v.pm.Alloc(1)
			if err != 0 {
				for j := old; j < i; j++ {
					v.pm.Free(grown[j], 1)
				}
				return err
			}
			grown[i] = pa
		}
		v.pages = grown
		return 0
	}
	for i := newPages; i < old; i++ {
		v.pm.Free(v.pages[i], 1)
	}
	for _, m := range v.maps {
		m.pmap.UnmapRange(m.virt+uint64(newPages*bounds.PGSIZE), old-newPages)
	}
	v.pages = v.pages[:newPages]
	return 0
}

/// Close releases every committed frame. Called by obj.Object.Deref
/// once the VMO's last handle is closed, matching vmo_obj_close.
func (v *Vmo_t) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	for _, pa := range v.pages {
		v.pm.Free(pa, 1)
	}
	v.pages = nil
}
