// Package mmu simulates a 4-level (PML4/PDPT/PD/PT) paging structure
// over the pmm arena. It is a direct port of the amd64 MMU routines —
// get_next_level's lazy intermediate-table allocation, mmu_map_range's
// huge-page opportunism, mmu_unmap_range's "never free leaf data pages"
// rule, mmu_pagemap_create's upper-half kernel sharing — expressed as
// Go slices of entries instead of raw physical memory written through
// an unsafe pointer, since nothing here runs with a real CR3 register
// to reload.
package mmu

import (
	"defs"
	"pmm"
)

/// Flag is a bitmask of mapping attributes, independent of the
/// physical PTE bit layout.
type Flag uint

const (
	FlagWrite Flag = 1 << iota
	FlagUser
	FlagExec
	FlagHuge
)

const entries = 512

/// entry is one of the 512 slots of a paging-hierarchy table: either a
/// pointer to the next level's table (interior) or a mapped frame (leaf).
type entry struct {
	present bool
	pa      pmm.Pa_t // physical frame this entry names (leaf) or the next table (interior)
	flags   Flag
	leaf    bool
}

/// Pagemap_t is one address space's paging structure. Kernel entries
/// (the upper half, indices 256-511 of the PML4) are shared by every
/// pagemap created after Init — installed once by Init and copied by
/// Create, exactly as mmu_pagemap_create copies entries 256-511 from
/// the kernel pagemap.
type Pagemap_t struct {
	pml4   [entries]entry
	tables map[pmm.Pa_t]*[entries]entry // backing storage for allocated sub-levels, keyed by the pa assigned to the entry
	pm     *pmm.PMM_t
}

var kernelPML4 [entries]entry
var kernelInit bool

/// Init installs the kernel's upper-half mappings (indices 256-511),
/// shared verbatim by every pagemap subsequently created with Create.
func Init(pm *pmm.PMM_t, kernelFrames map[uint64]pmm.Pa_t) {
	for virt, pa := range kernelFrames {
		idx := pml4index(virt)
		if idx < 256 {
			continue
		}
		kernelPML4[idx] = entry{present: true, pa: pa, flags: FlagWrite, leaf: false}
	}
	kernelInit = true
}

/// Create allocates a fresh pagemap whose upper half aliases the
/// shared kernel mappings installed by Init and whose lower half
/// starts empty, mirroring mmu_pagemap_create.
func Create(pm *pmm.PMM_t) *Pagemap_t {
	p := &Pagemap_t{tables: make(map[pmm.Pa_t]*[entries]entry), pm: pm}
	if kernelInit {
		for i := 256; i < entries; i++ {
			p.pml4[i] = kernelPML4[i]
		}
	}
	return p
}

// active holds the pagemap currently installed on the single simulated
// CPU — the hosted stand-in for CR3, since nothing here runs with a
// real register to reload. nil means no user address space is active,
// matching a kernel thread's null pagemap.
var active *Pagemap_t

/// Switch installs p as the active pagemap, mirroring mmu_switch's
/// "mov %cr3" load. Called by the scheduler on every context switch.
func Switch(p *Pagemap_t) {
	active = p
}

/// Current returns the pagemap last installed by Switch.
func Current() *Pagemap_t {
	return active
}

func pml4index(v uint64) int { return int((v >> 39) & 0x1ff) }
func pdptindex(v uint64) int { return int((v >> 30) & 0x1ff) }
func pdindex(v uint64) int   { return int((v >> 21) & 0x1ff) }
func ptindex(v uint64) int   { return int((v >> 12) & 0x1ff) }

// getNextLevel returns the table one level down from e, lazily
// allocating a fresh frame-backed table if e is not yet present.
func (p *Pagemap_t) getNextLevel(e *entry) *[entries]entry {
	if !e.present {
		pa, err := p.pm.Alloc(1)
		if err != 0 {
			return nil
		}
		t := &[entries]entry{}
		p.tables[pa] = t
		e.present = true
		e.pa = pa
		e.flags = FlagWrite | FlagUser
		e.leaf = false
		return t
	}
	return p.tables[e.pa]
}

/// MapRange maps npages contiguous pages starting at virt to the
/// contiguous physical frames starting at pa, with the given flags.
/// When FlagHuge is set and both addresses are 2 MiB aligned with at
/// least HUGEPAGE_PAGES remaining, a single PD-level leaf is installed
/// instead of 512 PT-level leaves — the same opportunistic huge-page
/// path mmu_map_range takes.
func (p *Pagemap_t) MapRange(virt uint64, pa pmm.Pa_t, npages int, flags Flag) defs.Err_t {
	remaining := npages
	v := virt
	frame := pa
	for remaining > 0 {
		pdpt := p.getNextLevel(&p.pml4[pml4index(v)])
		if pdpt == nil {
			return defs.ErrNoMemory
		}
		pd := p.getNextLevel(&pdpt[pdptindex(v)])
		if pd == nil {
			return defs.ErrNoMemory
		}

		if flags&FlagHuge != 0 && v%(2<<20) == 0 && uint64(frame)%(2<<20) == 0 && remaining >= 512 {
			pd[pdindex(v)] = entry{present: true, pa: frame, flags: flags, leaf: true}
			v += 2 << 20
			frame += pmm.Pa_t(2 << 20)
			remaining -= 512
			continue
		}

		pt := p.getNextLevel(&pd[pdindex(v)])
		if pt == nil {
			return defs.ErrNoMemory
		}
		pt[ptindex(v)] = entry{present: true, pa: frame, flags: flags &^ FlagHuge, leaf: true}
		v += 4096
		frame += 4096
		remaining--
	}
	return 0
}

/// UnmapRange clears npages leaf entries starting at virt. It never
/// frees the underlying data frames — that is VMO's responsibility,
/// just as mmu_unmap_range leaves freeing page-table data to the VMA
/// system. Empty intermediate tables are left allocated; Destroy
/// reclaims them all at once.
func (p *Pagemap_t) UnmapRange(virt uint64, npages int) {
	v := virt
	for i := 0; i < npages; i++ {
		pml4e := &p.pml4[pml4index(v)]
		if pml4e.present {
			if pdpt := p.tables[pml4e.pa]; pdpt != nil {
				pdpte := &pdpt[pdptindex(v)]
				if pdpte.present {
					if pd := p.tables[pdpte.pa]; pd != nil {
						pde := &pd[pdindex(v)]
						if pde.leaf {
							*pde = entry{}
							v += 2 << 20
							continue
						}
						if pt := p.tables[pde.pa]; pt != nil {
							pt[ptindex(v)] = entry{}
						}
					}
				}
			}
		}
		v += 4096
	}
}

/// VirtToPhys walks the pagemap and returns the physical frame backing
/// virt, or (0, false) if unmapped, mirroring mmu_virt_to_phys.
func (p *Pagemap_t) VirtToPhys(virt uint64) (pmm.Pa_t, bool) {
	pml4e := p.pml4[pml4index(virt)]
	if !pml4e.present {
		return 0, false
	}
	pdpt := p.tables[pml4e.pa]
	pdpte := pdpt[pdptindex(virt)]
	if !pdpte.present {
		return 0, false
	}
	pd := p.tables[pdpte.pa]
	pde := pd[pdindex(virt)]
	if !pde.present {
		return 0, false
	}
	if pde.leaf {
		off := virt & ((2 << 20) - 1)
		return pde.pa + pmm.Pa_t(off), true
	}
	pt := p.tables[pde.pa]
	pte := pt[ptindex(virt)]
	if !pte.present {
		return 0, false
	}
	off := virt & 0xfff
	return pte.pa + pmm.Pa_t(off), true
}

/// Destroy recursively frees every lower-half (user, indices 0-255)
/// intermediate table, exactly as mmu_pagemap_destroy does, leaving
/// the shared upper half untouched since some other pagemap still
/// references it.
func (p *Pagemap_t) Destroy() {
	for i := 0; i < 256; i++ {
		e := &p.pml4[i]
		if e.present {
			p.freeTable(e.pa, 3)
		}
		*e = entry{}
	}
}

func (p *Pagemap_t) freeTable(pa pmm.Pa_t, level int) {
	t := p.tables[pa]
	if t == nil {
		return
	}
	if level > 1 {
		for i := range t {
			if t[i].present && !t[i].leaf {
				p.freeTable(t[i].pa, level-1)
			}
		}
	}
	delete(p.tables, pa)
	p.pm.Free(pa, 1)
}
