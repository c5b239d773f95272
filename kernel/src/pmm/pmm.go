// Package pmm is the physical memory manager: a page-granular allocator
// over a fixed RAM range. Grounded on biscuit's mem.Physmem_t, stripped
// of its per-CPU free lists (SMP is out of scope here, so a single free
// list plus a first-fit multi-page scan is all the single simulated CPU
// needs) and of its direct unsafe-pointer HHDM trick — here physical
// memory is a plain []byte arena and Dmap returns a slice into it,
// standing in for the hardware direct map.
package pmm

import (
	"sync"
	"sync/atomic"

	"bounds"
	"defs"
)

/// Pa_t is a physical address: a byte offset into the simulated RAM
/// arena, always page-aligned when it names a frame.
type Pa_t uint64

/// NoFrame is the null sentinel a failed allocation returns.
const NoFrame Pa_t = ^Pa_t(0)

type physpg_t struct {
	refcnt int32
	nexti  uint32 // index of next page on the free list, or sentinel
}

const freeEnd = ^uint32(0)

/// PMM_t is the physical memory manager for one simulated machine. The
/// zero value is not usable; construct with Init.
type PMM_t struct {
	mu      sync.Mutex
	arena   []byte
	pages   []physpg_t
	npages  uint32
	freei   uint32
	freelen int32
}

/// Init reserves npages page-sized frames of backing storage and
/// returns a ready-to-use manager. All frames start on the free list
/// with a refcount of zero.
func Init(npages int) *PMM_t {
	p := &PMM_t{}
	p.npages = uint32(npages)
	p.arena = make([]byte, npages*bounds.PGSIZE)
	p.pages = make([]physpg_t, npages)
	for i := range p.pages {
		p.pages[i].nexti = uint32(i) + 1
	}
	p.pages[npages-1].nexti = freeEnd
	p.freei = 0
	p.freelen = int32(npages)
	return p
}

func (p *PMM_t) pgn(pa Pa_t) uint32 {
	return uint32(uint64(pa) >> bounds.PGSHIFT)
}

/// Alloc returns n contiguous zero-filled frames, or NoFrame on
/// exhaustion. A single page is served in O(1) from the free list;
/// multiple pages fall back to a first-fit scan since the free list is
/// not kept sorted.
func (p *PMM_t) Alloc(n int) (Pa_t, defs.Err_t) {
	if n <= 0 {
		return NoFrame, defs.ErrInvalidArgument
	}
	if n == 1 {
		return p.allocOne()
	}
	return p.allocFirstFit(n)
}

func (p *PMM_t) allocOne() (Pa_t, defs.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.freei == freeEnd {
		return NoFrame, defs.ErrNoMemory
	}
	idx := p.freei
	p.freei = p.pages[idx].nexti
	p.freelen--
	p.pages[idx].refcnt = 0
	pa := Pa_t(idx) << bounds.PGSHIFT
	zero(p.arena[uint64(pa) : uint64(pa)+uint64(bounds.PGSIZE)])
	return pa, 0
}

func (p *PMM_t) allocFirstFit(n int) (Pa_t, defs.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := make([]bool, p.npages)
	for i := p.freei; i != freeEnd; i = p.pages[i].nexti {
		free[i] = true
	}

	run := 0
	for i := 0; i < int(p.npages); i++ {
		if free[i] {
			run++
			if run == n {
				start := i - n + 1
				p.removeRun(uint32(start), n)
				pa := Pa_t(start) << bounds.PGSHIFT
				zero(p.arena[uint64(pa) : uint64(pa)+uint64(n*bounds.PGSIZE)])
				return pa, 0
			}
		} else {
			run = 0
		}
	}
	return NoFrame, defs.ErrNoMemory
}

// removeRun splices [start, start+n) out of the free list. Only called
// while p.mu is held.
func (p *PMM_t) removeRun(start uint32, n int) {
	inrun := func(idx uint32) bool {
		return idx >= start && idx < start+uint32(n)
	}
	var newHead uint32 = freeEnd
	var tail *uint32
	for i := p.freei; i != freeEnd; {
		next := p.pages[i].nexti
		if !inrun(i) {
			if tail == nil {
				newHead = i
				tail = &p.pages[i].nexti
			} else {
				*tail = i
				tail = &p.pages[i].nexti
			}
		}
		i = next
	}
	if tail != nil {
		*tail = freeEnd
	}
	p.freei = newHead
	p.freelen -= int32(n)
	for i := start; i < start+uint32(n); i++ {
		p.pages[i].refcnt = 0
	}
}

/// Free returns n contiguous frames starting at pa to the free list.
/// Callers — not the PMM — decide when a frame's owner is done with it;
/// the PMM performs no refcounting of its own besides what Refup/Refdown
/// track for callers that share frames (page-table levels do not; VMOs
/// do not either, in this core — circbuf is the only caller of
/// Refup/Refdown, matching mem.Physmem_t's Refcnt).
func (p *PMM_t) Free(pa Pa_t, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	start := p.pgn(pa)
	for i := 0; i < n; i++ {
		idx := start + uint32(i)
		p.pages[idx].nexti = p.freei
		p.freei = idx
		p.freelen++
	}
}

/// Refup increments the reference count of the frame at pa.
func (p *PMM_t) Refup(pa Pa_t) {
	idx := p.pgn(pa)
	atomic.AddInt32(&p.pages[idx].refcnt, 1)
}

/// Refdown decrements the reference count of the frame at pa and
/// reports whether it reached zero.
func (p *PMM_t) Refdown(pa Pa_t) bool {
	idx := p.pgn(pa)
	c := atomic.AddInt32(&p.pages[idx].refcnt, -1)
	if c < 0 {
		panic("pmm: refcount underflow")
	}
	return c == 0
}

/// Refcnt returns a frame's current reference count.
func (p *PMM_t) Refcnt(pa Pa_t) int {
	idx := p.pgn(pa)
	return int(atomic.LoadInt32(&p.pages[idx].refcnt))
}

/// Dmap returns a byte slice over the n pages starting at pa — the
/// simulated stand-in for translating through the kernel's HHDM window.
func (p *PMM_t) Dmap(pa Pa_t, n int) []byte {
	start := uint64(pa)
	end := start + uint64(n)*uint64(bounds.PGSIZE)
	return p.arena[start:end]
}

/// Free pages currently on the free list.
func (p *PMM_t) FreePages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.freelen)
}

/// TotalPages is the number of page frames under management.
func (p *PMM_t) TotalPages() int {
	return int(p.npages)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
