// Package bounds collects the fixed numeric limits the core kernel
// enforces: page geometry, channel queue/message bounds, handle table
// growth, and scheduling quanta. Kept as a single leaf package (no
// kernel package depends on anything but constants here) so every
// subsystem agrees on the same numbers.
package bounds

const (
	/// PGSHIFT is the base-2 exponent of the page size.
	PGSHIFT uint = 12
	/// PGSIZE is the size of a single page in bytes.
	PGSIZE int = 1 << PGSHIFT
	/// PGOFFSET masks the in-page offset of an address.
	PGOFFSET uint64 = uint64(PGSIZE) - 1
	/// PGMASK masks the page-aligned part of an address.
	PGMASK uint64 = ^PGOFFSET

	/// HUGEPAGE_SIZE is the size of an opportunistic large mapping.
	HUGEPAGE_SIZE int = 2 << 20
	/// HUGEPAGE_PAGES is HUGEPAGE_SIZE expressed in 4 KiB pages.
	HUGEPAGE_PAGES int = HUGEPAGE_SIZE / PGSIZE

	/// KSTACK_SIZE is the size of a kernel stack allocation in bytes.
	KSTACK_SIZE int = 16 * 1024

	/// INITIAL_HANDLES is the starting capacity of a process handle
	/// table; it doubles on exhaustion.
	INITIAL_HANDLES int = 16

	/// TIME_SLICE is the default number of timer ticks a user-mode
	/// thread runs before preemption.
	TIME_SLICE uint = 10

	/// MAX_QUEUE is the maximum number of messages an endpoint's
	/// inbound queue may hold.
	MAX_QUEUE int = 64
	/// MAX_MSG_SIZE is the maximum byte payload of one channel message.
	MAX_MSG_SIZE int = 64 * 1024
	/// MAX_MSG_HANDLES is the maximum number of handles one channel
	/// message may carry.
	MAX_MSG_HANDLES int = 64

	/// USERVA_BASE is the first address handed out by a process's
	/// bump-allocated virtual-address-area manager when vmo_map is
	/// called with no hint.
	USERVA_BASE uint64 = 0x400000
)
