package pmm

import "testing"

func TestAllocFreeSinglePage(t *testing.T) {
	p := Init(16)
	if p.FreePages() != 16 {
		t.Fatalf("want 16 free, got %d", p.FreePages())
	}
	pa, err := p.Alloc(1)
	if err != 0 {
		t.Fatalf("alloc failed: %v", err)
	}
	if p.FreePages() != 15 {
		t.Fatalf("want 15 free after alloc, got %d", p.FreePages())
	}
	p.Free(pa, 1)
	if p.FreePages() != 16 {
		t.Fatalf("want 16 free after free, got %d", p.FreePages())
	}
}

func TestAllocMultiPageFirstFit(t *testing.T) {
	p := Init(8)
	a, _ := p.Alloc(1)
	b, _ := p.Alloc(1)
	p.Free(a, 1) // punch a one-page hole, not enough for a 2-page run at the front
	run, err := p.Alloc(2)
	if err != 0 {
		t.Fatalf("alloc(2) failed: %v", err)
	}
	if run == a {
		t.Fatalf("2-page run should not fit in the 1-page hole at %v", a)
	}
	_ = b
}

func TestAllocExhaustion(t *testing.T) {
	p := Init(2)
	if _, err := p.Alloc(1); err != 0 {
		t.Fatal(err)
	}
	if _, err := p.Alloc(1); err != 0 {
		t.Fatal(err)
	}
	if _, err := p.Alloc(1); err == 0 {
		t.Fatal("expected exhaustion error")
	}
}

func TestDmapIsolation(t *testing.T) {
	p := Init(4)
	a, _ := p.Alloc(1)
	b, _ := p.Alloc(1)
	da := p.Dmap(a, 1)
	db := p.Dmap(b, 1)
	da[0] = 0xAB
	if db[0] == 0xAB {
		t.Fatal("frames should not alias")
	}
}

func TestRefcounting(t *testing.T) {
	p := Init(2)
	pa, _ := p.Alloc(1)
	p.Refup(pa)
	p.Refup(pa)
	if p.Refcnt(pa) != 2 {
		t.Fatalf("want refcnt 2, got %d", p.Refcnt(pa))
	}
	if p.Refdown(pa) {
		t.Fatal("refdown should not report zero yet")
	}
	if !p.Refdown(pa) {
		t.Fatal("refdown should report zero on last reference")
	}
}
