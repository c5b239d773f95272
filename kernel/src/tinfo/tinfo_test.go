package tinfo

import (
	"testing"

	"defs"
)

func TestDoomedReflectsIsdoomed(t *testing.T) {
	var n Tnote_t
	if n.Doomed() {
		t.Fatal("fresh note should not be doomed")
	}
	n.Isdoomed = true
	if !n.Doomed() {
		t.Fatal("expected doomed after setting Isdoomed")
	}
}

func TestThreadinfoInit(t *testing.T) {
	var ti Threadinfo_t
	ti.Init()
	if ti.Notes == nil {
		t.Fatal("expected Notes map to be allocated")
	}
	ti.Notes[defs.Tid_t(1)] = &Tnote_t{Alive: true}
	if !ti.Notes[defs.Tid_t(1)].Alive {
		t.Fatal("expected stored note to be retrievable")
	}
}
