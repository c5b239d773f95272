package bpath

import (
	"testing"

	"ustr"
)

func TestCanonicalizeAbsolute(t *testing.T) {
	got := Canonicalize(ustr.MkUstrRoot(), ustr.Ustr("/a/b/../c"))
	if got.String() != "/a/c" {
		t.Fatalf("got %q", got.String())
	}
}

func TestCanonicalizeRelative(t *testing.T) {
	got := Canonicalize(ustr.Ustr("/a/b"), ustr.Ustr("../c"))
	if got.String() != "/a/c" {
		t.Fatalf("got %q", got.String())
	}
}

func TestCanonicalizeCollapsesSlashesAndDot(t *testing.T) {
	got := Canonicalize(ustr.MkUstrRoot(), ustr.Ustr("//a//./b/"))
	if got.String() != "/a/b" {
		t.Fatalf("got %q", got.String())
	}
}

func TestCanonicalizeDotDotAtRoot(t *testing.T) {
	got := Canonicalize(ustr.MkUstrRoot(), ustr.Ustr("/../../a"))
	if got.String() != "/a" {
		t.Fatalf("got %q", got.String())
	}
}
