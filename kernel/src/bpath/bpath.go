// Package bpath canonicalizes namespace paths: collapsing repeated
// separators, resolving "." and ".." components, and anchoring the
// result as an absolute path. The namespace package looks up objects
// by canonical path only, so every path crossing a syscall boundary
// goes through here first.
package bpath

import "ustr"

/// Canonicalize resolves base (an absolute, already-canonical path)
/// against rel (relative or absolute) and returns a new canonical
/// absolute path. "." components are dropped, ".." pops the previous
/// component (or is dropped at the root), and repeated separators
/// collapse to one.
func Canonicalize(base ustr.Ustr, rel ustr.Ustr) ustr.Ustr {
	var comps []ustr.Ustr
	if !rel.IsAbsolute() {
		comps = split(base)
	}
	comps = append(comps, split(rel)...)

	out := make([]ustr.Ustr, 0, len(comps))
	for _, c := range comps {
		switch {
		case c.Isdot():
			continue
		case c.Isdotdot():
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, c)
		}
	}
	return join(out)
}

func split(p ustr.Ustr) []ustr.Ustr {
	var comps []ustr.Ustr
	s := p.String()
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '/' {
			if i > start {
				comps = append(comps, ustr.Ustr(s[start:i]))
			}
			start = i + 1
		}
	}
	return comps
}

func join(comps []ustr.Ustr) ustr.Ustr {
	if len(comps) == 0 {
		return ustr.MkUstrRoot()
	}
	s := ""
	for _, c := range comps {
		s += "/" + c.String()
	}
	return ustr.Ustr(s)
}
