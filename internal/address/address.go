// Package address implements the dotted semantic addressing scheme.
//
// An address is a dot-separated sequence of identifiers, optionally followed
// by a symbol path that selects a declaration inside a module:
//
//	pkg.subpkg.module
//	pkg.module.Symbol.method
//
// Addresses never contain physical path syntax. Validation runs before any
// file access and rejects separators, traversal sequences and empty segments
// outright, regardless of whether a file would exist at the naive translation.
package address

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Address is a validated dotted address. The zero value is the empty address.
type Address struct {
	segs []string
}

// Parse validates raw and returns the parsed address. The empty string parses
// to the empty address (meaning "the current resource itself").
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, nil
	}
	if strings.ContainsAny(raw, `/\`) {
		return Address{}, fmt.Errorf("address %q contains a path separator; use dotted form like pkg.module", raw)
	}
	if strings.Contains(raw, "..") {
		return Address{}, fmt.Errorf("address %q contains an empty or traversal segment", raw)
	}
	segs := strings.Split(raw, ".")
	for _, s := range segs {
		if s == "" {
			return Address{}, fmt.Errorf("address %q contains an empty segment", raw)
		}
		if !identRe.MatchString(s) {
			return Address{}, fmt.Errorf("address segment %q is not an identifier", s)
		}
	}
	return Address{segs: segs}, nil
}

// MustParse parses raw and panics on error. For tests and static addresses.
func MustParse(raw string) Address {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// IsEmpty reports whether the address has no segments.
func (a Address) IsEmpty() bool { return len(a.segs) == 0 }

// Segments returns a copy of the address segments.
func (a Address) Segments() []string {
	out := make([]string, len(a.segs))
	copy(out, a.segs)
	return out
}

// Len returns the number of segments.
func (a Address) Len() int { return len(a.segs) }

// Head returns the first segment, or "" for the empty address.
func (a Address) Head() string {
	if len(a.segs) == 0 {
		return ""
	}
	return a.segs[0]
}

// Tail returns the address without its first segment.
func (a Address) Tail() Address {
	if len(a.segs) <= 1 {
		return Address{}
	}
	return Address{segs: a.segs[1:]}
}

// Child returns the address extended by one validated segment.
func (a Address) Child(name string) (Address, error) {
	if !identRe.MatchString(name) {
		return Address{}, fmt.Errorf("address segment %q is not an identifier", name)
	}
	segs := make([]string, 0, len(a.segs)+1)
	segs = append(segs, a.segs...)
	segs = append(segs, name)
	return Address{segs: segs}, nil
}

// Split divides the address at i: the first i segments and the rest.
func (a Address) Split(i int) (Address, Address) {
	if i < 0 {
		i = 0
	}
	if i > len(a.segs) {
		i = len(a.segs)
	}
	return Address{segs: a.segs[:i]}, Address{segs: a.segs[i:]}
}

// String renders the dotted form.
func (a Address) String() string { return strings.Join(a.segs, ".") }

// IsIdent reports whether s is a valid single address segment.
func IsIdent(s string) bool { return identRe.MatchString(s) }
