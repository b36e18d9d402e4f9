package address

import "testing"

func TestParseValid(t *testing.T) {
	tests := []struct {
		raw  string
		segs int
	}{
		{"", 0},
		{"source", 1},
		{"pkg.module", 2},
		{"pkg.module.Symbol.method", 4},
		{"_private.mod_2", 2},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			a, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.raw, err)
			}
			if a.Len() != tt.segs {
				t.Errorf("Len = %d, want %d", a.Len(), tt.segs)
			}
			if a.String() != tt.raw {
				t.Errorf("String = %q, want %q", a.String(), tt.raw)
			}
		})
	}
}

func TestParseRejectsUnsafe(t *testing.T) {
	// Rejection must not depend on whether a file exists at the naive
	// translation, so no fixtures here on purpose.
	bad := []string{
		"pkg/module",
		`pkg\module`,
		"..",
		"pkg..module",
		"pkg.",
		".pkg",
		"pkg.mod ule",
		"pkg.2mod",
		"pkg.-x",
		"../etc",
		"pkg.module/../../etc",
	}
	for _, raw := range bad {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q) should have been rejected", raw)
		}
	}
}

func TestChildAndSplit(t *testing.T) {
	a := MustParse("pkg.mod")
	b, err := a.Child("Symbol")
	if err != nil {
		t.Fatalf("Child: %v", err)
	}
	if b.String() != "pkg.mod.Symbol" {
		t.Errorf("Child = %q", b.String())
	}
	if _, err := a.Child("not/ok"); err == nil {
		t.Error("Child with separator should fail")
	}

	head, rest := b.Split(2)
	if head.String() != "pkg.mod" || rest.String() != "Symbol" {
		t.Errorf("Split = %q / %q", head.String(), rest.String())
	}
}

func TestHeadTail(t *testing.T) {
	a := MustParse("a.b.c")
	if a.Head() != "a" {
		t.Errorf("Head = %q", a.Head())
	}
	if a.Tail().String() != "b.c" {
		t.Errorf("Tail = %q", a.Tail().String())
	}
	var empty Address
	if empty.Head() != "" || !empty.Tail().IsEmpty() {
		t.Error("empty address Head/Tail misbehaved")
	}
}
