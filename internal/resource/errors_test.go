package resource

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	err := Reloadf("module %s failed to import", "pkg.mod")
	if !errors.Is(err, ErrReload) {
		t.Error("reload error should match ErrReload")
	}
	if errors.Is(err, ErrBudget) {
		t.Error("reload error must not match ErrBudget")
	}
}

func TestAlternativesRenderedAsCalls(t *testing.T) {
	err := NoSuchResource("sourc", []string{"source", "deps"})
	msg := err.Error()
	if !strings.Contains(msg, "source()") || !strings.Contains(msg, "deps()") {
		t.Errorf("alternatives should render as calls, got %q", msg)
	}
	if strings.Contains(msg, "source,") {
		t.Errorf("bare symbol leaked into message: %q", msg)
	}
}

func TestCheckBudget(t *testing.T) {
	small := strings.Repeat("a", BudgetCap)
	if got, err := CheckBudget(small); err != nil || got != small {
		t.Errorf("result at cap should pass, err=%v", err)
	}

	big := strings.Repeat("a", BudgetCap+1)
	got, err := CheckBudget(big)
	if err == nil {
		t.Fatal("over-cap result should fail")
	}
	if got != "" {
		t.Error("over-cap result must not be returned, even truncated")
	}
	if !errors.Is(err, ErrBudget) {
		t.Error("budget overflow should be a budget error")
	}
	if !strings.Contains(err.Error(), "10,000") {
		t.Errorf("message should state the cap, got %q", err.Error())
	}
}

func TestUnsupportedNamesASupporter(t *testing.T) {
	err := Unsupported("edit", "deps", "source")
	if !errors.Is(err, ErrCapability) {
		t.Error("should be a capability error")
	}
	if !strings.Contains(err.Error(), "source") {
		t.Errorf("message should name a provider that supports the verb: %q", err.Error())
	}
}

func TestToolMapNamesSorted(t *testing.T) {
	m := ToolMap{"grep": nil, "read": nil, "edit": nil}
	names := m.Names()
	want := []string{"edit", "grep", "read"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("Names = %v, want %v", names, want)
		}
	}
}
