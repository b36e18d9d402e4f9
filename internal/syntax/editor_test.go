package syntax

import (
	"context"
	"errors"
	"strings"
	"testing"

	"codeatlas/internal/resource"
)

const sample = `"""Widgets for the demo tree.

Longer description.
"""

LIMIT = 10


class Widget:
    """A widget."""

    def __init__(self, name):
        self.name = name

    def render(self):
        return self.name.upper()


@staticmethod
def helper():
    return LIMIT


def main():
    return Widget("w").render()
`

func TestValidate(t *testing.T) {
	e := NewEditor()
	ctx := context.Background()

	if err := e.Validate(ctx, []byte(sample)); err != nil {
		t.Fatalf("valid source rejected: %v", err)
	}

	err := e.Validate(ctx, []byte("def broken(:\n    pass\n"))
	if err == nil {
		t.Fatal("invalid source accepted")
	}
	if !errors.Is(err, resource.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLocateTopLevel(t *testing.T) {
	e := NewEditor()
	sym, err := e.Locate(context.Background(), []byte(sample), []string{"Widget"})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if sym.Kind != "class" || sym.Name != "Widget" {
		t.Errorf("got %s %s", sym.Kind, sym.Name)
	}
	if sym.Col != 0 {
		t.Errorf("Col = %d, want 0", sym.Col)
	}
	span, err := Span([]byte(sample), sym.StartLine, sym.EndLine)
	if err != nil {
		t.Fatalf("Span: %v", err)
	}
	if !strings.HasPrefix(span, "class Widget:") {
		t.Errorf("span starts with %q", span[:20])
	}
	if !strings.Contains(span, "def render") {
		t.Error("span should include methods")
	}
}

func TestLocateNestedMethod(t *testing.T) {
	e := NewEditor()
	sym, err := e.Locate(context.Background(), []byte(sample), []string{"Widget", "render"})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if sym.Kind != "function" {
		t.Errorf("Kind = %s", sym.Kind)
	}
	if sym.Col != 4 {
		t.Errorf("Col = %d, want 4", sym.Col)
	}
	span, _ := Span([]byte(sample), sym.StartLine, sym.EndLine)
	if !strings.Contains(span, "def render(self):") {
		t.Errorf("wrong span: %q", span)
	}
}

func TestLocateDecoratedIncludesDecorator(t *testing.T) {
	e := NewEditor()
	sym, err := e.Locate(context.Background(), []byte(sample), []string{"helper"})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	span, _ := Span([]byte(sample), sym.StartLine, sym.EndLine)
	if !strings.HasPrefix(span, "@staticmethod") {
		t.Errorf("decorated span should start at the decorator, got %q", span)
	}
}

func TestLocateMissing(t *testing.T) {
	e := NewEditor()
	_, err := e.Locate(context.Background(), []byte(sample), []string{"Widget", "absent"})
	if err == nil {
		t.Fatal("expected error for missing symbol")
	}
	if !errors.Is(err, resource.ErrAddress) {
		t.Errorf("expected addressing error, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	e := NewEditor()
	s, err := e.Summarize(context.Background(), []byte(sample))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.DocLine != "Widgets for the demo tree." {
		t.Errorf("DocLine = %q", s.DocLine)
	}
	if s.Classes != 1 {
		t.Errorf("Classes = %d", s.Classes)
	}
	if s.Functions != 2 {
		t.Errorf("Functions = %d", s.Functions)
	}
	if s.Constants != 1 {
		t.Errorf("Constants = %d", s.Constants)
	}
}

func TestSymbolsInsideClass(t *testing.T) {
	e := NewEditor()
	syms, err := e.Symbols(context.Background(), []byte(sample), []string{"Widget"})
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	if strings.Join(names, ",") != "__init__,render" {
		t.Errorf("names = %v", names)
	}
}
