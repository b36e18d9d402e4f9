package resource

import (
	"fmt"
	"strings"
)

// Kind classifies a resourcespace failure.
type Kind int

const (
	// KindAddress covers malformed, unsafe or unresolvable addresses.
	// Always raised before any file access.
	KindAddress Kind = iota + 1

	// KindCapability covers a verb invoked on a Space that does not
	// support it.
	KindCapability

	// KindBudget covers results exceeding the character cap.
	KindBudget

	// KindValidation covers source that fails to parse, standalone or as
	// the resulting whole file.
	KindValidation

	// KindReload covers a write that landed on disk but failed to
	// re-initialize in the running process.
	KindReload

	// KindUndo covers failures of the history-revert operation itself.
	KindUndo
)

func (k Kind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindCapability:
		return "capability"
	case KindBudget:
		return "budget"
	case KindValidation:
		return "validation"
	case KindReload:
		return "reload"
	case KindUndo:
		return "undo"
	}
	return "unknown"
}

// Error is the single structured error type every resourcespace failure is
// reported through. Alternatives, when present, list valid choices the
// caller can retry with; they are rendered as calls, never as bare symbols.
type Error struct {
	Kind         Kind
	Msg          string
	Alternatives []string
}

func (e *Error) Error() string {
	if len(e.Alternatives) == 0 {
		return e.Msg
	}
	calls := make([]string, len(e.Alternatives))
	for i, alt := range e.Alternatives {
		calls[i] = alt + "()"
	}
	return fmt.Sprintf("%s. Valid choices: %s", e.Msg, strings.Join(calls, ", "))
}

// Is matches sentinel errors of the same kind, so callers can write
// errors.Is(err, resource.ErrReload).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == ""
}

// Sentinels for errors.Is kind checks.
var (
	ErrAddress    = &Error{Kind: KindAddress}
	ErrCapability = &Error{Kind: KindCapability}
	ErrBudget     = &Error{Kind: KindBudget}
	ErrValidation = &Error{Kind: KindValidation}
	ErrReload     = &Error{Kind: KindReload}
	ErrUndo       = &Error{Kind: KindUndo}
)

// Addressf builds an addressing error.
func Addressf(format string, args ...any) *Error {
	return &Error{Kind: KindAddress, Msg: fmt.Sprintf(format, args...)}
}

// NoSuchResource builds an addressing error that lists valid siblings.
func NoSuchResource(name string, siblings []string) *Error {
	return &Error{
		Kind:         KindAddress,
		Msg:          fmt.Sprintf("no such resource: %s", name),
		Alternatives: siblings,
	}
}

// Unsupported builds a capability error naming a Space that does support
// the verb.
func Unsupported(verb, here, supporter string) *Error {
	return &Error{
		Kind: KindCapability,
		Msg:  fmt.Sprintf("%s is not supported by %s; try it on %s", verb, here, supporter),
	}
}

// Validationf builds a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Reloadf builds a reload error.
func Reloadf(format string, args ...any) *Error {
	return &Error{Kind: KindReload, Msg: fmt.Sprintf(format, args...)}
}

// Undof builds an undo error.
func Undof(format string, args ...any) *Error {
	return &Error{Kind: KindUndo, Msg: fmt.Sprintf(format, args...)}
}
