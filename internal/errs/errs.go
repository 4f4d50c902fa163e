package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure the core can return.
type Kind string

const (
	Validation         Kind = "validation"
	NotFound           Kind = "not_found"
	CircularDependency Kind = "circular_dependency"
	InvalidTransition  Kind = "invalid_transition"
	Overflow           Kind = "overflow"
	MCBudgetExceeded   Kind = "mc_budget_exceeded"
	Configuration      Kind = "configuration"
	EmptyProject       Kind = "empty_project"
)

// Error is the single error type returned by the core packages.
type Error struct {
	Kind  Kind
	Op    string   // operation that failed, e.g. "cpm.Compute"
	Msg   string
	Cycle []string // participating nodes for CircularDependency
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Cycle) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Cycle, " -> "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewCycle builds a CircularDependency error carrying the cycle path.
func NewCycle(op string, cycle []string) *Error {
	return &Error{
		Kind:  CircularDependency,
		Op:    op,
		Msg:   "dependency cycle detected",
		Cycle: append([]string(nil), cycle...),
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Cycle returns the cycle path attached to a CircularDependency error.
func Cycle(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Cycle
	}
	return nil
}
