// Package diag collects internal diagnostics raised while lowering, optimizing
// and emitting a program. Diagnostics are non-fatal by default: a Reporter with
// the Continue policy records and forwards them and lets the caller degrade to a
// best-effort result. The Abort policy turns every report into an error.
package diag

import (
	"errors"
	"fmt"
)

// Sentinel errors that a *Error unwraps to.
var (
	ErrInternal  = errors.New("internal error")
	ErrUnhandled = errors.New("unhandled value")
	ErrAssertion = errors.New("assertion failed")
	ErrExhausted = errors.New("resource exhausted")
)

// Severity of a diagnostic
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "internal error"
	case SeverityWarning:
		return "warning"
	}
	return "?"
}

// Category classifies a diagnostic by the error taxonomy
type Category int

const (
	// Misuse is structural misuse: double termination, wrong operand shape
	Misuse Category = iota
	// Unhandled is an enumerant that some dispatch did not recognize
	Unhandled
	// Exhaustion is a resource running out (the register pool)
	Exhaustion
)

func (c Category) String() string {
	switch c {
	case Misuse:
		return "misuse"
	case Unhandled:
		return "unhandled"
	case Exhaustion:
		return "exhaustion"
	}
	return "?"
}

func (c Category) sentinel() error {
	switch c {
	case Unhandled:
		return ErrUnhandled
	case Exhaustion:
		return ErrExhausted
	}
	return ErrAssertion
}

// Diagnostic is one reported problem
type Diagnostic struct {
	Func     string // reporting function
	Category Category
	Severity Severity
	Detail   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s(%s): %s", d.Severity, d.Func, d.Detail)
}

// Error wraps a Diagnostic raised under the Abort policy
type Error struct {
	Diag Diagnostic
}

func (e *Error) Error() string {
	return e.Diag.String()
}

// Unwrap returns the sentinel for the diagnostic's category
func (e *Error) Unwrap() []error {
	return []error{ErrInternal, e.Diag.Category.sentinel()}
}

// Policy decides whether a report stops the caller
type Policy int

const (
	// Continue records the diagnostic and returns nil
	Continue Policy = iota
	// Abort records the diagnostic and returns it as an *Error
	Abort
)

// Sink receives diagnostics as they are reported
type Sink interface {
	Emit(d Diagnostic)
}

// Reporter records diagnostics and applies the policy
type Reporter struct {
	policy Policy
	sink   Sink
	diags  []Diagnostic
}

// NewReporter creates a reporter. sink may be nil.
func NewReporter(policy Policy, sink Sink) *Reporter {
	return &Reporter{policy: policy, sink: sink}
}

// Report records a diagnostic. The returned error is nil under Continue.
func (r *Reporter) Report(d Diagnostic) error {
	r.diags = append(r.diags, d)
	if r.sink != nil {
		r.sink.Emit(d)
	}
	if r.policy == Abort && d.Severity == SeverityError {
		return &Error{Diag: d}
	}
	return nil
}

// Errorf reports a structural misuse
func (r *Reporter) Errorf(fn, format string, args ...any) error {
	return r.Report(Diagnostic{Func: fn, Category: Misuse, Severity: SeverityError, Detail: fmt.Sprintf(format, args...)})
}

// Warnf reports a warning. Warnings never abort.
func (r *Reporter) Warnf(fn, format string, args ...any) {
	r.Report(Diagnostic{Func: fn, Category: Misuse, Severity: SeverityWarning, Detail: fmt.Sprintf(format, args...)})
}

// Unhandled reports a value that a dispatch did not recognize
func (r *Reporter) Unhandled(fn, class string, value any) error {
	return r.Report(Diagnostic{Func: fn, Category: Unhandled, Severity: SeverityError, Detail: fmt.Sprintf("unhandled %s: '%v'", class, value)})
}

// AssertFailed reports a failed shape assertion named by test
func (r *Reporter) AssertFailed(fn, test string) error {
	return r.Report(Diagnostic{Func: fn, Category: Misuse, Severity: SeverityError, Detail: test + " assertion failed"})
}

// Exhausted reports that a resource ran out
func (r *Reporter) Exhausted(fn, format string, args ...any) error {
	return r.Report(Diagnostic{Func: fn, Category: Exhaustion, Severity: SeverityError, Detail: fmt.Sprintf(format, args...)})
}

// Diagnostics returns every diagnostic reported so far
func (r *Reporter) Diagnostics() []Diagnostic {
	return r.diags
}

// Count returns the number of error-severity diagnostics
func (r *Reporter) Count() int {
	n := 0
	for _, d := range r.diags {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}
