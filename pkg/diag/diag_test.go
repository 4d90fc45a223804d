package diag

import (
	"bytes"
	"errors"
	"testing"
)

func TestContinuePolicyReturnsNil(t *testing.T) {
	r := NewReporter(Continue, nil)
	if err := r.Errorf("Move", "bad shape %d", 3); err != nil {
		t.Fatalf("Errorf under Continue = %v, want nil", err)
	}
	if err := r.Unhandled("Render", "operand tag", "stack"); err != nil {
		t.Fatalf("Unhandled under Continue = %v, want nil", err)
	}
	if r.Count() != 2 {
		t.Errorf("Count = %d, want 2", r.Count())
	}
}

func TestAbortPolicyReturnsTypedError(t *testing.T) {
	r := NewReporter(Abort, nil)
	err := r.AssertFailed("Move", "dest mem")
	if err == nil {
		t.Fatal("AssertFailed under Abort returned nil")
	}
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not *Error", err)
	}
	if de.Diag.Func != "Move" {
		t.Errorf("Func = %q, want Move", de.Diag.Func)
	}
	if !errors.Is(err, ErrAssertion) || !errors.Is(err, ErrInternal) {
		t.Errorf("errors.Is failed for %v", err)
	}
	if errors.Is(err, ErrUnhandled) {
		t.Errorf("assertion error should not match ErrUnhandled")
	}
}

func TestSentinelPerCategory(t *testing.T) {
	r := NewReporter(Abort, nil)
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unhandled", r.Unhandled("f", "tag", 9), ErrUnhandled},
		{"exhausted", r.Exhausted("f", "no registers left"), ErrExhausted},
		{"misuse", r.Errorf("f", "double terminate"), ErrAssertion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.want)
			}
		})
	}
}

func TestWarningsNeverAbort(t *testing.T) {
	r := NewReporter(Abort, nil)
	r.Warnf("f", "odd but fine")
	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0 (warnings are not counted)", r.Count())
	}
	if len(r.Diagnostics()) != 1 {
		t.Errorf("Diagnostics = %d, want 1", len(r.Diagnostics()))
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Continue, NewWriterSink(&buf, "ralph-x64"))
	r.Errorf("Terminate", "attempted to terminate already terminated block %s", ".0003")
	want := "ralph-x64: internal error(Terminate): attempted to terminate already terminated block .0003\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
