package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := &Error{Code: ConReturnMismatch, Path: "cbmc.json", Subject: "helper", Msg: "return from helper while foo is open"}
	want := "CON2002 cbmc.json: return from helper while foo is open: helper"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCodeOfWrapped(t *testing.T) {
	base := Errorf(ConStackUnderflow, "main", "return with empty call stack")
	wrapped := fmt.Errorf("property foo.assertion.1: %w", base)
	if CodeOf(wrapped) != ConStackUnderflow {
		t.Fatalf("CodeOf = %v", CodeOf(wrapped))
	}
	if !errors.Is(wrapped, &Error{Code: ConStackUnderflow}) {
		t.Errorf("errors.Is did not match by code")
	}
	if errors.Is(wrapped, &Error{Code: ConReturnMismatch}) {
		t.Errorf("errors.Is matched a different code")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"missing input", &Error{Code: InMissingInput}, false},
		{"duplicate symbol", &Error{Code: SymDuplicate}, false},
		{"malformed", &Error{Code: InMalformedInput}, true},
		{"plain error", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithPathKeepsCode(t *testing.T) {
	err := WithPath("trace.xml", Errorf(InUnknownStep, "spawn", "unknown xml step"))
	if CodeOf(err) != InUnknownStep {
		t.Fatalf("code lost: %v", err)
	}
	var de *Error
	if !errors.As(err, &de) || de.Path != "trace.xml" {
		t.Fatalf("path not attached: %v", err)
	}
	if CodeOf(WithPath("x.json", errors.New("eof"))) != InMalformedInput {
		t.Errorf("plain errors should become malformed input")
	}
}
