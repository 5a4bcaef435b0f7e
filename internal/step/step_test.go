package step

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"proofview/internal/location"
)

func TestStepJSONShape(t *testing.T) {
	loc := location.Location{File: "main.c", Function: "main", Line: 3}
	s := NewAssignment(VariableAssignment, loc, "x", "5", "00000000 00000101")
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"variable-assignment","location":{"file":"main.c","function":"main","line":3},"detail":{"lhs":"x","rhs-value":"5","rhs-binary":"00000000 00000101"}}`
	if string(b) != want {
		t.Errorf("got  %s\nwant %s", b, want)
	}
}

func TestStepJSONDecode(t *testing.T) {
	loc := location.Location{File: "a.c", Function: "f", Line: 9}
	steps := []Step{
		NewCall(loc, "g", location.Location{File: "b.c", Function: "g", Line: 1}),
		NewReturn(loc, "g", location.Location{File: "b.c", Function: "g", Line: 1}),
		NewAssumption(loc, "x > 0"),
		NewFailure(loc, "f.assertion.1", "assertion x"),
		NewLocationOnly(loc),
	}
	b, err := json.Marshal(steps)
	if err != nil {
		t.Fatal(err)
	}
	var back []Step
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(steps, back); diff != "" {
		t.Errorf("decoded steps differ (-want +got):\n%s", diff)
	}
}

func TestStepJSONRejectsUnknownKind(t *testing.T) {
	var s Step
	err := json.Unmarshal([]byte(`{"kind":"spawn","location":{"file":"a","function":"b","line":1},"detail":{}}`), &s)
	if err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestValidate(t *testing.T) {
	if err := (Step{Kind: FunctionCall}).Validate(); err == nil {
		t.Errorf("call without payload accepted")
	}
	if err := (Step{}).Validate(); err == nil {
		t.Errorf("invalid kind accepted")
	}
	if err := NewLocationOnly(location.Missing).Validate(); err != nil {
		t.Errorf("location-only rejected: %v", err)
	}
}

func TestBinaryAsBytes(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0000000100000010", "00000001 00000010"},
		{"00000001 00000010", "00000001 00000010"},
		{"0101", "0101"},
		{"{ 0, 1 }", "{ 0, 1 }"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BinaryAsBytes(tt.in); got != tt.want {
			t.Errorf("BinaryAsBytes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
