package reconstruct

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"proofview/internal/adapter"
	"proofview/internal/diag"
	"proofview/internal/location"
	"proofview/internal/step"
)

func loc(file, fn string, line int) location.Location {
	return location.Location{File: file, Function: fn, Line: line}
}

var (
	mainLoc   = loc("main.c", "main", 1)
	helperDef = loc("util.c", "helper", 8)
	mallocDef = loc("<builtin-library-malloc>", "malloc", 0)
)

func hidden(s step.Step) step.Step {
	s.Hidden = true
	return s
}

func TestRoundTrip(t *testing.T) {
	raw := []step.Step{
		step.NewAssignment(step.VariableAssignment, loc("main.c", "main", 2), "a", "1", ""),
		step.NewLocationOnly(loc("main.c", "main", 3)),
		step.NewCall(loc("main.c", "main", 4), "helper", helperDef),
		hidden(step.NewAssignment(step.VariableAssignment, loc("util.c", "helper", 9), "tmp", "0", "")),
		step.NewAssignment(step.ParameterAssignment, loc("util.c", "helper", 8), "p", "1", ""),
		step.NewReturn(loc("util.c", "helper", 10), "helper", helperDef),
		step.NewAssumption(loc("main.c", "main", 5), "a > 0"),
		step.NewFailure(loc("main.c", "main", 6), "main.assertion.1", "assertion a == 0"),
	}
	tr, err := Reconstruct("main.assertion.1", raw)
	require.NoError(t, err)

	want := []step.Step{raw[0], raw[2], raw[4], raw[5], raw[6], raw[7]}
	if diff := cmp.Diff(want, tr.Steps()); diff != "" {
		t.Errorf("steps (-want +got):\n%s", diff)
	}
	require.Equal(t, "main.assertion.1", tr.Property())
}

func TestBuiltinReturnInsertion(t *testing.T) {
	site := loc("main.c", "main", 4)
	internal := loc("<builtin-library-malloc>", "malloc", 12)
	other := step.NewAssignment(step.VariableAssignment, loc("main.c", "main", 5), "p", "&obj", "")
	raw := []step.Step{
		step.NewCall(site, "malloc", mallocDef),
		step.NewAssignment(step.ParameterAssignment, loc("main.c", "main", 4), "size", "8", ""),
		step.NewAssignment(step.VariableAssignment, internal, "malloc_res", "&obj", ""),
		other,
	}
	tr, err := Reconstruct("p", raw)
	require.NoError(t, err)

	want := []step.Step{
		raw[0], raw[1], raw[2],
		step.NewReturn(internal, "malloc", site),
		other,
	}
	if diff := cmp.Diff(want, tr.Steps()); diff != "" {
		t.Errorf("steps (-want +got):\n%s", diff)
	}
}

func TestBuiltinExplicitReturnNotDuplicated(t *testing.T) {
	site := loc("main.c", "main", 4)
	raw := []step.Step{
		step.NewCall(site, "malloc", mallocDef),
		step.NewReturn(loc("<builtin-library-malloc>", "malloc", 20), "malloc", mallocDef),
		step.NewAssignment(step.VariableAssignment, loc("main.c", "main", 5), "p", "&obj", ""),
	}
	tr, err := Reconstruct("p", raw)
	require.NoError(t, err)
	if diff := cmp.Diff(raw, tr.Steps()); diff != "" {
		t.Errorf("steps (-want +got):\n%s", diff)
	}
}

func TestDanglingFrameClosure(t *testing.T) {
	fDef, gDef := loc("a.c", "f", 1), loc("a.c", "g", 10)
	last := loc("a.c", "g", 11)
	raw := []step.Step{
		step.NewCall(loc("a.c", "main", 3), "f", fDef),
		step.NewCall(last, "g", gDef),
	}
	tr, err := Reconstruct("p", raw)
	require.NoError(t, err)

	want := append(raw[:2:2],
		step.NewReturn(last, "g", gDef),
		step.NewReturn(last, "f", fDef),
	)
	if diff := cmp.Diff(want, tr.Steps()); diff != "" {
		t.Errorf("steps (-want +got):\n%s", diff)
	}
}

func TestConsistencyErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []step.Step
		code diag.Code
	}{
		{
			name: "underflow",
			raw: []step.Step{
				step.NewAssignment(step.VariableAssignment, mainLoc, "a", "1", ""),
				step.NewReturn(mainLoc, "helper", helperDef),
			},
			code: diag.ConStackUnderflow,
		},
		{
			name: "mismatch",
			raw: []step.Step{
				step.NewCall(mainLoc, "helper", helperDef),
				step.NewReturn(mainLoc, "other", helperDef),
			},
			code: diag.ConReturnMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconstruct("prop", tt.raw)
			require.Error(t, err)
			require.Equal(t, tt.code, diag.CodeOf(err))
			require.True(t, diag.IsFatal(err))
			require.Contains(t, err.Error(), "prop")
		})
	}
}

func TestOutputAlwaysNested(t *testing.T) {
	calls := func(names ...string) []step.Step {
		var out []step.Step
		for i, n := range names {
			callee := loc("x.c", n, 1)
			if strings.HasPrefix(n, "<") {
				callee = loc(n, n, 0)
			}
			out = append(out, step.NewCall(loc("x.c", "caller", i+1), n, callee))
			out = append(out, step.NewAssignment(step.VariableAssignment, loc("x.c", n, i+2), "v", "0", ""))
		}
		return out
	}
	inputs := [][]step.Step{
		nil,
		calls("a"),
		calls("a", "b", "c"),
		calls("a", "<builtin-library-free>", "b"),
		calls("<builtin-library-malloc>", "<builtin-library-memcpy>"),
		append(calls("a", "b"), step.NewReturn(loc("x.c", "b", 9), "b", loc("x.c", "b", 1))),
	}
	for i, raw := range inputs {
		tr, err := Reconstruct("p", raw)
		require.NoError(t, err, "input %d", i)
		require.NoError(t, CheckNesting(tr.Steps()), "input %d", i)

		open := 0
		for _, s := range tr.Steps() {
			switch s.Kind {
			case step.FunctionCall:
				open++
			case step.FunctionReturn:
				open--
			}
		}
		require.Zero(t, open, "input %d leaves frames open", i)
	}
}

const endToEnd = `[
  {"result": [{"property": "helper.pointer_dereference.1", "description": "dereference failure: pointer NULL", "status": "FAILURE",
    "trace": [
      {"stepType": "function-call", "hidden": false,
       "sourceLocation": {"file": "main.c", "function": "main", "line": "3"},
       "function": {"displayName": "helper", "identifier": "helper",
                    "sourceLocation": {"file": "util.c", "function": "helper", "line": "8"}}},
      {"stepType": "assignment", "hidden": false, "assignmentType": "actual-parameter", "lhs": "x",
       "sourceLocation": {"file": "util.c", "function": "helper", "line": "8"}, "value": {"name": "integer", "data": "5"}},
      {"stepType": "assignment", "hidden": false, "assignmentType": "variable", "lhs": "y",
       "sourceLocation": {"file": "util.c", "function": "helper", "line": "10"}, "value": {"name": "integer", "data": "10"}},
      {"stepType": "function-call", "hidden": false,
       "sourceLocation": {"file": "util.c", "function": "helper", "line": "12"},
       "function": {"displayName": "builtin_malloc", "identifier": "malloc",
                    "sourceLocation": {"file": "<builtin-library-malloc>", "function": "malloc", "line": "0"}}},
      {"stepType": "failure", "hidden": false, "property": "helper.pointer_dereference.1", "reason": "null pointer dereference",
       "sourceLocation": {"file": "util.c", "function": "helper", "line": "13"}}
    ]}]}
]`

func TestEndToEndJSON(t *testing.T) {
	p := adapter.New(location.MustNew("/proj", "/proj"), nil)
	out, err := p.ParseReader(adapter.FormatJSON, strings.NewReader(endToEnd))
	require.NoError(t, err)

	store, err := Build(out.Traces)
	require.NoError(t, err)
	tr, ok := store.Get("helper.pointer_dereference.1")
	require.True(t, ok)
	require.Equal(t, 7, tr.Len())

	var kinds []string
	for _, s := range tr.Steps() {
		name := s.Kind.String()
		if s.Call != nil {
			name += "(" + s.Call.Name + ")"
		}
		kinds = append(kinds, name)
	}
	want := []string{
		"function-call(helper)",
		"parameter-assignment",
		"variable-assignment",
		"function-call(builtin_malloc)",
		"function-return(builtin_malloc)",
		"failure",
		"function-return(helper)",
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}

	mallocReturn := tr.At(4)
	require.Equal(t, loc("util.c", "helper", 12), mallocReturn.Call.Location)
	require.Equal(t, loc("util.c", "helper", 12), mallocReturn.Location)
	helperReturn := tr.At(6)
	require.Equal(t, loc("util.c", "helper", 13), helperReturn.Location)
	require.Equal(t, loc("util.c", "helper", 8), helperReturn.Call.Location)
}

func TestStoreDumpAndLoad(t *testing.T) {
	store, err := Build(map[string][]step.Step{
		"b": {step.NewCall(mainLoc, "helper", helperDef)},
		"a": {step.NewFailure(mainLoc, "a", "boom")},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, store.Names())

	b, err := json.Marshal(store)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), `{"a":[`), "dump = %s", b)

	loaded, err := Load(b)
	require.NoError(t, err)
	if diff := cmp.Diff(store.Map(), loaded.Map()); diff != "" {
		t.Errorf("loaded store (-want +got):\n%s", diff)
	}

	_, err = Load([]byte(`{"x": [{"kind": "function-return", "location": {"file": "a.c", "function": "f", "line": 1}, "detail": {"name": "f", "location": {"file": "a.c", "function": "f", "line": 1}}}]}`))
	require.Equal(t, diag.ConStackUnderflow, diag.CodeOf(err))
}
