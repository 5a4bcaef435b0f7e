// Package reconstruct repairs raw verifier step lists into well nested
// traces: hidden bookkeeping is dropped, returns from opaque builtins are
// synthesized and frames still open at the point of failure are closed.
package reconstruct

import (
	"fmt"
	"slices"

	"proofview/internal/diag"
	"proofview/internal/location"
	"proofview/internal/step"
)

// Reconstruct runs the three repair passes over raw and returns the
// finished trace for property.
func Reconstruct(property string, raw []step.Step) (*Trace, error) {
	steps := filter(raw)
	steps = insertBuiltinReturns(steps)
	steps, err := closeFrames(steps)
	if err != nil {
		return nil, withSubject(err, property)
	}
	return &Trace{property: property, steps: steps}, nil
}

// filter drops location-only and hidden steps.
func filter(raw []step.Step) []step.Step {
	out := make([]step.Step, 0, len(raw))
	for _, s := range raw {
		if s.Hidden || s.Kind == step.LocationOnly {
			continue
		}
		out = append(out, s)
	}
	return out
}

// builtinFrame is an open call into a builtin the verifier will never
// return from.
type builtinFrame struct {
	name string
	file string // builtin marker the callee's steps carry
	site location.Location
}

func (f builtinFrame) owns(s step.Step) bool {
	if s.Kind == step.ParameterAssignment {
		return true
	}
	return s.Location.File == f.file
}

// insertBuiltinReturns emits a return for each builtin call just before the
// first step that no longer belongs to it. Builtins calling builtins nest.
func insertBuiltinReturns(steps []step.Step) []step.Step {
	out := make([]step.Step, 0, len(steps)+2)
	var open []builtinFrame

	for _, s := range steps {
		if s.Kind == step.FunctionReturn && len(open) > 0 && s.Call.Name == open[len(open)-1].name {
			open = open[:len(open)-1]
			out = append(out, s)
			continue
		}
		for len(open) > 0 && !open[len(open)-1].owns(s) {
			top := open[len(open)-1]
			open = open[:len(open)-1]
			out = append(out, step.NewReturn(out[len(out)-1].Location, top.name, top.site))
		}
		if s.Kind == step.FunctionCall && s.Call.Location.IsBuiltin() {
			open = append(open, builtinFrame{name: s.Call.Name, file: s.Call.Location.File, site: s.Location})
		}
		out = append(out, s)
	}
	return out
}

type frame struct {
	name string
	loc  location.Location
}

// closeFrames checks call/return nesting and appends returns, innermost
// first, for every frame still open at the end of the trace.
func closeFrames(steps []step.Step) ([]step.Step, error) {
	var stack []frame
	for i, s := range steps {
		switch s.Kind {
		case step.FunctionCall:
			stack = append(stack, frame{name: s.Call.Name, loc: s.Call.Location})
		case step.FunctionReturn:
			if len(stack) == 0 {
				return nil, &diag.Error{
					Code:    diag.ConStackUnderflow,
					Subject: s.Call.Name,
					Msg:     fmt.Sprintf("step %d returns from %s with no open call", i, s.Call.Name),
				}
			}
			top := stack[len(stack)-1]
			if top.name != s.Call.Name {
				return nil, &diag.Error{
					Code:    diag.ConReturnMismatch,
					Subject: s.Call.Name,
					Msg:     fmt.Sprintf("step %d returns from %s but %s is open", i, s.Call.Name, top.name),
				}
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) == 0 {
		return steps, nil
	}

	last := steps[len(steps)-1].Location
	out := slices.Grow(steps, len(stack))
	for _, f := range slices.Backward(stack) {
		out = append(out, step.NewReturn(last, f.name, f.loc))
	}
	return out, nil
}

// CheckNesting reports the first call/return imbalance in steps. Trailing
// open calls are allowed.
func CheckNesting(steps []step.Step) error {
	var names []string
	for i, s := range steps {
		switch s.Kind {
		case step.FunctionCall:
			names = append(names, s.Call.Name)
		case step.FunctionReturn:
			if len(names) == 0 {
				return &diag.Error{Code: diag.ConStackUnderflow, Subject: s.Call.Name, Msg: fmt.Sprintf("step %d", i)}
			}
			if top := names[len(names)-1]; top != s.Call.Name {
				return &diag.Error{Code: diag.ConReturnMismatch, Subject: s.Call.Name, Msg: fmt.Sprintf("step %d closes %s", i, top)}
			}
			names = names[:len(names)-1]
		}
	}
	return nil
}

func withSubject(err error, property string) error {
	if de, ok := err.(*diag.Error); ok {
		cp := *de
		cp.Msg = fmt.Sprintf("trace for %s: %s", property, de.Msg)
		return &cp
	}
	return fmt.Errorf("trace for %s: %w", property, err)
}
