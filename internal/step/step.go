package step

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"proofview/internal/location"
)

// Assignment is the payload of variable and parameter assignments.
type Assignment struct {
	LHS       string `json:"lhs" msgpack:"lhs"`
	RHSValue  string `json:"rhs-value" msgpack:"rhs_value"`
	RHSBinary string `json:"rhs-binary,omitempty" msgpack:"rhs_binary,omitempty"`
}

// Call is the payload of function calls and returns: the callee and the
// location of its definition.
type Call struct {
	Name     string            `json:"name" msgpack:"name"`
	Location location.Location `json:"location" msgpack:"location"`
}

// Assume is the payload of an assumption.
type Assume struct {
	Predicate string `json:"predicate" msgpack:"predicate"`
}

// Fail is the payload of a property failure.
type Fail struct {
	Property string `json:"property,omitempty" msgpack:"property,omitempty"`
	Reason   string `json:"reason" msgpack:"reason"`
}

// Step is one unit of an execution trace. Exactly one payload pointer is set,
// selected by Kind; LocationOnly steps carry none. Hidden marks verifier
// bookkeeping that is filtered before a trace is finalized.
type Step struct {
	Kind       Kind              `msgpack:"kind"`
	Location   location.Location `msgpack:"location"`
	Assignment *Assignment       `msgpack:"assignment,omitempty"`
	Call       *Call             `msgpack:"call,omitempty"`
	Assume     *Assume           `msgpack:"assume,omitempty"`
	Fail       *Fail             `msgpack:"fail,omitempty"`
	Hidden     bool              `msgpack:"hidden,omitempty"`
}

// NewAssignment builds a variable or parameter assignment step.
func NewAssignment(kind Kind, loc location.Location, lhs, value, binary string) Step {
	return Step{Kind: kind, Location: loc, Assignment: &Assignment{LHS: lhs, RHSValue: value, RHSBinary: binary}}
}

// NewCall builds a function-call step at loc into callee.
func NewCall(loc location.Location, callee string, calleeLoc location.Location) Step {
	return Step{Kind: FunctionCall, Location: loc, Call: &Call{Name: callee, Location: calleeLoc}}
}

// NewReturn builds a function-return step at loc out of callee.
func NewReturn(loc location.Location, callee string, calleeLoc location.Location) Step {
	return Step{Kind: FunctionReturn, Location: loc, Call: &Call{Name: callee, Location: calleeLoc}}
}

// NewAssumption builds an assumption step.
func NewAssumption(loc location.Location, predicate string) Step {
	return Step{Kind: Assumption, Location: loc, Assume: &Assume{Predicate: predicate}}
}

// NewFailure builds a failure step.
func NewFailure(loc location.Location, property, reason string) Step {
	return Step{Kind: Failure, Location: loc, Fail: &Fail{Property: property, Reason: reason}}
}

// NewLocationOnly builds a payload-free step.
func NewLocationOnly(loc location.Location) Step {
	return Step{Kind: LocationOnly, Location: loc}
}

// Validate checks that the payload matches the kind.
func (s Step) Validate() error {
	var ok bool
	switch s.Kind {
	case VariableAssignment, ParameterAssignment:
		ok = s.Assignment != nil
	case FunctionCall, FunctionReturn:
		ok = s.Call != nil
	case Assumption:
		ok = s.Assume != nil
	case Failure:
		ok = s.Fail != nil
	case LocationOnly:
		ok = true
	default:
		return fmt.Errorf("invalid step kind %d", s.Kind)
	}
	if !ok {
		return fmt.Errorf("%s step without payload", s.Kind)
	}
	return nil
}

type wireStep struct {
	Kind     Kind              `json:"kind"`
	Location location.Location `json:"location"`
	Detail   json.RawMessage   `json:"detail"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var detail any
	switch s.Kind {
	case VariableAssignment, ParameterAssignment:
		detail = s.Assignment
	case FunctionCall, FunctionReturn:
		detail = s.Call
	case Assumption:
		detail = s.Assume
	case Failure:
		detail = s.Fail
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireStep{Kind: s.Kind, Location: s.Location, Detail: raw})
}

func (s *Step) UnmarshalJSON(b []byte) error {
	var w wireStep
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out := Step{Kind: w.Kind, Location: w.Location}
	var target any
	switch w.Kind {
	case VariableAssignment, ParameterAssignment:
		out.Assignment = &Assignment{}
		target = out.Assignment
	case FunctionCall, FunctionReturn:
		out.Call = &Call{}
		target = out.Call
	case Assumption:
		out.Assume = &Assume{}
		target = out.Assume
	case Failure:
		out.Fail = &Fail{}
		target = out.Fail
	case LocationOnly:
	default:
		return fmt.Errorf("invalid step kind %d", w.Kind)
	}
	if target != nil {
		if len(w.Detail) == 0 || string(w.Detail) == "null" {
			return fmt.Errorf("%s step without detail", w.Kind)
		}
		if err := json.Unmarshal(w.Detail, target); err != nil {
			return fmt.Errorf("%s detail: %w", w.Kind, err)
		}
	}
	*s = out
	return nil
}

var byteRun = regexp.MustCompile(`[01]{8}`)

// BinaryAsBytes regroups a bit string into space-separated bytes. Anything
// that is not a whole number of bytes of 0/1 digits is returned unchanged.
func BinaryAsBytes(binary string) string {
	if binary == "" {
		return binary
	}
	bits := strings.Join(strings.Fields(binary), "")
	bytes := byteRun.FindAllString(bits, -1)
	if bits != strings.Join(bytes, "") {
		return binary
	}
	return strings.Join(bytes, " ")
}
