package adapter

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/diag"
	"proofview/internal/location"
	"proofview/internal/step"
)

// xmlDecoder reads the verifier's --xml-ui output.
type xmlDecoder struct {
	canon *location.Canonicalizer
	log   *zap.Logger
}

func (d *xmlDecoder) decode(r io.Reader) (*Output, error) {
	root, err := ReadXML(r)
	if err != nil {
		return nil, err
	}

	out := newOutput()
	out.Program = root.Text("program")

	err = root.Walk("message", func(m *Node) error {
		kind, _ := m.Attr("type")
		text := m.Text("text")
		switch kind {
		case "STATUS-MESSAGE":
			out.Status = append(out.Status, text)
		case "WARNING", "ERROR":
			out.Warnings = append(out.Warnings, text)
		default:
			return &diag.Error{Code: diag.InUnknownMessage, Subject: kind}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if root.Child("result") != nil {
		err = root.Walk("result", func(res *Node) error {
			name, _ := res.Attr("property")
			status, _ := res.Attr("status")
			success := status == "SUCCESS"
			out.addResult(name, "", success)
			if success {
				return nil
			}
			trace := res.Child("goto_trace")
			if trace == nil {
				return nil
			}
			steps, err := d.trace(trace)
			if err != nil {
				return withSubject(err, name)
			}
			out.Traces[name] = steps
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else if trace := root.Child("goto_trace"); trace != nil {
		// Stop-on-fail output carries one bare trace ending in its failure.
		if failure := trace.Child("failure"); failure != nil {
			name, _ := failure.Attr("property")
			reason, _ := failure.Attr("reason")
			out.addResult(name, reason, false)
			steps, err := d.trace(trace)
			if err != nil {
				return nil, withSubject(err, name)
			}
			out.Traces[name] = steps
		}
	}

	out.Prover = strings.ToLower(root.Text("cprover-status"))
	return out, nil
}

func (d *xmlDecoder) trace(trace *Node) ([]step.Step, error) {
	steps := make([]step.Step, 0, len(trace.Nodes))
	for i := range trace.Nodes {
		n := &trace.Nodes[i]
		st, ok, err := d.step(n)
		if err != nil {
			return nil, err
		}
		if ok {
			steps = append(steps, st)
		}
	}
	return steps, nil
}

func (d *xmlDecoder) step(n *Node) (step.Step, bool, error) {
	hiddenAttr, _ := n.Attr("hidden")
	hidden := hiddenAttr == "true"
	loc := d.location(n.Child("location"))

	var st step.Step
	switch tag := n.XMLName.Local; tag {
	case "assignment":
		kind := step.VariableAssignment
		switch at, _ := n.Attr("assignment_type"); at {
		case "state":
		case "actual_parameter":
			kind = step.ParameterAssignment
		default:
			if hidden {
				return st, false, nil
			}
			return st, false, &diag.Error{Code: diag.InUnknownStep, Subject: "assignment/" + at}
		}
		binary := ""
		if v := n.Child("full_lhs_value"); v != nil {
			b, _ := v.Attr("binary")
			binary = step.BinaryAsBytes(b)
		}
		st = step.NewAssignment(kind, loc, n.Text("full_lhs"), n.Text("full_lhs_value"), binary)
	case "function_call", "function_return":
		name, calleeLoc := "", location.Missing
		if fn := n.Child("function"); fn != nil {
			name, _ = fn.Attr("display_name")
			if name == "" {
				name, _ = fn.Attr("identifier")
			}
			calleeLoc = d.location(fn.Child("location"))
		}
		if tag == "function_call" {
			st = step.NewCall(loc, name, calleeLoc)
		} else {
			st = step.NewReturn(loc, name, calleeLoc)
		}
	case "failure":
		prop, _ := n.Attr("property")
		reason, _ := n.Attr("reason")
		st = step.NewFailure(loc, prop, reason)
	case "location-only", "location_only":
		st = step.NewLocationOnly(loc)
	default:
		if hidden {
			d.log.Debug("dropped hidden step", zap.String("tag", tag))
			return st, false, nil
		}
		return st, false, &diag.Error{Code: diag.InUnknownStep, Subject: tag}
	}
	st.Hidden = hidden
	return st, true, nil
}

func (d *xmlDecoder) location(n *Node) location.Location {
	loc := n.Location(d.canon)
	if loc.IsMissing() {
		d.log.Debug("substituted missing location", zap.Stringer("element", n))
	}
	return loc
}
