package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/diag"
	"proofview/internal/location"
	"proofview/internal/step"
)

// jsonDecoder reads the verifier's --json-ui output: a top-level array of
// heterogeneous entries told apart by their keys.
type jsonDecoder struct {
	canon *location.Canonicalizer
	log   *zap.Logger
}

type jsonMessage struct {
	MessageType string `json:"messageType"`
	MessageText string `json:"messageText"`
}

type jsonResult struct {
	Property    string            `json:"property"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	Trace       []json.RawMessage `json:"trace"`
}

type jsonFunction struct {
	DisplayName    string          `json:"displayName"`
	Identifier     string          `json:"identifier"`
	SourceLocation *SourceLocation `json:"sourceLocation"`
}

type jsonValue struct {
	Name   string `json:"name"`
	Data   string `json:"data"`
	Binary string `json:"binary"`
}

type jsonStep struct {
	StepType       string          `json:"stepType"`
	Hidden         bool            `json:"hidden"`
	SourceLocation *SourceLocation `json:"sourceLocation"`
	AssignmentType string          `json:"assignmentType"`
	LHS            string          `json:"lhs"`
	Value          json.RawMessage `json:"value"`
	Function       *jsonFunction   `json:"function"`
	Property       string          `json:"property"`
	Reason         string          `json:"reason"`
}

func (d *jsonDecoder) decode(r io.Reader) (*Output, error) {
	entries, err := ReadJSON(r)
	if err != nil {
		return nil, err
	}
	out := newOutput()
	for i, entry := range entries {
		if err := d.entry(out, entry); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return out, nil
}

func (d *jsonDecoder) entry(out *Output, entry map[string]json.RawMessage) error {
	if raw, ok := entry["program"]; ok {
		var program string
		if err := json.Unmarshal(raw, &program); err != nil {
			return malformed("program", err)
		}
		out.Program = program
		return nil
	}
	if _, ok := entry["messageType"]; ok {
		var msg jsonMessage
		if err := remarshal(entry, &msg); err != nil {
			return malformed("message", err)
		}
		switch msg.MessageType {
		case "STATUS-MESSAGE":
			out.Status = append(out.Status, msg.MessageText)
		case "WARNING", "ERROR":
			out.Warnings = append(out.Warnings, msg.MessageText)
		default:
			return &diag.Error{Code: diag.InUnknownMessage, Subject: msg.MessageType}
		}
		return nil
	}
	if raw, ok := entry["result"]; ok {
		var results []jsonResult
		if err := json.Unmarshal(raw, &results); err != nil {
			return malformed("result", err)
		}
		for _, res := range results {
			success := res.Status == "SUCCESS"
			out.addResult(res.Property, res.Description, success)
			if success || res.Trace == nil {
				continue
			}
			steps, err := d.trace(res.Trace)
			if err != nil {
				return withSubject(err, res.Property)
			}
			out.Traces[res.Property] = steps
		}
		return nil
	}
	if raw, ok := entry["cProverStatus"]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err != nil {
			return malformed("cProverStatus", err)
		}
		out.Prover = strings.ToLower(status)
		return nil
	}
	return nil
}

func (d *jsonDecoder) trace(raw []json.RawMessage) ([]step.Step, error) {
	steps := make([]step.Step, 0, len(raw))
	for i, item := range raw {
		var js jsonStep
		if err := json.Unmarshal(item, &js); err != nil {
			return nil, malformed(fmt.Sprintf("step %d", i), err)
		}
		st, ok, err := d.step(js)
		if err != nil {
			return nil, err
		}
		if ok {
			steps = append(steps, st)
		}
	}
	return steps, nil
}

func (d *jsonDecoder) step(js jsonStep) (step.Step, bool, error) {
	loc := d.location(js.SourceLocation)
	var st step.Step
	switch js.StepType {
	case "assignment":
		kind := step.VariableAssignment
		switch js.AssignmentType {
		case "variable":
		case "actual-parameter":
			kind = step.ParameterAssignment
		default:
			if js.Hidden {
				return st, false, nil
			}
			return st, false, &diag.Error{Code: diag.InUnknownStep, Subject: "assignment/" + js.AssignmentType}
		}
		value, binary := jsonRender(js.Value)
		st = step.NewAssignment(kind, loc, js.LHS, value, binary)
	case "function-call", "function-return":
		name, calleeLoc := "", location.Missing
		if js.Function != nil {
			name = js.Function.DisplayName
			if name == "" {
				name = js.Function.Identifier
			}
			calleeLoc = d.location(js.Function.SourceLocation)
		}
		if js.StepType == "function-call" {
			st = step.NewCall(loc, name, calleeLoc)
		} else {
			st = step.NewReturn(loc, name, calleeLoc)
		}
	case "failure":
		st = step.NewFailure(loc, js.Property, js.Reason)
	case "location-only":
		st = step.NewLocationOnly(loc)
	default:
		if js.Hidden {
			d.log.Debug("dropped hidden step", zap.String("stepType", js.StepType))
			return st, false, nil
		}
		return st, false, &diag.Error{Code: diag.InUnknownStep, Subject: js.StepType}
	}
	st.Hidden = js.Hidden
	return st, true, nil
}

func (d *jsonDecoder) location(sl *SourceLocation) location.Location {
	loc := sl.Resolve(d.canon)
	if loc.IsMissing() && sl != nil {
		d.log.Debug("substituted missing location", zap.String("file", sl.File), zap.String("function", sl.Function))
	}
	return loc
}

// jsonRender produces the display form of an assignment value. Pointers to
// objects render as &object; structured values without data fall back to
// their compact json.
func jsonRender(raw json.RawMessage) (value, binary string) {
	if len(raw) == 0 {
		return "", ""
	}
	var v jsonValue
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s, ""
		}
		return compact(raw), ""
	}
	binary = step.BinaryAsBytes(v.Binary)
	switch {
	case v.Name == "pointer" && v.Data != "" && !strings.Contains(v.Data, "NULL"):
		return "&" + v.Data, binary
	case v.Data != "":
		return v.Data, binary
	default:
		return compact(raw), binary
	}
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func remarshal(entry map[string]json.RawMessage, v any) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func malformed(what string, err error) error {
	return &diag.Error{Code: diag.InMalformedInput, Msg: what, Err: err}
}

func withSubject(err error, subject string) error {
	if de, ok := err.(*diag.Error); ok && de.Subject == "" {
		cp := *de
		cp.Subject = subject
		return &cp
	}
	return err
}
