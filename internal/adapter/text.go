package adapter

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/diag"
	"proofview/internal/location"
	"proofview/internal/step"
)

type textState uint8

const (
	textNone textState = iota
	textResults
	textTrace
)

var (
	textResult     = regexp.MustCompile(`^\[(.*)\] (?:line [0-9]+ )?(.*): (SUCCESS|FAILURE)$`)
	textTraceStart = regexp.MustCompile(`^Trace for (.+):$`)
	textAssignBin  = regexp.MustCompile(`^([^=]+)=(.+) \(([?{}\[\],01 ]+)\)$`)
	textAssign     = regexp.MustCompile(`^([^=]+)=(.*)$`)
)

// textDecoder is a line-oriented state machine over the verifier's console
// output. Trace steps arrive as blank-line separated blocks which are
// buffered and dispatched on their first line.
type textDecoder struct {
	canon *location.Canonicalizer
	log   *zap.Logger

	out      *Output
	state    textState
	property string
	trace    []step.Step
	block    []string
	blockAt  int
	lineNo   int
}

func (d *textDecoder) decode(r io.Reader) (*Output, error) {
	d.out = newOutput()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		d.lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if d.lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if err := d.line(line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if err := d.endTrace(); err != nil {
		return nil, err
	}
	return d.out, nil
}

func (d *textDecoder) line(line string) error {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(trimmed, "CBMC version"):
		if err := d.endTrace(); err != nil {
			return err
		}
		d.out.Program = trimmed
		d.out.Status = append(d.out.Status, trimmed)
		return nil
	case strings.HasPrefix(trimmed, "**** WARNING:"):
		if err := d.endTrace(); err != nil {
			return err
		}
		d.out.Warnings = append(d.out.Warnings, strings.TrimSpace(strings.TrimPrefix(trimmed, "**** WARNING:")))
		return nil
	case trimmed == "VERIFICATION SUCCESSFUL" || trimmed == "VERIFICATION SUCCEEDED" || trimmed == "VERIFICATION FAILED":
		if err := d.endTrace(); err != nil {
			return err
		}
		d.out.Status = append(d.out.Status, trimmed)
		d.out.Prover = "failure"
		if trimmed != "VERIFICATION FAILED" {
			d.out.Prover = "success"
		}
		d.state = textNone
		return nil
	case trimmed == "** Results:":
		if err := d.endTrace(); err != nil {
			return err
		}
		d.state = textResults
		return nil
	}
	if m := textTraceStart.FindStringSubmatch(trimmed); m != nil {
		if err := d.endTrace(); err != nil {
			return err
		}
		d.state = textTrace
		d.property = m[1]
		d.trace = []step.Step{}
		return nil
	}

	switch d.state {
	case textResults:
		if trimmed == "" {
			return nil
		}
		if m := textResult.FindStringSubmatch(trimmed); m != nil {
			d.out.addResult(m[1], m[2], m[3] == "SUCCESS")
			return nil
		}
		d.out.Status = append(d.out.Status, trimmed)
	case textTrace:
		if trimmed == "" {
			return d.flushBlock()
		}
		if strings.HasPrefix(trimmed, "** ") {
			if err := d.endTrace(); err != nil {
				return err
			}
			d.state = textNone
			d.out.Status = append(d.out.Status, trimmed)
			return nil
		}
		if len(d.block) == 0 {
			d.blockAt = d.lineNo
		}
		d.block = append(d.block, trimmed)
	default:
		if trimmed != "" {
			d.out.Status = append(d.out.Status, trimmed)
		}
	}
	return nil
}

// endTrace dispatches any pending block and stores the current trace.
func (d *textDecoder) endTrace() error {
	if d.state != textTrace {
		return nil
	}
	if err := d.flushBlock(); err != nil {
		return err
	}
	d.out.Traces[d.property] = d.trace
	d.property, d.trace = "", nil
	d.state = textNone
	return nil
}

func (d *textDecoder) flushBlock() error {
	if len(d.block) == 0 {
		return nil
	}
	lines := d.block
	d.block = nil

	head := lines[0]
	switch {
	case head == "Counterexample:":
		return nil
	case strings.HasPrefix(head, "State "):
		return d.stateBlock(lines)
	case head == "Assumption:":
		if len(lines) < 3 {
			return d.malformed("assumption block needs a location and a predicate")
		}
		loc, err := d.location(lines[1])
		if err != nil {
			return err
		}
		d.trace = append(d.trace, step.NewAssumption(loc, lines[2]))
	case head == "Violated property:":
		if len(lines) < 3 {
			return d.malformed("violated property block needs a location and a reason")
		}
		loc, err := d.location(lines[1])
		if err != nil {
			return err
		}
		d.trace = append(d.trace, step.NewFailure(loc, d.property, lines[2]))
	default:
		return &diag.Error{
			Code:    diag.InUnknownStep,
			Subject: head,
			Msg:     fmt.Sprintf("line %d: unrecognized trace block in trace for %s", d.blockAt, d.property),
		}
	}
	return nil
}

// stateBlock handles "State N file f function g line n thread t", a dashed
// separator and the assignment, which may wrap across several lines.
func (d *textDecoder) stateBlock(lines []string) error {
	if len(lines) < 3 || strings.Trim(lines[1], "-") != "" {
		return d.malformed("state block needs a separator and an assignment")
	}
	loc, err := d.location(lines[0])
	if err != nil {
		return err
	}
	assignment := strings.Join(lines[2:], " ")
	if m := textAssignBin.FindStringSubmatch(assignment); m != nil {
		d.trace = append(d.trace, step.NewAssignment(step.VariableAssignment, loc, m[1], m[2], step.BinaryAsBytes(m[3])))
		return nil
	}
	if m := textAssign.FindStringSubmatch(assignment); m != nil {
		d.trace = append(d.trace, step.NewAssignment(step.VariableAssignment, loc, m[1], m[2], ""))
		return nil
	}
	return d.malformed(fmt.Sprintf("cannot parse assignment %q", assignment))
}

func (d *textDecoder) location(s string) (location.Location, error) {
	loc, ok := d.canon.ParseText(s, "")
	if !ok {
		return location.Location{}, d.malformed(fmt.Sprintf("no source location in %q", s))
	}
	if loc.IsMissing() {
		d.log.Debug("substituted missing location", zap.String("text", s), zap.Int("line", d.blockAt))
	}
	return loc, nil
}

func (d *textDecoder) malformed(msg string) error {
	return &diag.Error{
		Code:    diag.InMalformedInput,
		Subject: d.property,
		Msg:     fmt.Sprintf("line %d: %s", d.blockAt, msg),
	}
}
