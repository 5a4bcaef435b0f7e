package adapter

import (
	"maps"
	"sort"

	"proofview/internal/step"
)

// Results splits property outcomes into successes and failures, each
// mapping a property name to its description.
type Results struct {
	Success map[string]string
	Failure map[string]string
}

// Output is the common result of every adapter.
type Output struct {
	Program  string
	Status   []string
	Warnings []string
	Results  Results
	Prover   string
	// Traces holds the raw, unrepaired step list of each failed property.
	Traces map[string][]step.Step
}

func newOutput() *Output {
	return &Output{
		Status:   []string{},
		Warnings: []string{},
		Results: Results{
			Success: map[string]string{},
			Failure: map[string]string{},
		},
		Traces: map[string][]step.Step{},
	}
}

func (o *Output) addResult(name, desc string, success bool) {
	if success {
		o.Results.Success[name] = desc
		return
	}
	o.Results.Failure[name] = desc
}

// FailedProperties returns the failed property names in lexical order.
func (o *Output) FailedProperties() []string {
	names := make([]string, 0, len(o.Results.Failure))
	for name := range o.Results.Failure {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge combines the outputs of several verifier runs over the same proof.
// Status and warning lines are concatenated; a property failing in any run
// is failed, and a failed run makes the prover status "failure".
func Merge(outs ...*Output) *Output {
	merged := newOutput()
	for _, o := range outs {
		if o == nil {
			continue
		}
		if merged.Program == "" {
			merged.Program = o.Program
		}
		merged.Status = append(merged.Status, o.Status...)
		merged.Warnings = append(merged.Warnings, o.Warnings...)
		maps.Copy(merged.Results.Success, o.Results.Success)
		maps.Copy(merged.Results.Failure, o.Results.Failure)
		maps.Copy(merged.Traces, o.Traces)
		switch {
		case o.Prover == "failure":
			merged.Prover = o.Prover
		case merged.Prover == "":
			merged.Prover = o.Prover
		}
	}
	for name := range merged.Results.Failure {
		delete(merged.Results.Success, name)
	}
	return merged
}
