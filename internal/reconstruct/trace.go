package reconstruct

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"proofview/internal/step"
)

// Trace is a finished, well nested step sequence for one property. It is
// never modified after Reconstruct returns it.
type Trace struct {
	property string
	steps    []step.Step
}

// Property names the failed property the trace demonstrates.
func (t *Trace) Property() string { return t.property }

// Len returns the number of steps.
func (t *Trace) Len() int { return len(t.steps) }

// Steps returns a copy of the step sequence.
func (t *Trace) Steps() []step.Step { return slices.Clone(t.steps) }

// At returns step i.
func (t *Trace) At(i int) step.Step { return t.steps[i] }

func (t *Trace) MarshalJSON() ([]byte, error) {
	if t.steps == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.steps)
}

// Store holds every reconstructed trace of a proof keyed by property name.
type Store struct {
	traces map[string]*Trace
}

// Build reconstructs all raw traces. The first fatal error aborts the whole
// store.
func Build(raw map[string][]step.Step) (*Store, error) {
	s := &Store{traces: make(map[string]*Trace, len(raw))}
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		t, err := Reconstruct(name, raw[name])
		if err != nil {
			return nil, err
		}
		s.traces[name] = t
	}
	return s, nil
}

// Get returns the trace for property.
func (s *Store) Get(property string) (*Trace, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.traces[property]
	return t, ok
}

// Names returns the property names with a trace, sorted.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.traces))
}

// Len returns the number of traces.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.traces)
}

// MarshalJSON writes the viewer-trace.json shape, property name to steps.
func (s *Store) MarshalJSON() ([]byte, error) {
	traces := map[string]*Trace{}
	if s != nil {
		traces = s.traces
	}
	return json.Marshal(traces)
}

// Load reads a previously written viewer-trace.json. Traces in a dump are
// already repaired; they are only checked for nesting.
func Load(b []byte) (*Store, error) {
	var traces map[string][]step.Step
	if err := json.Unmarshal(b, &traces); err != nil {
		return nil, fmt.Errorf("viewer-trace: %w", err)
	}
	s := &Store{traces: make(map[string]*Trace, len(traces))}
	for name, steps := range traces {
		if err := CheckNesting(steps); err != nil {
			return nil, withSubject(err, name)
		}
		s.traces[name] = &Trace{property: name, steps: steps}
	}
	return s, nil
}

// FromMap builds a store from finished traces, as restored from a cache.
func FromMap(traces map[string][]step.Step) *Store {
	s := &Store{traces: make(map[string]*Trace, len(traces))}
	for name, steps := range traces {
		s.traces[name] = &Trace{property: name, steps: steps}
	}
	return s
}

// Map exposes the step lists for serialization into a cache.
func (s *Store) Map() map[string][]step.Step {
	out := make(map[string][]step.Step, s.Len())
	if s == nil {
		return out
	}
	for name, t := range s.traces {
		out[name] = t.Steps()
	}
	return out
}
