// Package result keeps the verifier's overall outcome: program banner,
// status and warning lines, and which properties passed or failed.
package result

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"proofview/internal/adapter"
)

// Results is the viewer-results.json document.
type Results struct {
	Program  string
	Status   []string
	Warnings []string
	Results  map[bool][]string
	Prover   string

	failures map[string]string
}

// FromOutput builds the registry from a parsed verifier output.
func FromOutput(out *adapter.Output) *Results {
	return &Results{
		Program:  out.Program,
		Status:   slices.Clone(out.Status),
		Warnings: slices.Clone(out.Warnings),
		Results: map[bool][]string{
			true:  slices.Sorted(maps.Keys(out.Results.Success)),
			false: slices.Sorted(maps.Keys(out.Results.Failure)),
		},
		Prover:   out.Prover,
		failures: maps.Clone(out.Results.Failure),
	}
}

// Empty is the registry used when no result file was found.
func Empty() *Results {
	return &Results{
		Status:   []string{},
		Warnings: []string{},
		Results:  map[bool][]string{true: {}, false: {}},
	}
}

// Failed returns the failed property names, sorted.
func (r *Results) Failed() []string { return slices.Clone(r.Results[false]) }

// Passed returns the proved property names, sorted.
func (r *Results) Passed() []string { return slices.Clone(r.Results[true]) }

// Description returns what the verifier said about a failed property, if
// the output format carried descriptions.
func (r *Results) Description(name string) string { return r.failures[name] }

// Descriptions returns the failure descriptions, which the JSON dump does
// not carry.
func (r *Results) Descriptions() map[string]string { return maps.Clone(r.failures) }

// WithDescriptions returns a copy of r carrying failure descriptions d.
func (r *Results) WithDescriptions(d map[string]string) *Results {
	cp := *r
	cp.failures = maps.Clone(d)
	if cp.failures == nil {
		cp.failures = map[string]string{}
	}
	return &cp
}

// MissingFunctions extracts F from "no body for function F" warnings.
func (r *Results) MissingFunctions() []string {
	var out []string
	for _, w := range r.Warnings {
		w = strings.TrimSpace(strings.TrimPrefix(w, "**** WARNING:"))
		if name, ok := strings.CutPrefix(w, "no body for function "); ok {
			out = append(out, strings.TrimSpace(name))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

type resultsJSON struct {
	Program  string              `json:"program"`
	Status   []string            `json:"status"`
	Warnings []string            `json:"warning"`
	Results  map[string][]string `json:"result"`
	Prover   string              `json:"prover-status"`
}

func (r *Results) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultsJSON{
		Program:  r.Program,
		Status:   nonNil(r.Status),
		Warnings: nonNil(r.Warnings),
		Results: map[string][]string{
			"true":  nonNil(r.Results[true]),
			"false": nonNil(r.Results[false]),
		},
		Prover: r.Prover,
	})
}

// Load reads a viewer-results.json dump.
func Load(b []byte) (*Results, error) {
	var raw resultsJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("viewer-results: %w", err)
	}
	r := &Results{
		Program:  raw.Program,
		Status:   nonNil(raw.Status),
		Warnings: nonNil(raw.Warnings),
		Results: map[bool][]string{
			true:  nonNil(raw.Results["true"]),
			false: nonNil(raw.Results["false"]),
		},
		Prover:   raw.Prover,
		failures: map[string]string{},
	}
	return r, nil
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
