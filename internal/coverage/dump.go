package coverage

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type report struct {
	Coverage        map[string]map[string]map[string]Status `json:"coverage"`
	FunctionSummary map[string]map[string]Summary          `json:"function-summary"`
	Summary         Summary                                `json:"summary"`
}

// MarshalJSON writes the viewer-coverage.json shape. Line numbers become
// object keys.
func (m *Map) MarshalJSON() ([]byte, error) {
	r := report{
		Coverage:        map[string]map[string]map[string]Status{},
		FunctionSummary: map[string]map[string]Summary{},
		Summary:         m.Overall(),
	}
	for k, s := range m.lines {
		byFunc := r.Coverage[k.File]
		if byFunc == nil {
			byFunc = map[string]map[string]Status{}
			r.Coverage[k.File] = byFunc
		}
		byLine := byFunc[k.Function]
		if byLine == nil {
			byLine = map[string]Status{}
			byFunc[k.Function] = byLine
		}
		byLine[strconv.Itoa(k.Line)] = s
	}
	for _, fs := range m.Functions() {
		if r.FunctionSummary[fs.File] == nil {
			r.FunctionSummary[fs.File] = map[string]Summary{}
		}
		r.FunctionSummary[fs.File][fs.Function] = fs.Summary
	}
	return json.Marshal(r)
}

// Load reads a viewer-coverage.json dump. Summaries are recomputed.
func Load(b []byte) (*Map, error) {
	var r report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("viewer-coverage: %w", err)
	}
	builder := NewBuilder()
	for file, byFunc := range r.Coverage {
		for fn, byLine := range byFunc {
			for line, s := range byLine {
				n, err := strconv.Atoi(line)
				if err != nil {
					return nil, fmt.Errorf("viewer-coverage: %s %s: bad line %q", file, fn, line)
				}
				builder.Add(Key{File: file, Function: fn, Line: n}, s)
			}
		}
	}
	return builder.Build(), nil
}
