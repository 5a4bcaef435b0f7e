// Package summary computes the per-proof viewer-summary.json metrics and
// aggregates them over every proof of a project.
package summary

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"proofview/internal/coverage"
	"proofview/internal/diag"
	"proofview/internal/loop"
	"proofview/internal/property"
	"proofview/internal/result"
)

// Line is a source line, encoded as a [file, line] pair.
type Line struct {
	File string
	Line int
}

func compareLines(a, b Line) int {
	return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line))
}

func (l Line) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.File, l.Line})
}

func (l *Line) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("line: want [file, line], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &l.File); err != nil {
		return fmt.Errorf("line file: %w", err)
	}
	if err := json.Unmarshal(pair[1], &l.Line); err != nil {
		return fmt.Errorf("line number: %w", err)
	}
	return nil
}

// Proof is the summary of one proof.
type Proof struct {
	ModelLines             []Line   `json:"model-lines"`
	ProjectLines           []Line   `json:"project-lines"`
	ProjectLinesHit        []Line   `json:"project-lines-hit"`
	PropertyIssueLines     []Line   `json:"property-issue-lines"`
	LoopIssueLines         []Line   `json:"loop-issue-lines"`
	OtherIssuesCount       int      `json:"other-issues-count"`
	ExpectedMissingFuncs   []string `json:"expected-missing-funcs"`
	UnexpectedMissingFuncs []string `json:"unexpected-missing-funcs"`
}

// Document is viewer-summary.json: one proof keyed by its name.
type Document map[string]Proof

// Inputs are the registries a proof summary is computed from.
type Inputs struct {
	Coverage   *coverage.Map
	Results    *result.Results
	Properties *property.Registry
	Loops      *loop.Registry
	// InProofRoot classifies a coverage file as proof harness code rather
	// than project code. Nil puts every line in the project.
	InProofRoot func(file string) bool
	// ExpectedMissing lists functions allowed to have no body.
	ExpectedMissing []string
}

func uniqueLines(ls []Line) []Line {
	slices.SortFunc(ls, compareLines)
	ls = slices.Compact(ls)
	if ls == nil {
		return []Line{}
	}
	return ls
}

// Compute derives the summary metrics of one proof.
func Compute(in Inputs) Proof {
	if in.Coverage == nil {
		in.Coverage = coverage.Empty()
	}
	if in.Results == nil {
		in.Results = result.Empty()
	}
	if in.Properties == nil {
		in.Properties = property.Empty()
	}
	if in.Loops == nil {
		in.Loops = loop.Empty()
	}
	inRoot := in.InProofRoot
	if inRoot == nil {
		inRoot = func(string) bool { return false }
	}

	var p Proof
	for k, status := range in.Coverage.Entries() {
		l := Line{File: k.File, Line: k.Line}
		if inRoot(k.File) {
			p.ModelLines = append(p.ModelLines, l)
			continue
		}
		p.ProjectLines = append(p.ProjectLines, l)
		if status != coverage.Missed {
			p.ProjectLinesHit = append(p.ProjectLinesHit, l)
		}
	}

	for _, name := range in.Results.Failed() {
		if prop, ok := in.Properties.Get(name); ok {
			p.PropertyIssueLines = append(p.PropertyIssueLines, Line{File: prop.Location.File, Line: prop.Location.Line})
			continue
		}
		if loc, ok := in.Loops.ForFailure(name); ok {
			p.LoopIssueLines = append(p.LoopIssueLines, Line{File: loc.File, Line: loc.Line})
			continue
		}
		p.OtherIssuesCount++
	}

	p.ExpectedMissingFuncs, p.UnexpectedMissingFuncs = []string{}, []string{}
	for _, fn := range in.Results.MissingFunctions() {
		if slices.Contains(in.ExpectedMissing, fn) {
			p.ExpectedMissingFuncs = append(p.ExpectedMissingFuncs, fn)
		} else {
			p.UnexpectedMissingFuncs = append(p.UnexpectedMissingFuncs, fn)
		}
	}

	p.ModelLines = uniqueLines(p.ModelLines)
	p.ProjectLines = uniqueLines(p.ProjectLines)
	p.ProjectLinesHit = uniqueLines(p.ProjectLinesHit)
	p.PropertyIssueLines = uniqueLines(p.PropertyIssueLines)
	p.LoopIssueLines = uniqueLines(p.LoopIssueLines)
	return p
}

// Dump file names read by FromDir.
const (
	ResultsFile    = "viewer-results.json"
	CoverageFile   = "viewer-coverage.json"
	PropertiesFile = "viewer-properties.json"
	LoopsFile      = "viewer-loops.json"
	SummaryFile    = "viewer-summary.json"
)

// FromDir loads the registry dumps in jsondir. Missing dumps are logged and
// treated as empty; unreadable ones are errors.
func FromDir(jsondir string, log *zap.Logger) (Inputs, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var in Inputs
	steps := []struct {
		name string
		load func([]byte) error
	}{
		{ResultsFile, func(b []byte) (err error) {
			in.Results, err = result.Load(b)
			return err
		}},
		{CoverageFile, func(b []byte) (err error) {
			in.Coverage, err = coverage.Load(b)
			return err
		}},
		{PropertiesFile, func(b []byte) (err error) {
			in.Properties, err = property.Load(b)
			return err
		}},
		{LoopsFile, func(b []byte) (err error) {
			in.Loops, err = loop.Load(b)
			return err
		}},
	}
	for _, s := range steps {
		path := filepath.Join(jsondir, s.name)
		// #nosec G304 -- fixed file names under the proof's json directory
		b, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			log.Info("Summary input not found", zap.String("file", path))
			continue
		}
		if err != nil {
			return Inputs{}, diag.Wrap(diag.InMissingInput, path, err)
		}
		if err := s.load(b); err != nil {
			return Inputs{}, diag.Wrap(diag.InMalformedInput, path, err)
		}
	}
	return in, nil
}

// Write stores the summary of proof name as viewer-summary.json in dir.
func Write(dir, name string, p Proof) error {
	return writeJSON(filepath.Join(dir, SummaryFile), Document{name: p})
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	b = append(b, '\n')
	// #nosec G306 -- report files are meant to be world readable
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
