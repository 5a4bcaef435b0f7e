package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"proofview/internal/summary"
)

// Names of the registry dumps written to the JSON directory.
const (
	TracesFile    = "viewer-trace.json"
	SymbolsFile   = "viewer-symbols.json"
	SourcesFile   = "viewer-sources.json"
	ReachableFile = "viewer-reachable.json"
)

func marshal(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// WriteJSON dumps every registry and the proof summary into dir.
func (r *Report) WriteJSON(dir, proof string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create json dir: %w", err)
	}
	dumps := []struct {
		name string
		v    any
	}{
		{TracesFile, r.Traces},
		{summary.ResultsFile, r.Results},
		{summary.CoverageFile, r.Coverage},
		{summary.PropertiesFile, r.Properties},
		{summary.LoopsFile, r.Loops},
		{SymbolsFile, r.Symbols},
		{SourcesFile, r.Sources},
		{ReachableFile, r.Reachable},
	}
	for _, d := range dumps {
		b, err := marshal(d.v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.name, err)
		}
		path := filepath.Join(dir, d.name)
		// #nosec G306 -- report files are meant to be world readable
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return summary.Write(dir, proof, r.Summary)
}

// Registry returns the registry a JSON subcommand prints.
func (r *Report) Registry(name string) (any, bool) {
	switch name {
	case "traces":
		return r.Traces, true
	case "results":
		return r.Results, true
	case "coverage":
		return r.Coverage, true
	case "properties":
		return r.Properties, true
	case "loops":
		return r.Loops, true
	case "reachable":
		return r.Reachable, true
	case "symbols":
		return r.Symbols, true
	case "sources":
		return r.Sources, true
	case "summary":
		return r.Summary, true
	}
	return nil, false
}
