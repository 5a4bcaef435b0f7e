package adapter

import (
	"encoding/json"
	"io"
	"strings"

	"proofview/internal/diag"
	"proofview/internal/location"
)

// SourceLocation is the verifier's JSON source location. The line arrives
// as a string but numbers are accepted too.
type SourceLocation struct {
	File             string     `json:"file"`
	Function         string     `json:"function"`
	Line             LineNumber `json:"line"`
	WorkingDirectory string     `json:"workingDirectory"`
}

// Resolve canonicalizes l; a nil location yields the sentinel.
func (l *SourceLocation) Resolve(c *location.Canonicalizer) location.Location {
	if l == nil {
		return location.Missing
	}
	var line *int
	if l.Line.Set {
		line = &l.Line.N
	}
	return c.Location(l.File, l.Function, line, l.WorkingDirectory)
}

// LineNumber accepts both "12" and 12.
type LineNumber struct {
	N   int
	Set bool
}

func (l *LineNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := location.ParseLine(s)
	if err != nil {
		return err
	}
	l.N, l.Set = n, true
	return nil
}

// ReadJSON decodes the verifier's top-level array of entries.
func ReadJSON(r io.Reader) ([]map[string]json.RawMessage, error) {
	var entries []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, &diag.Error{Code: diag.InMalformedInput, Msg: "invalid json", Err: err}
	}
	return entries, nil
}

// FindJSON decodes into v the value of the first entry carrying key.
// It reports false when no entry has the key.
func FindJSON(entries []map[string]json.RawMessage, key string, v any) (bool, error) {
	for _, e := range entries {
		raw, ok := e[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return true, &diag.Error{Code: diag.InMalformedInput, Subject: key, Err: err}
		}
		return true, nil
	}
	return false, nil
}
