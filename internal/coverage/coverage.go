// Package coverage builds line coverage from the verifier's coverage goals
// and summarizes it per function and overall.
package coverage

import (
	"cmp"
	"maps"
	"slices"
)

// Key addresses one line of one function.
type Key struct {
	File     string
	Function string
	Line     int
}

func compareKeys(a, b Key) int {
	return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Function, b.Function), cmp.Compare(a.Line, b.Line))
}

// Builder accumulates line statuses. A line reported twice with different
// statuses becomes Both.
type Builder struct {
	lines map[Key]Status
}

func NewBuilder() *Builder { return &Builder{lines: map[Key]Status{}} }

// Add records status for k.
func (b *Builder) Add(k Key, status Status) {
	b.lines[k] = b.lines[k].merge(status)
}

// AddMap folds every line of m into the builder.
func (b *Builder) AddMap(m *Map) {
	for k, s := range m.lines {
		b.Add(k, s)
	}
}

// Build returns an immutable snapshot; the builder may keep accumulating.
func (b *Builder) Build() *Map {
	lines := maps.Clone(b.lines)
	keys := slices.SortedFunc(maps.Keys(lines), compareKeys)
	return &Map{lines: lines, keys: keys}
}

// Map is an immutable coverage table keyed by (file, function, line).
type Map struct {
	lines map[Key]Status
	keys  []Key
}

// Empty returns a map with no coverage.
func Empty() *Map { return NewBuilder().Build() }

// Merge combines maps; conflicting statuses resolve to Both.
func Merge(ms ...*Map) *Map {
	b := NewBuilder()
	for _, m := range ms {
		b.AddMap(m)
	}
	return b.Build()
}

func (m *Map) Len() int { return len(m.lines) }

// Lookup returns the status of one line of one function.
func (m *Map) Lookup(file, function string, line int) (Status, bool) {
	s, ok := m.lines[Key{File: file, Function: function, Line: line}]
	return s, ok
}

// Entries returns a copy of the table.
func (m *Map) Entries() map[Key]Status { return maps.Clone(m.lines) }

// Files returns the files with coverage, sorted.
func (m *Map) Files() []string {
	var files []string
	for _, k := range m.keys {
		if len(files) == 0 || files[len(files)-1] != k.File {
			files = append(files, k.File)
		}
	}
	return files
}

// Lines returns file → line → status. Lines shared by several functions
// (macros, inlined code) merge their statuses.
func (m *Map) Lines() map[string]map[int]Status {
	out := map[string]map[int]Status{}
	for _, k := range m.keys {
		byLine := out[k.File]
		if byLine == nil {
			byLine = map[int]Status{}
			out[k.File] = byLine
		}
		byLine[k.Line] = byLine[k.Line].merge(m.lines[k])
	}
	return out
}

// FileLines returns line → status for one file.
func (m *Map) FileLines(file string) map[int]Status {
	out := map[int]Status{}
	for _, k := range m.keys {
		if k.File == file {
			out[k.Line] = out[k.Line].merge(m.lines[k])
		}
	}
	return out
}

// Summary is a hit ratio. Both counts as hit.
type Summary struct {
	Percentage float64 `json:"percentage"`
	Hit        int     `json:"hit"`
	Total      int     `json:"total"`
}

func newSummary(hit, total int) Summary {
	s := Summary{Hit: hit, Total: total}
	if total > 0 {
		s.Percentage = float64(hit) / float64(total)
	}
	return s
}

// FunctionSummary is the coverage of one function.
type FunctionSummary struct {
	File     string
	Function string
	Summary
}

// Functions summarizes every function, ordered by ascending percentage
// with file then function breaking ties.
func (m *Map) Functions() []FunctionSummary {
	var out []FunctionSummary
	var hit, total int
	flush := func(k Key) {
		if total > 0 {
			out = append(out, FunctionSummary{File: k.File, Function: k.Function, Summary: newSummary(hit, total)})
		}
		hit, total = 0, 0
	}
	for i, k := range m.keys {
		if i > 0 && (m.keys[i-1].File != k.File || m.keys[i-1].Function != k.Function) {
			flush(m.keys[i-1])
		}
		total++
		if m.lines[k].Covered() {
			hit++
		}
	}
	if len(m.keys) > 0 {
		flush(m.keys[len(m.keys)-1])
	}
	slices.SortStableFunc(out, func(a, b FunctionSummary) int {
		return cmp.Or(cmp.Compare(a.Percentage, b.Percentage), cmp.Compare(a.File, b.File), cmp.Compare(a.Function, b.Function))
	})
	return out
}

// Overall summarizes the whole map.
func (m *Map) Overall() Summary {
	hit := 0
	for _, s := range m.lines {
		if s.Covered() {
			hit++
		}
	}
	return newSummary(hit, len(m.lines))
}

// Under summarizes only lines whose file satisfies keep.
func (m *Map) Under(keep func(file string) bool) Summary {
	hit, total := 0, 0
	for k, s := range m.lines {
		if !keep(k.File) {
			continue
		}
		total++
		if s.Covered() {
			hit++
		}
	}
	return newSummary(hit, total)
}
