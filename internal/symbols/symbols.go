// Package symbols builds the symbol table used to link identifiers in
// source listings to their definitions.
package symbols

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"proofview/internal/location"
)

// Definition is one symbol definition reported by a tagger. File is
// relative to the source root.
type Definition struct {
	Symbol string
	File   string
	Line   int
}

func compareDefinitions(a, b Definition) int {
	return cmp.Or(cmp.Compare(a.Symbol, b.Symbol), cmp.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line))
}

// Table maps symbol names to the location of their first definition.
type Table struct {
	syms map[string]location.Location
}

// Empty returns a table with no symbols.
func Empty() *Table { return &Table{syms: map[string]location.Location{}} }

// Build indexes defs. Definitions are taken in sorted order and the first
// one of each symbol wins; later ones are logged and ignored.
func Build(defs []Definition, log *zap.Logger) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	sorted := slices.SortedFunc(slices.Values(defs), compareDefinitions)
	t := Empty()
	for _, d := range sorted {
		if _, dup := t.syms[d.Symbol]; dup {
			log.Info("Found duplicate definition",
				zap.String("symbol", d.Symbol), zap.String("file", d.File), zap.Int("line", d.Line))
			continue
		}
		t.syms[d.Symbol] = location.Location{File: location.Canonical(d.File), Line: d.Line}
	}
	return t
}

// Lookup returns the definition site of symbol.
func (t *Table) Lookup(symbol string) (location.Location, bool) {
	loc, ok := t.syms[symbol]
	return loc, ok
}

func (t *Table) Len() int { return len(t.syms) }

// Names returns all symbols, sorted.
func (t *Table) Names() []string { return slices.Sorted(maps.Keys(t.syms)) }

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.syms)
}

// Load reads a viewer-symbols.json dump.
func Load(b []byte) (*Table, error) {
	t := Empty()
	if err := json.Unmarshal(b, &t.syms); err != nil {
		return nil, fmt.Errorf("viewer-symbols: %w", err)
	}
	if t.syms == nil {
		t.syms = map[string]location.Location{}
	}
	return t, nil
}
