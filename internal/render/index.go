package render

import (
	"cmp"
	"fmt"
	"html/template"
	"maps"
	"slices"
	"strings"

	"proofview/internal/coverage"
	"proofview/internal/location"
)

type functionRow struct {
	coverage.Summary
	Function template.HTML
	File     template.HTML
}

type failedProperty struct {
	Name        string
	Description string
	Trace       bool
}

type lineFailures struct {
	Line       int
	Link       template.HTML
	Properties []failedProperty
}

type functionFailures struct {
	Name  string
	Link  template.HTML
	Lines []lineFailures
}

type fileFailures struct {
	Path      string
	Link      template.HTML
	Functions []functionFailures
}

type indexPage struct {
	Title       string
	HasCoverage bool
	Coverage    coverage.Summary
	Functions   []functionRow

	Missing           []string
	MissingExpected   []string
	MissingUnexpected []string
	Warnings          []string

	Failures []fileFailures
}

// failure is one failed property placed at a source location.
type failure struct {
	loc  location.Location
	prop failedProperty
}

// failures locates every failed property: by the property registry first,
// then by the loop registry for unwinding assertions. Failures that cannot
// be placed are returned by name.
func (r *Renderer) failures() (placed []failure, unknown []string) {
	for _, name := range r.in.Results.Failed() {
		fp := failedProperty{Name: name, Description: r.in.Results.Description(name)}
		_, fp.Trace = r.in.Traces.Get(name)
		if p, ok := r.in.Properties.Get(name); ok {
			if p.Description != "" {
				fp.Description = p.Description
			}
			placed = append(placed, failure{loc: p.Location, prop: fp})
			continue
		}
		if loc, ok := r.in.Loops.ForFailure(name); ok {
			if fp.Description == "" {
				fp.Description = "unwinding assertion " + name
			}
			placed = append(placed, failure{loc: loc, prop: fp})
			continue
		}
		unknown = append(unknown, name)
	}
	return placed, unknown
}

// failureTree groups failures by file, function and line. Properties on one
// line are ordered by name.
func failureTree(fs []failure) []fileFailures {
	tree := map[string]map[string]map[int][]failedProperty{}
	for _, f := range fs {
		byFn, ok := tree[f.loc.File]
		if !ok {
			byFn = map[string]map[int][]failedProperty{}
			tree[f.loc.File] = byFn
		}
		byLine, ok := byFn[f.loc.Function]
		if !ok {
			byLine = map[int][]failedProperty{}
			byFn[f.loc.Function] = byLine
		}
		byLine[f.loc.Line] = append(byLine[f.loc.Line], f.prop)
	}

	var out []fileFailures
	for _, file := range slices.Sorted(maps.Keys(tree)) {
		ff := fileFailures{Path: file}
		for _, fn := range slices.Sorted(maps.Keys(tree[file])) {
			fnf := functionFailures{Name: fn}
			for _, line := range slices.Sorted(maps.Keys(tree[file][fn])) {
				props := tree[file][fn][line]
				slices.SortFunc(props, func(a, b failedProperty) int {
					return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Description, b.Description))
				})
				fnf.Lines = append(fnf.Lines, lineFailures{Line: line, Properties: props})
			}
			ff.Functions = append(ff.Functions, fnf)
		}
		out = append(out, ff)
	}
	return out
}

func (r *Renderer) indexPage() indexPage {
	page := indexPage{Title: r.title()}

	cov := r.in.Coverage
	if cov.Len() > 0 {
		page.HasCoverage = true
		page.Coverage = cov.Overall()
		for _, fs := range cov.Functions() {
			page.Functions = append(page.Functions, functionRow{
				Summary:  fs.Summary,
				Function: linkSymbol(fs.Function, fs.Function, r.in.Symbols, fromIndex),
				File:     linkFile(fs.File, fs.File, fromIndex),
			})
		}
	}

	placed, unknown := r.failures()
	page.Failures = failureTree(placed)
	for i := range page.Failures {
		ff := &page.Failures[i]
		ff.Link = linkFile(ff.Path, ff.Path, fromIndex)
		for j := range ff.Functions {
			fnf := &ff.Functions[j]
			fnf.Link = linkSymbol(fnf.Name, fnf.Name, r.in.Symbols, fromIndex)
			for k := range fnf.Lines {
				lf := &fnf.Lines[k]
				lf.Link = linkLine(fmt.Sprint(lf.Line), ff.Path, lf.Line, fromIndex)
			}
		}
	}

	missing := r.in.Results.MissingFunctions()
	if r.in.ExpectedMissing == nil {
		page.Missing = missing
	} else {
		for _, fn := range missing {
			if slices.Contains(r.in.ExpectedMissing, fn) {
				page.MissingExpected = append(page.MissingExpected, fn)
			} else {
				page.MissingUnexpected = append(page.MissingUnexpected, fn)
			}
		}
	}

	for _, w := range r.in.Results.Warnings {
		w = strings.TrimSpace(strings.TrimPrefix(w, "**** WARNING:"))
		if strings.HasPrefix(w, "no body for function") {
			continue
		}
		page.Warnings = append(page.Warnings, w)
	}
	for _, name := range unknown {
		page.Warnings = append(page.Warnings, "Property failed: "+name)
	}
	slices.Sort(page.Warnings)
	return page
}

func (r *Renderer) title() string {
	if r.in.Title != "" {
		return r.in.Title
	}
	return "CBMC report"
}
