package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"proofview/internal/cache"
	"proofview/internal/coverage"
	"proofview/internal/diag"
	"proofview/internal/runner"
	"proofview/internal/sources"
	"proofview/internal/summary"
	"proofview/internal/symbols"
)

const resultJSON = `[
  {"program": "CBMC 5.12"},
  {"messageText": "**** WARNING: no body for function memcpy", "messageType": "WARNING"},
  {"result": [
    {"property": "main.assertion.1", "description": "x is positive", "status": "SUCCESS"},
    {"property": "helper.pointer_dereference.1", "description": "dereference failure: pointer NULL", "status": "FAILURE",
     "trace": [
      {"stepType": "function-call", "hidden": false,
       "sourceLocation": {"file": "main.c", "function": "main", "line": "4"},
       "function": {"displayName": "helper", "identifier": "helper",
                    "sourceLocation": {"file": "util.c", "function": "helper", "line": "1"}}},
      {"stepType": "failure", "hidden": false, "property": "helper.pointer_dereference.1", "reason": "null pointer dereference",
       "sourceLocation": {"file": "util.c", "function": "helper", "line": "3"}}
     ]}]},
  {"cProverStatus": "failure"}
]`

const coverageJSON = `[{"program": "CBMC"}, {"goals": [
  {"description": "block 1 (lines main.c:main:3-4)", "status": "SATISFIED",
   "sourceLocation": {"file": "main.c", "function": "main", "line": "3"}},
  {"description": "block 2 (lines util.c:helper:2-3)", "status": "FAILED",
   "sourceLocation": {"file": "util.c", "function": "helper", "line": "2"}}]}]`

const propertyJSON = `[{"program": "CBMC"}, {"properties": [
  {"name": "helper.pointer_dereference.1", "class": "pointer dereference", "description": "dereference failure: pointer NULL",
   "expression": "p != NULL", "sourceLocation": {"file": "util.c", "function": "helper", "line": "3"}}]}]`

const mainC = "int helper(int *p);\n\nint main(void) {\n  return helper(0);\n}\n"
const utilC = "int helper(int *p) {\n  int x = 1;\n  return *p + x;\n}\n"

type fixture struct {
	dir, src string
	req      *Request
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	write(t, filepath.Join(src, "main.c"), mainC)
	write(t, filepath.Join(src, "util.c"), utilC)
	out := filepath.Join(dir, "out")
	write(t, filepath.Join(out, "result.json"), resultJSON)
	write(t, filepath.Join(out, "coverage.json"), coverageJSON)
	write(t, filepath.Join(out, "property.json"), propertyJSON)
	return &fixture{
		dir: dir,
		src: src,
		req: &Request{
			Results:   []string{filepath.Join(out, "result.json")},
			Coverage:  []string{filepath.Join(out, "coverage.json")},
			Property:  filepath.Join(out, "property.json"),
			Srcdir:    src,
			Wkdir:     src,
			Sources:   sources.MethodWalk,
			Tags:      symbols.TagsTreeSitter,
			ProofName: "helper",
			Jobs:      2,
		},
	}
}

func TestBuildLoadsEveryRegistry(t *testing.T) {
	f := newFixture(t)
	rep, err := New(nil, nil).Build(context.Background(), f.req)
	require.NoError(t, err)

	require.Equal(t, []string{"helper.pointer_dereference.1"}, rep.Results.Failed())
	require.Equal(t, []string{"main.assertion.1"}, rep.Results.Passed())
	require.Equal(t, "dereference failure: pointer NULL", rep.Results.Description("helper.pointer_dereference.1"))

	tr, ok := rep.Traces.Get("helper.pointer_dereference.1")
	require.True(t, ok)
	require.Equal(t, 3, tr.Len(), "call, failure and the closing return")

	st, ok := rep.Coverage.Lookup("util.c", "helper", 3)
	require.True(t, ok)
	require.Equal(t, coverage.Missed, st)

	require.Equal(t, []string{"main.c", "util.c"}, rep.Sources.Files)
	loc, ok := rep.Symbols.Lookup("helper")
	require.True(t, ok)
	require.Equal(t, "util.c", loc.File)

	require.Equal(t, 0, rep.Loops.Len())
	require.Equal(t, 0, rep.Reachable.Count())
	require.Equal(t, []summary.Line{{File: "util.c", Line: 3}}, rep.Summary.PropertyIssueLines)
}

func TestGenerateWritesDumpsAndReport(t *testing.T) {
	f := newFixture(t)
	f.req.HTMLDir = filepath.Join(f.dir, "html")
	f.req.JSONDir = filepath.Join(f.dir, "json")
	f.req.ExpectedMissing = []string{"memcpy"}
	_, err := New(nil, nil).Generate(context.Background(), f.req)
	require.NoError(t, err)

	for _, name := range []string{
		TracesFile, SymbolsFile, SourcesFile, ReachableFile,
		summary.ResultsFile, summary.CoverageFile, summary.PropertiesFile, summary.LoopsFile, summary.SummaryFile,
	} {
		require.FileExists(t, filepath.Join(f.req.JSONDir, name))
	}
	for _, name := range []string{"index.html", "main.c.html", "util.c.html", "traces/helper.pointer_dereference.1.html"} {
		require.FileExists(t, filepath.Join(f.req.HTMLDir, filepath.FromSlash(name)))
	}

	in, err := summary.FromDir(f.req.JSONDir, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"helper.pointer_dereference.1"}, in.Results.Failed())

	doc, err := os.ReadFile(filepath.Join(f.req.JSONDir, summary.SummaryFile))
	require.NoError(t, err)
	require.Contains(t, string(doc), `"helper": {`)
	require.Contains(t, string(doc), `"memcpy"`)

	index, err := os.ReadFile(filepath.Join(f.req.HTMLDir, "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(index), "traces/helper.pointer_dereference.1.html")
}

func TestBuildFromDumps(t *testing.T) {
	f := newFixture(t)
	f.req.JSONDir = filepath.Join(f.dir, "json")
	first, err := New(nil, nil).Generate(context.Background(), f.req)
	require.NoError(t, err)

	dir := f.req.JSONDir
	req := &Request{
		Srcdir: f.src,
		Wkdir:  f.src,
		Dumps: Dumps{
			Traces:     filepath.Join(dir, TracesFile),
			Results:    filepath.Join(dir, summary.ResultsFile),
			Coverage:   filepath.Join(dir, summary.CoverageFile),
			Properties: filepath.Join(dir, summary.PropertiesFile),
			Loops:      filepath.Join(dir, summary.LoopsFile),
			Symbols:    filepath.Join(dir, SymbolsFile),
			Sources:    []string{filepath.Join(dir, SourcesFile)},
			Reachable:  filepath.Join(dir, ReachableFile),
		},
	}
	again, err := New(nil, nil).Build(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first.Results.Failed(), again.Results.Failed())
	require.Equal(t, first.Sources.Files, again.Sources.Files)
	if diff := cmp.Diff(first.Coverage.Entries(), again.Coverage.Entries()); diff != "" {
		t.Errorf("coverage (-first +again):\n%s", diff)
	}
	if diff := cmp.Diff(first.Traces.Map(), again.Traces.Map()); diff != "" {
		t.Errorf("traces (-first +again):\n%s", diff)
	}
}

func TestCacheHitKeepsDescriptions(t *testing.T) {
	f := newFixture(t)
	c, err := cache.Open(filepath.Join(f.dir, "cache"))
	require.NoError(t, err)
	f.req.Cache = c

	first, err := New(nil, nil).Build(context.Background(), f.req)
	require.NoError(t, err)
	entries, err := filepath.Glob(filepath.Join(c.Dir(), "proofs", "*.mp"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	second, err := New(nil, nil).Build(context.Background(), f.req)
	require.NoError(t, err)
	require.Equal(t, "dereference failure: pointer NULL", second.Results.Description("helper.pointer_dereference.1"))
	if diff := cmp.Diff(first.Traces.Map(), second.Traces.Map()); diff != "" {
		t.Errorf("traces (-first +second):\n%s", diff)
	}

	// changing an input changes the key
	write(t, f.req.Property, strings.Replace(propertyJSON, `"line": "3"`, `"line": "2"`, 1))
	_, err = New(nil, nil).Build(context.Background(), f.req)
	require.NoError(t, err)
	entries, err = filepath.Glob(filepath.Join(c.Dir(), "proofs", "*.mp"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestMissingInputsGiveEmptyReport(t *testing.T) {
	dir := t.TempDir()
	req := &Request{
		Results:  []string{filepath.Join(dir, "none.json")},
		Coverage: []string{filepath.Join(dir, "none.xml")},
		Property: filepath.Join(dir, "none-property.json"),
		Wkdir:    dir,
		Sources:  sources.MethodNone,
		Tags:     symbols.TagsNone,
		HTMLDir:  filepath.Join(dir, "html"),
	}
	rep, err := New(nil, nil).Generate(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, rep.Results.Failed())
	require.Equal(t, 0, rep.Coverage.Len())
	require.Equal(t, 0, rep.Properties.Len())
	require.FileExists(t, filepath.Join(req.HTMLDir, "index.html"))
}

func TestMalformedResultIsFatal(t *testing.T) {
	f := newFixture(t)
	write(t, f.req.Results[0], `[{"result": [{"property": "p", "status": "FAILURE", "trace": [{"stepType": "teleport"}]}]}]`)
	_, err := New(nil, nil).Build(context.Background(), f.req)
	require.Error(t, err)
	require.True(t, diag.IsFatal(err), "err = %v", err)
}

// fakeAnalyzer puts a goto-analyzer on PATH that fails unless its last
// argument names a file in its working directory.
func fakeAnalyzer(t *testing.T, listing string) {
	t.Helper()
	if !runner.Available("sh") {
		t.Skip("sh not available")
	}
	bin := t.TempDir()
	out := filepath.Join(bin, "listing.json")
	write(t, out, listing)
	script := "#!/bin/sh\n[ -f \"$4\" ] || { echo \"cannot open $4\" >&2; exit 6; }\ncat '" + out + "'\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "goto-analyzer"), []byte(script), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestReachableResolvesRelativePaths(t *testing.T) {
	for _, blddir := range []string{"", ".", "../src"} {
		t.Run("blddir="+blddir, func(t *testing.T) {
			f := newFixture(t)
			fakeAnalyzer(t, `[
  {"file name": "`+filepath.Join(f.src, "util.c")+`", "first line": 1, "function": "helper", "last line": 9},
  {"file name": "main.c", "first line": 1, "function": "main", "last line": 9},
  {"file name": "/usr/include/string.h", "first line": 1, "function": "memcpy", "last line": 2}
]
`)
			write(t, filepath.Join(f.src, "gotos", "proof.goto"), "goto")
			f.req.Goto = filepath.Join("gotos", "proof.goto")
			f.req.Blddir = blddir
			f.req.Loop = filepath.Join(f.dir, "out", "loop.json")

			rep, err := New(nil, nil).Build(context.Background(), f.req)
			require.NoError(t, err)
			require.Equal(t, []string{"main.c", "util.c"}, rep.Reachable.Files())
			require.True(t, rep.Reachable.Reachable("util.c", "helper"))
			require.Equal(t, 2, rep.Reachable.Count())
		})
	}
}
