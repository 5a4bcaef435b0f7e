package reachable

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"proofview/internal/runner"
)

const analyzerOutput = `GOTO-ANALYZER version 5.12
Reading GOTO program from file
Computing reachable functions
[
  {
    "file name": "/build/src/main.c",
    "first line": 3,
    "function": "main",
    "last line": 20
  },
  {
    "file name": "/build/src/util.c",
    "first line": ,
    "function": "zeta",
    "last line": 
  },
  {
    "file name": "/build/src/util.c",
    "first line": 8,
    "function": "alpha",
    "last line": 12
  },
  {
    "file name": "/build/src/util.c",
    "first line": 1,
    "function": "__CPROVER_initialize",
    "last line": 2
  },
  {
    "file name": "<builtin-library-malloc>",
    "first line": 1,
    "function": "malloc",
    "last line": 9
  },
  {
    "file name": "/usr/include/string.h",
    "first line": 1,
    "function": "memcpy",
    "last line": 2
  }
]
`

func TestParse(t *testing.T) {
	f, err := Parse(analyzerOutput, "/build")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := map[string][]string{
		"src/main.c": {"main"},
		"src/util.c": {"alpha", "zeta"},
	}
	if diff := cmp.Diff(want, f.byFile); diff != "" {
		t.Errorf("functions (-want +got):\n%s", diff)
	}
	if !f.Reachable("src/util.c", "zeta") || f.Reachable("src/util.c", "memcpy") {
		t.Errorf("Reachable lookup wrong")
	}
	if f.Count() != 3 {
		t.Errorf("count = %d", f.Count())
	}

	b, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f.byFile, loaded.byFile); diff != "" {
		t.Errorf("loaded (-want +got):\n%s", diff)
	}
}

func TestParseWithoutArray(t *testing.T) {
	if _, err := Parse("goto-analyzer: error\n", "/build"); err == nil {
		t.Fatal("output without array accepted")
	}
}

const mixedListing = `[
  {"file name": "/proj/src/util.c", "first line": 1, "function": "alpha", "last line": 4},
  {"file name": "src/main.c", "first line": 1, "function": "main", "last line": 9},
  {"file name": "/elsewhere/lib.c", "first line": 1, "function": "lib", "last line": 2}
]
`

func TestParseResolvesAgainstBuildRoot(t *testing.T) {
	f, err := Parse(mixedListing, "/proj")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := map[string][]string{
		"src/main.c": {"main"},
		"src/util.c": {"alpha"},
	}
	if diff := cmp.Diff(want, f.byFile); diff != "" {
		t.Errorf("functions (-want +got):\n%s", diff)
	}

	f, err = Parse(mixedListing, "/proj/src")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want = map[string][]string{
		"src/main.c": {"main"},
		"util.c":     {"alpha"},
	}
	if diff := cmp.Diff(want, f.byFile); diff != "" {
		t.Errorf("nested root (-want +got):\n%s", diff)
	}
}

func TestParseNeedsAbsoluteBuildRoot(t *testing.T) {
	for _, root := range []string{"", ".", "proj"} {
		if _, err := Parse(mixedListing, root); err == nil {
			t.Errorf("build root %q accepted", root)
		}
	}
}

func TestParseSkipsBracketedStatusLines(t *testing.T) {
	out := "GOTO-ANALYZER version 5.12\n[main.assertion.1] line 3 assertion x: UNKNOWN\n[main.assertion.2] line 4 assertion y: SUCCESS\n" + mixedListing
	f, err := Parse(out, "/proj")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Count() != 2 {
		t.Errorf("count = %d, want 2", f.Count())
	}
}

// fakeAnalyzer puts a goto-analyzer on PATH that prints listing when its
// last argument names a file in its working directory.
func fakeAnalyzer(t *testing.T, listing string) {
	t.Helper()
	if !runner.Available("sh") {
		t.Skip("sh not available")
	}
	bin := t.TempDir()
	out := filepath.Join(bin, "listing.json")
	if err := os.WriteFile(out, []byte(listing), 0o644); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\n[ -f \"$4\" ] || { echo \"cannot open $4\" >&2; exit 6; }\ncat '" + out + "'\n"
	if err := os.WriteFile(filepath.Join(bin, "goto-analyzer"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestAnalyzeRunsBesideBinary(t *testing.T) {
	fakeAnalyzer(t, mixedListing)
	dir := t.TempDir()
	gotoPath := filepath.Join(dir, "gotos", "proof.goto")
	if err := os.MkdirAll(filepath.Dir(gotoPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(gotoPath, []byte("goto"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Analyze(context.Background(), gotoPath, "/proj", runner.New(nil), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if f.Count() != 2 {
		t.Errorf("count = %d, want 2", f.Count())
	}

	if _, err := Analyze(context.Background(), "gotos/proof.goto", "/proj", runner.New(nil), nil); err == nil {
		t.Error("relative goto binary accepted")
	}
}
