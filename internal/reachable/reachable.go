// Package reachable lists the functions goto-analyzer finds statically
// reachable, grouped by source file.
package reachable

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/diag"
	"proofview/internal/location"
	"proofview/internal/runner"
)

// Functions maps a build-root relative path to its reachable function
// names, sorted.
type Functions struct {
	byFile map[string][]string
}

// Empty returns an empty listing.
func Empty() *Functions { return &Functions{byFile: map[string][]string{}} }

var (
	emptyFirstLine = regexp.MustCompile(`"first line":\s*,`)
	emptyLastLine  = regexp.MustCompile(`"last line":\s*(\n|\})`)
)

type analyzerFunction struct {
	Function string `json:"function"`
	FileName string `json:"file name"`
}

// Parse decodes goto-analyzer output. Text up to the last line opening
// with '[' is skipped and empty line fields are repaired. Relative file
// names are resolved against blddir, which must be absolute.
// Verifier-internal names, builtins and files outside blddir are dropped.
func Parse(out string, blddir string) (*Functions, error) {
	start := strings.LastIndex(out, "\n[")
	switch {
	case start >= 0:
		start++
	case strings.HasPrefix(out, "["):
		start = 0
	default:
		return nil, &diag.Error{Code: diag.InMalformedInput, Msg: "no reachable-functions array in goto-analyzer output"}
	}
	doc := out[start:]
	doc = emptyFirstLine.ReplaceAllString(doc, `"first line": 0,`)
	doc = emptyLastLine.ReplaceAllString(doc, `"last line": 0$1`)

	var list []analyzerFunction
	if err := json.Unmarshal([]byte(doc), &list); err != nil {
		return nil, &diag.Error{Code: diag.InMalformedInput, Msg: "reachable functions", Err: err}
	}

	if !location.IsAbs(blddir) {
		return nil, fmt.Errorf("build root %q is not absolute", blddir)
	}
	root := location.Canonical(blddir)
	sets := map[string]map[string]struct{}{}
	for _, fn := range list {
		if strings.HasPrefix(fn.Function, "__CPROVER") {
			continue
		}
		if location.IsBuiltin(fn.FileName) {
			continue
		}
		path := location.Join(root, fn.FileName)
		if !location.IsChild(path, root) {
			continue
		}
		rel := location.ChildPath(path, root)
		if sets[rel] == nil {
			sets[rel] = map[string]struct{}{}
		}
		sets[rel][fn.Function] = struct{}{}
	}
	f := Empty()
	for path, names := range sets {
		f.byFile[path] = slices.Sorted(maps.Keys(names))
	}
	return f, nil
}

// Analyze runs goto-analyzer on a goto binary. gotoPath and blddir must be
// absolute; the analyzer runs in the binary's directory.
func Analyze(ctx context.Context, gotoPath, blddir string, run *runner.Runner, log *zap.Logger) (*Functions, error) {
	if gotoPath == "" {
		if log != nil {
			log.Info("No reachable function data: no goto binary given")
		}
		return Empty(), nil
	}
	if !filepath.IsAbs(gotoPath) {
		return nil, fmt.Errorf("goto binary %q is not absolute", gotoPath)
	}
	out, err := run.Run(ctx, runner.Command{
		Name: "goto-analyzer",
		Args: []string{"--reachable-functions", "--json", "-", filepath.Base(gotoPath)},
		Dir:  filepath.Dir(gotoPath),
	})
	if err != nil {
		return nil, err
	}
	return Parse(out, blddir)
}

// Files returns the files with reachable functions, sorted.
func (f *Functions) Files() []string { return slices.Sorted(maps.Keys(f.byFile)) }

// In returns the reachable functions of one file.
func (f *Functions) In(path string) []string { return slices.Clone(f.byFile[path]) }

// Reachable reports whether function name in path is reachable.
func (f *Functions) Reachable(path, name string) bool {
	_, ok := slices.BinarySearch(f.byFile[path], name)
	return ok
}

// Count returns the number of reachable functions.
func (f *Functions) Count() int {
	n := 0
	for _, names := range f.byFile {
		n += len(names)
	}
	return n
}

type functionsJSON struct {
	Functions map[string][]string `json:"reachable-functions"`
}

func (f *Functions) MarshalJSON() ([]byte, error) {
	return json.Marshal(functionsJSON{Functions: f.byFile})
}

// Load reads a viewer-reachable.json dump.
func Load(b []byte) (*Functions, error) {
	var raw functionsJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("viewer-reachable: %w", err)
	}
	f := Empty()
	for path, names := range raw.Functions {
		f.byFile[path] = slices.Sorted(slices.Values(names))
	}
	return f, nil
}
