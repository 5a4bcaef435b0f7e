// Package loop indexes the verifier's loop listing (--show-loops) so that
// unwinding failures can be pointed at their loop.
package loop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/adapter"
	"proofview/internal/diag"
	"proofview/internal/location"
	"proofview/internal/runner"
)

// Registry maps cleaned loop names (function.N) to their location.
type Registry struct {
	loops map[string]location.Location
}

// Empty returns a registry with no loops.
func Empty() *Registry { return &Registry{loops: map[string]location.Location{}} }

// CleanName strips a $-suffixed inlining or linkage decoration from the
// function part of a loop name: "f$link1.0" becomes "f.0".
func CleanName(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return name
	}
	fn, index := name[:dot], name[dot:]
	if i := strings.IndexByte(fn, '$'); i >= 0 {
		fn = fn[:i]
	}
	return fn + index
}

// FailureLoopName maps an unwinding failure "f.unwind.N" to the loop name
// "f.N". Other names are returned unchanged with ok false.
func FailureLoopName(property string) (string, bool) {
	fn, index, ok := strings.Cut(property, ".unwind.")
	if !ok || fn == "" || index == "" {
		return property, false
	}
	return CleanName(fn + "." + index), true
}

func (r *Registry) add(name string, loc location.Location) {
	r.loops[CleanName(name)] = loc
}

// Lookup returns the location of a loop by its name.
func (r *Registry) Lookup(name string) (location.Location, bool) {
	loc, ok := r.loops[CleanName(name)]
	return loc, ok
}

// ForFailure returns the loop an unwinding failure refers to.
func (r *Registry) ForFailure(property string) (location.Location, bool) {
	name, ok := FailureLoopName(property)
	if !ok {
		return location.Location{}, false
	}
	return r.Lookup(name)
}

// Names returns all loop names, sorted.
func (r *Registry) Names() []string { return slices.Sorted(maps.Keys(r.loops)) }

func (r *Registry) Len() int { return len(r.loops) }

// Source selects where loop data comes from: a listing file or a goto
// binary to run the verifier on.
type Source struct {
	Input adapter.Input
	Goto  string
}

// Read loads loops from src. Neither a file nor a goto binary yields an
// empty registry; a failed verifier run is a tool failure.
func Read(ctx context.Context, src Source, c *location.Canonicalizer, run *runner.Runner, log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch {
	case src.Input.Path != "":
		f, err := adapter.Open(src.Input.Path)
		if err != nil {
			if diag.CodeOf(err) == diag.InMissingInput {
				log.Info("No loop information found", zap.String("path", src.Input.Path))
				return Empty(), nil
			}
			return nil, err
		}
		defer f.Close()
		var reg *Registry
		switch src.Input.Format {
		case adapter.FormatJSON:
			reg, err = ParseJSON(f, c)
		case adapter.FormatXML:
			reg, err = ParseXML(f, c)
		default:
			err = &diag.Error{Code: diag.InUnknownFormat, Subject: src.Input.Format.String(), Msg: "loop data must be xml or json"}
		}
		if err != nil {
			return nil, diag.WithPath(src.Input.Path, err)
		}
		return reg, nil
	case src.Goto != "":
		return FromGoto(ctx, src.Goto, c, run)
	default:
		log.Info("No loop information found")
		return Empty(), nil
	}
}

// FromGoto runs `cbmc --show-loops --json-ui` on a goto binary. The path
// must be absolute.
func FromGoto(ctx context.Context, gotoPath string, c *location.Canonicalizer, run *runner.Runner) (*Registry, error) {
	if !filepath.IsAbs(gotoPath) {
		return nil, fmt.Errorf("goto binary %q is not absolute", gotoPath)
	}
	out, err := run.Run(ctx, runner.Command{
		Name: "cbmc",
		Args: []string{"--show-loops", "--json-ui", gotoPath},
		Dir:  filepath.Dir(gotoPath),
	})
	if err != nil {
		return nil, err
	}
	return ParseJSON(bytes.NewReader([]byte(out)), c)
}

type jsonLoop struct {
	Name           string                  `json:"name"`
	SourceLocation *adapter.SourceLocation `json:"sourceLocation"`
}

// ParseJSON reads `cbmc --show-loops --json-ui` output.
func ParseJSON(r io.Reader, c *location.Canonicalizer) (*Registry, error) {
	entries, err := adapter.ReadJSON(r)
	if err != nil {
		return nil, err
	}
	var list []jsonLoop
	if _, err := adapter.FindJSON(entries, "loops", &list); err != nil {
		return nil, err
	}
	reg := Empty()
	for _, l := range list {
		reg.add(l.Name, l.SourceLocation.Resolve(c))
	}
	return reg, nil
}

// ParseXML reads `cbmc --show-loops --xml-ui` output.
func ParseXML(r io.Reader, c *location.Canonicalizer) (*Registry, error) {
	root, err := adapter.ReadXML(r)
	if err != nil {
		return nil, err
	}
	reg := Empty()
	err = root.Walk("loop", func(n *adapter.Node) error {
		name, ok := n.Attr("name")
		if !ok {
			return &diag.Error{Code: diag.InMalformedInput, Msg: "loop without a name"}
		}
		reg.add(name, n.Child("location").Location(c))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

type registryJSON struct {
	Loops map[string]location.Location `json:"loops"`
}

// MarshalJSON writes the viewer-loops.json shape.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(registryJSON{Loops: r.loops})
}

// Load reads a viewer-loops.json dump.
func Load(b []byte) (*Registry, error) {
	var raw registryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("viewer-loops: %w", err)
	}
	reg := Empty()
	for name, loc := range raw.Loops {
		reg.add(name, loc)
	}
	return reg, nil
}
