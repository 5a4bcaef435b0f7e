package location

import (
	"fmt"
	"regexp"
	"strconv"

	"fortio.org/safecast"
)

// Canonicalizer maps verifier file references onto one root-relative
// addressing scheme. Relative paths without a working directory are taken
// relative to the root, relative working directories relative to dir.
type Canonicalizer struct {
	root string
	dir  string
}

// New returns a Canonicalizer for the source tree at root. dir is the
// directory that relative roots and relative working directories are
// resolved against; it must be absolute when root is relative.
func New(root, dir string) (*Canonicalizer, error) {
	if dir != "" && !IsAbs(dir) {
		return nil, fmt.Errorf("base directory %q is not absolute", dir)
	}
	if root == "" {
		root = dir
	}
	if root == "" {
		return nil, fmt.Errorf("source root required")
	}
	if !IsAbs(root) {
		if dir == "" {
			return nil, fmt.Errorf("relative source root %q needs a base directory", root)
		}
		root = Join(dir, root)
	}
	root = Canonical(root)
	if dir == "" {
		dir = root
	}
	return &Canonicalizer{root: root, dir: Canonical(dir)}, nil
}

// MustNew is New for fixed, known-good arguments.
func MustNew(root, dir string) *Canonicalizer {
	c, err := New(root, dir)
	if err != nil {
		panic(err)
	}
	return c
}

// Root returns the canonical absolute source root.
func (c *Canonicalizer) Root() string { return c.root }

// Dir returns the canonical base directory.
func (c *Canonicalizer) Dir() string { return c.dir }

// Abs resolves p to a canonical absolute path. A relative p is taken relative
// to wkdir when given, and to the source root otherwise.
func (c *Canonicalizer) Abs(p, wkdir string) string {
	if IsAbs(p) {
		return Canonical(p)
	}
	base := c.root
	if wkdir != "" {
		base = Join(c.dir, wkdir)
	}
	return Join(base, p)
}

// Path returns the canonical form of p: builtin markers unchanged, paths
// under the root relative to the root, everything else absolute.
func (c *Canonicalizer) Path(p, wkdir string) string {
	if name, ok := BuiltinName(p); ok {
		return name
	}
	if p == "" {
		return ""
	}
	abs := c.Abs(p, wkdir)
	if abs == c.root {
		return "."
	}
	return ChildPath(abs, c.root)
}

// AbsPath inverts Path for files in the source tree.
func (c *Canonicalizer) AbsPath(p string) string {
	if IsBuiltin(p) {
		return p
	}
	return Join(c.root, p)
}

// Location builds a canonical location. A missing file yields Missing, as
// does a real file with no function or no line; builtin locations keep
// whatever function and line they carry.
func (c *Canonicalizer) Location(file, function string, line *int, wkdir string) Location {
	if file == "" {
		return Missing
	}
	if IsBuiltin(file) {
		loc := Location{File: c.Path(file, wkdir), Function: function}
		if line != nil {
			loc.Line = *line
		}
		return loc
	}
	if function == "" || line == nil {
		return Missing
	}
	return Location{File: c.Path(file, wkdir), Function: function, Line: *line}
}

var (
	textFileFunctionLine = regexp.MustCompile(`file (.+) function (\S+) line ([0-9]+)`)
	textFileLineFunction = regexp.MustCompile(`file (.+) line ([0-9]+) function (\S+)`)
	textFunctionOnly     = regexp.MustCompile(`function (\S+)`)
)

// ParseText extracts a location from the verifier's console form, e.g.
// "file foo.c function main line 12 thread 0". Models of intrinsic
// functions name only the function; those map to <intrinsic> line 0.
func (c *Canonicalizer) ParseText(s, wkdir string) (Location, bool) {
	if m := textFileFunctionLine.FindStringSubmatch(s); m != nil {
		line, err := ParseLine(m[3])
		if err == nil {
			return c.Location(m[1], m[2], &line, wkdir), true
		}
	}
	if m := textFileLineFunction.FindStringSubmatch(s); m != nil {
		line, err := ParseLine(m[2])
		if err == nil {
			return c.Location(m[1], m[3], &line, wkdir), true
		}
	}
	if m := textFunctionOnly.FindStringSubmatch(s); m != nil {
		zero := 0
		return c.Location(Intrinsic, m[1], &zero, wkdir), true
	}
	return Location{}, false
}

// ParseLine converts a decimal line number as printed by the verifier.
func ParseLine(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad line number %q: %w", s, err)
	}
	line, err := safecast.Conv[int](n)
	if err != nil {
		return 0, fmt.Errorf("line number %q: %w", s, err)
	}
	return line, nil
}
