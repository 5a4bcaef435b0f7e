package coverage

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/adapter"
	"proofview/internal/diag"
	"proofview/internal/location"
)

var blockDescription = regexp.MustCompile(`^block [0-9]+ \(lines (.*)\)$`)

// Block is one file:function:lines part of a goal description.
type Block struct {
	File     string
	Function string
	Lines    []int
}

// ParseDescription splits "block N (lines f.c:fn:1-3,7;g.c:gn:9)" into
// blocks. Ranges are inclusive. ok is false when desc is not a block
// description at all.
func ParseDescription(desc string) (blocks []Block, ok bool, err error) {
	m := blockDescription.FindStringSubmatch(strings.TrimSpace(desc))
	if m == nil {
		return nil, false, nil
	}
	for part := range strings.SplitSeq(m[1], ";") {
		block, err := parseBlock(part)
		if err != nil {
			return nil, true, fmt.Errorf("coverage description %q: %w", desc, err)
		}
		blocks = append(blocks, block)
	}
	return blocks, true, nil
}

func parseBlock(s string) (Block, error) {
	// The file name may itself contain ':' so split from the right.
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return Block{}, fmt.Errorf("block %q has no line list", s)
	}
	head, ranges := s[:i], s[i+1:]
	j := strings.LastIndexByte(head, ':')
	if j < 0 {
		return Block{}, fmt.Errorf("block %q has no function", s)
	}
	b := Block{File: head[:j], Function: head[j+1:]}
	for r := range strings.SplitSeq(ranges, ",") {
		lo, hi, isRange := strings.Cut(strings.TrimSpace(r), "-")
		first, err := location.ParseLine(lo)
		if err != nil {
			return Block{}, err
		}
		last := first
		if isRange {
			if last, err = location.ParseLine(hi); err != nil {
				return Block{}, err
			}
		}
		for line := first; line <= last; line++ {
			b.Lines = append(b.Lines, line)
		}
	}
	return b, nil
}

// goalReader folds goals into a builder.
type goalReader struct {
	canon *location.Canonicalizer
	log   *zap.Logger
	b     *Builder
}

func (g *goalReader) goal(description, status string, loc location.Location, wkdir string) error {
	if description == "" {
		g.log.Debug("coverage goal without description")
		return nil
	}
	hit := ParseGoalStatus(status)
	blocks, ok, err := ParseDescription(description)
	if err != nil {
		return &diag.Error{Code: diag.InMalformedInput, Msg: "coverage goal", Err: err}
	}
	if !ok {
		g.log.Debug("unparsable coverage description", zap.String("description", description))
		if loc.Linkable() {
			g.b.Add(Key{File: loc.File, Function: loc.Function, Line: loc.Line}, hit)
		}
		return nil
	}
	for i, blk := range blocks {
		file := loc.File
		// A single block describes the goal's own file; further blocks
		// come from inlining and name their own.
		if i > 0 || loc.IsMissing() {
			file = g.canon.Path(blk.File, wkdir)
		}
		if location.IsBuiltin(file) || file == location.Missing.File {
			continue
		}
		fn := blk.Function
		if fn == "" {
			fn = loc.Function
		}
		if fn != loc.Function && i == 0 {
			g.log.Debug("using description function name", zap.String("description", fn), zap.String("location", loc.Function))
		}
		for _, line := range blk.Lines {
			g.b.Add(Key{File: file, Function: fn, Line: line}, hit)
		}
	}
	return nil
}

type jsonGoal struct {
	Description    string                  `json:"description"`
	Status         string                  `json:"status"`
	SourceLocation *adapter.SourceLocation `json:"sourceLocation"`
}

// ParseJSON reads `cbmc --cover location --json-ui` output into b.
func ParseJSON(r io.Reader, c *location.Canonicalizer, b *Builder, log *zap.Logger) error {
	entries, err := adapter.ReadJSON(r)
	if err != nil {
		return err
	}
	var goals []jsonGoal
	if _, err := adapter.FindJSON(entries, "goals", &goals); err != nil {
		return err
	}
	g := &goalReader{canon: c, log: orNop(log), b: b}
	for _, goal := range goals {
		wkdir := ""
		if goal.SourceLocation != nil {
			wkdir = goal.SourceLocation.WorkingDirectory
		}
		if err := g.goal(goal.Description, goal.Status, goal.SourceLocation.Resolve(c), wkdir); err != nil {
			return err
		}
	}
	return nil
}

// ParseXML reads `cbmc --cover location --xml-ui` output into b.
func ParseXML(r io.Reader, c *location.Canonicalizer, b *Builder, log *zap.Logger) error {
	root, err := adapter.ReadXML(r)
	if err != nil {
		return err
	}
	g := &goalReader{canon: c, log: orNop(log), b: b}
	return root.Walk("goal", func(n *adapter.Node) error {
		description, ok := n.Attr("description")
		if !ok {
			return nil
		}
		status, _ := n.Attr("status")
		locNode := n.Child("location")
		wkdir := ""
		if locNode != nil {
			wkdir, _ = locNode.Attr("working-directory")
		}
		return g.goal(description, status, locNode.Location(c), wkdir)
	})
}

// Read loads and merges coverage from every input. Missing files are
// skipped; when nothing is found the map is empty.
func Read(ins []adapter.Input, c *location.Canonicalizer, log *zap.Logger) (*Map, error) {
	log = orNop(log)
	b := NewBuilder()
	found := false
	for _, in := range ins {
		if in.Path == "" {
			continue
		}
		f, err := adapter.Open(in.Path)
		if err != nil {
			if diag.CodeOf(err) == diag.InMissingInput {
				log.Info("coverage file not found", zap.String("path", in.Path))
				continue
			}
			return nil, err
		}
		switch in.Format {
		case adapter.FormatJSON:
			err = ParseJSON(f, c, b, log)
		case adapter.FormatXML:
			err = ParseXML(f, c, b, log)
		default:
			err = &diag.Error{Code: diag.InUnknownFormat, Subject: in.Format.String(), Msg: "coverage data must be xml or json"}
		}
		f.Close()
		if err != nil {
			return nil, diag.WithPath(in.Path, err)
		}
		found = true
	}
	if !found {
		log.Info("No coverage data found")
	}
	return b.Build(), nil
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
