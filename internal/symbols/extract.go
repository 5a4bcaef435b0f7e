package symbols

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/runner"
)

// Tagger selects how definitions are found.
type Tagger uint8

const (
	TagsAuto Tagger = iota
	TagsCtags
	TagsEtags
	TagsTreeSitter
	TagsNone
)

func (t Tagger) String() string {
	switch t {
	case TagsAuto:
		return "auto"
	case TagsCtags:
		return "ctags"
	case TagsEtags:
		return "etags"
	case TagsTreeSitter:
		return "treesitter"
	case TagsNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseTagger converts a flag value.
func ParseTagger(s string) (Tagger, error) {
	switch s {
	case "", "auto":
		return TagsAuto, nil
	case "ctags":
		return TagsCtags, nil
	case "etags":
		return TagsEtags, nil
	case "treesitter", "tree-sitter":
		return TagsTreeSitter, nil
	case "none":
		return TagsNone, nil
	default:
		return TagsAuto, fmt.Errorf("invalid tagger: %q (expected: auto|ctags|etags|treesitter|none)", s)
	}
}

// batchSize bounds the number of files passed to one tagger invocation.
const batchSize = 100

// Extractor runs a tagger over the source files of a proof.
type Extractor struct {
	Run *runner.Runner
	Log *zap.Logger
}

// Extract builds the symbol table for files, given relative to root.
func (e *Extractor) Extract(ctx context.Context, tagger Tagger, root string, files []string) (*Table, error) {
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}
	if tagger == TagsAuto {
		tagger = e.detect(ctx, root)
		log.Debug("selected tagger", zap.Stringer("tagger", tagger))
	}
	var (
		defs []Definition
		err  error
	)
	switch tagger {
	case TagsCtags:
		defs, err = e.ctags(ctx, root, files)
	case TagsEtags:
		defs, err = e.etags(ctx, root, files)
	case TagsTreeSitter:
		defs, err = treeSitter(ctx, root, files, log)
	default:
		log.Info("Skipping symbols")
		return Empty(), nil
	}
	if err != nil {
		return nil, err
	}
	return Build(defs, log), nil
}

// detect prefers exuberant or universal ctags, then etags, then the
// in-process parser.
func (e *Extractor) detect(ctx context.Context, root string) Tagger {
	banner := func(name string) string {
		if !runner.Available(name) {
			return ""
		}
		out, err := e.Run.Run(ctx, runner.Command{Name: name, Args: []string{"--help"}, Dir: root})
		if err != nil {
			return ""
		}
		first, _, _ := strings.Cut(out, "\n")
		return strings.ToLower(first)
	}
	if b := banner("ctags"); strings.Contains(b, "ctags") && (strings.Contains(b, "exuberant") || strings.Contains(b, "universal")) {
		return TagsCtags
	}
	if b := banner("etags"); strings.Contains(b, "etags") {
		return TagsEtags
	}
	return TagsTreeSitter
}

func batches(files []string) [][]string {
	var out [][]string
	for len(files) > 0 {
		n := min(batchSize, len(files))
		out = append(out, files[:n])
		files = files[n:]
	}
	return out
}

func (e *Extractor) ctags(ctx context.Context, root string, files []string) ([]Definition, error) {
	var defs []Definition
	for _, batch := range batches(files) {
		out, err := e.Run.Run(ctx, runner.Command{Name: "ctags", Args: append([]string{"-x"}, batch...), Dir: root})
		if err != nil {
			return nil, err
		}
		d, err := ParseCtags(out)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d...)
	}
	return defs, nil
}

func (e *Extractor) etags(ctx context.Context, root string, files []string) ([]Definition, error) {
	if len(files) == 0 {
		return nil, nil
	}
	tags := fmt.Sprintf("TAGS-%d", os.Getpid())
	path := filepath.Join(root, tags)
	_ = os.Remove(path)
	defer os.Remove(path)

	for _, batch := range batches(files) {
		args := append([]string{"-o", tags, "--append"}, batch...)
		if _, err := e.Run.Run(ctx, runner.Command{Name: "etags", Args: args, Dir: root}); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read etags output: %w", err)
	}
	return ParseEtags(string(data))
}

func treeSitter(ctx context.Context, root string, files []string, log *zap.Logger) ([]Definition, error) {
	p := NewCParser()
	var defs []Definition
	for _, f := range files {
		d, err := p.ParseFile(ctx, root, f)
		if err != nil {
			log.Info("skipping unparsable source", zap.String("file", f), zap.Error(err))
			continue
		}
		defs = append(defs, d...)
	}
	return defs, nil
}
