// Package sources discovers the source files that went into a goto binary
// and loads them for listing.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/diag"
	"proofview/internal/location"
	"proofview/internal/runner"
)

// Method selects how source files are discovered.
type Method uint8

const (
	MethodWalk Method = iota
	MethodFind
	MethodMake
	MethodNone
)

func (m Method) String() string {
	switch m {
	case MethodWalk:
		return "walk"
	case MethodFind:
		return "find"
	case MethodMake:
		return "make"
	default:
		return "none"
	}
}

// ParseMethod converts a flag value.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "walk":
		return MethodWalk, nil
	case "find":
		return MethodFind, nil
	case "make":
		return MethodMake, nil
	case "none":
		return MethodNone, nil
	default:
		return MethodNone, fmt.Errorf("invalid source method: %q (expected: walk|find|make|none)", s)
	}
}

// Sources is the viewer-sources.json document.
type Sources struct {
	Root string `json:"root"`
	// Files are the files under Root, relative to it.
	Files []string `json:"files"`
	// LinesOfCode is the sloc summary when sloc is installed.
	LinesOfCode json.RawMessage `json:"lines-of-code"`
	// FilesUnderRoot are the same files as absolute paths.
	FilesUnderRoot []string `json:"files-under-root"`
	AllFiles       []string `json:"all-files"`
}

// FromFiles builds the listing for root from paths that are absolute or
// relative to root.
func FromFiles(root string, paths []string) *Sources {
	root = location.Canonical(root)
	all := make([]string, 0, len(paths))
	for _, p := range paths {
		all = append(all, location.Join(root, p))
	}
	slices.Sort(all)
	all = slices.Compact(all)

	s := &Sources{Root: root, Files: []string{}, FilesUnderRoot: []string{}, AllFiles: all}
	for _, p := range all {
		if location.IsChild(p, root) {
			s.FilesUnderRoot = append(s.FilesUnderRoot, p)
			s.Files = append(s.Files, location.ChildPath(p, root))
		}
	}
	return s
}

// Empty is the listing used when no sources were looked for.
func Empty() *Sources {
	return &Sources{Files: []string{}, FilesUnderRoot: []string{}, AllFiles: []string{}}
}

// Finder discovers source files.
type Finder struct {
	Run *runner.Runner
	Log *zap.Logger
}

// Find lists the sources under root with method. MethodMake rebuilds in
// blddir with the preprocessor and reads the file names it reports.
func (f *Finder) Find(ctx context.Context, method Method, root, blddir string) (*Sources, error) {
	log := f.Log
	if log == nil {
		log = zap.NewNop()
	}
	if root == "" {
		log.Info("No source files found")
		return Empty(), nil
	}
	var (
		paths []string
		err   error
	)
	switch method {
	case MethodWalk:
		paths, err = Walk(root)
	case MethodFind:
		paths, err = f.find(ctx, root)
	case MethodMake:
		if blddir == "" {
			return nil, fmt.Errorf("source discovery with make needs a build directory")
		}
		paths, err = f.make(ctx, blddir)
	default:
		log.Info("No source files found")
		return Empty(), nil
	}
	if err != nil {
		return nil, err
	}
	s := FromFiles(root, paths)
	if err := location.CheckBatch(s.AllFiles); err != nil {
		return nil, err
	}
	s.LinesOfCode = f.sloc(ctx, s, log)
	log.Debug("found sources", zap.Stringer("method", method), zap.Int("files", len(s.Files)))
	return s, nil
}

func isSourceName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".c", ".h", ".inl":
		return true
	}
	return false
}

// Walk lists .c, .h and .inl files under root, relative to it.
func Walk(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSourceName(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func (f *Finder) find(ctx context.Context, root string) ([]string, error) {
	out, err := f.Run.Run(ctx, runner.Command{
		Name: "find",
		Args: []string{"-L", ".", "(", "-iname", "*.[ch]", "-or", "-iname", "*.inl", ")"},
		Dir:  root,
	})
	if err != nil {
		return nil, err
	}
	var files []string
	for line := range strings.Lines(out) {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, strings.TrimPrefix(line, "./"))
		}
	}
	return files, nil
}

var outputFlag = regexp.MustCompile(` -o (\S+) `)

// make runs the build with goto-cc as a preprocessor and collects the
// file names from the line markers of the preprocessed output. The link
// step fails on preprocessed input; make's status 2 is expected.
func (f *Finder) make(ctx context.Context, blddir string) ([]string, error) {
	clean := runner.Command{Name: "make", Args: []string{"clean"}, Dir: blddir}
	if _, err := f.Run.Run(ctx, clean); err != nil {
		return nil, err
	}
	out, err := f.Run.Run(ctx, runner.Command{
		Name:   "make",
		Args:   []string{"GOTO_CC=goto-cc -E", "goto"},
		Dir:    blddir,
		Ignore: []int{2},
	})
	if err != nil {
		return nil, err
	}

	var outputs []string
	for line := range strings.Lines(out) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "goto-cc") {
			continue
		}
		if m := outputFlag.FindStringSubmatch(line + " "); m != nil {
			outputs = append(outputs, location.Join(blddir, m[1]))
		}
	}

	var files []string
	for _, name := range outputs {
		data, err := os.ReadFile(name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// the failed link step names an output it never wrote
				continue
			}
			return nil, err
		}
		for _, p := range PreprocessedFiles(string(data)) {
			files = append(files, location.Join(blddir, p))
		}
	}
	if _, err := f.Run.Run(ctx, clean); err != nil {
		return nil, err
	}
	return files, nil
}

// PreprocessedFiles extracts the file names of `# N "file"` line markers,
// skipping <built-in> and <command-line>.
func PreprocessedFiles(output string) []string {
	seen := map[string]bool{}
	var files []string
	for line := range strings.Lines(output) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		name := strings.Trim(fields[2], `"`)
		if name == "<built-in>" || name == "<command-line>" || seen[name] {
			continue
		}
		seen[name] = true
		files = append(files, name)
	}
	slices.Sort(files)
	return files
}

func (f *Finder) sloc(ctx context.Context, s *Sources, log *zap.Logger) json.RawMessage {
	if len(s.Files) == 0 || !runner.Available("sloc") {
		return nil
	}
	out, err := f.Run.Run(ctx, runner.Command{Name: "sloc", Args: append([]string{"-f", "json"}, s.Files...), Dir: s.Root})
	if err != nil {
		log.Info("Unable to run sloc", zap.Error(err))
		return nil
	}
	var report struct {
		Summary json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		log.Info("Unable to parse sloc output", zap.Error(err))
		return nil
	}
	return report.Summary
}

// Merge combines several listings of the same root.
func Merge(listings ...*Sources) (*Sources, error) {
	root := ""
	var all []string
	for _, l := range listings {
		if l == nil || l.Root == "" {
			continue
		}
		if root == "" {
			root = l.Root
		} else if root != l.Root {
			return nil, &diag.Error{Code: diag.ConRootMismatch, Subject: l.Root, Msg: fmt.Sprintf("source root differs from %s", root)}
		}
		all = append(all, l.AllFiles...)
	}
	if root == "" {
		return Empty(), nil
	}
	return FromFiles(root, all), nil
}

// Load reads a viewer-sources.json dump.
func Load(b []byte) (*Sources, error) {
	var s Sources
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("viewer-sources: %w", err)
	}
	out := FromFiles(s.Root, s.AllFiles)
	if string(s.LinesOfCode) != "null" {
		out.LinesOfCode = s.LinesOfCode
	}
	return out, nil
}
