// Package render writes the HTML report: an index with coverage, warnings
// and the failure tree, an annotated listing per source file and one page
// per counterexample trace.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"proofview/internal/coverage"
	"proofview/internal/loop"
	"proofview/internal/property"
	"proofview/internal/reconstruct"
	"proofview/internal/result"
	"proofview/internal/sources"
	"proofview/internal/symbols"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets/*
var assetFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Assets exposes the stylesheet and script copied next to every report.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Input is everything one report is rendered from. Nil registries render
// as empty sections.
type Input struct {
	Title      string
	Sources    *sources.Sources
	Files      *sources.FileSet
	Symbols    *symbols.Table
	Coverage   *coverage.Map
	Results    *result.Results
	Properties *property.Registry
	Loops      *loop.Registry
	Traces     *reconstruct.Store
	// ExpectedMissing lists functions allowed to have no body. Nil means no
	// list was configured and missing functions are not classified.
	ExpectedMissing []string
}

// Renderer writes a report into one output directory.
type Renderer struct {
	in       Input
	snippets snippets
	log      *zap.Logger
}

// New prepares a renderer. Files default to a FileSet over the source root.
func New(in Input, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	if in.Sources == nil {
		in.Sources = sources.Empty()
	}
	if in.Files == nil {
		in.Files = sources.NewFileSet(in.Sources.Root)
	}
	if in.Symbols == nil {
		in.Symbols = symbols.Empty()
	}
	if in.Coverage == nil {
		in.Coverage = coverage.Empty()
	}
	if in.Results == nil {
		in.Results = result.Empty()
	}
	if in.Properties == nil {
		in.Properties = property.Empty()
	}
	if in.Loops == nil {
		in.Loops = loop.Empty()
	}
	if in.Traces == nil {
		in.Traces = reconstruct.FromMap(nil)
	}
	return &Renderer{in: in, snippets: snippets{files: in.Files, log: log}, log: log}
}

// Write renders the whole report under htmldir.
func (r *Renderer) Write(htmldir string) error {
	if err := os.MkdirAll(htmldir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", htmldir, err)
	}
	if err := writeAssets(htmldir); err != nil {
		return err
	}
	if err := r.WriteIndex(htmldir); err != nil {
		return err
	}
	for _, path := range r.in.Sources.Files {
		if err := r.WriteSource(htmldir, path); err != nil {
			return err
		}
	}
	return r.WriteTraces(htmldir)
}

// WriteIndex writes index.html.
func (r *Renderer) WriteIndex(htmldir string) error {
	return execute(filepath.Join(htmldir, "index.html"), "index.html.tmpl", r.indexPage())
}

// WriteSource writes the annotated listing of one root-relative source
// file to htmldir/<path>.html. A file that cannot be read is logged and
// skipped.
func (r *Renderer) WriteSource(htmldir, path string) error {
	f, err := r.in.Files.Load(path)
	if err != nil {
		r.log.Info("Skipping unreadable source file", zap.String("file", path), zap.Error(err))
		return nil
	}
	r.log.Debug("Annotating source file", zap.String("file", path))
	data := struct {
		Path string
		Root string
		Code template.HTML
	}{
		Path: f.Path,
		Root: pathToRoot(f.Path),
		Code: annotate(markupCode(f.Path, string(f.Content), r.in.Symbols), r.in.Coverage.FileLines(f.Path)),
	}
	return execute(filepath.Join(htmldir, filepath.FromSlash(f.Path)+".html"), "source.html.tmpl", data)
}

// WriteTraces writes htmldir/traces/<property>.html for every trace.
func (r *Renderer) WriteTraces(htmldir string) error {
	dir := filepath.Join(htmldir, "traces")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, name := range r.in.Traces.Names() {
		t, _ := r.in.Traces.Get(name)
		if err := execute(filepath.Join(dir, name+".html"), "trace.html.tmpl", r.tracePage(t)); err != nil {
			return err
		}
	}
	return nil
}

func writeAssets(htmldir string) error {
	assets := Assets()
	return fs.WalkDir(assets, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := fs.ReadFile(assets, p)
		if err != nil {
			return err
		}
		// #nosec G306 -- report files are meant to be world readable
		if err := os.WriteFile(filepath.Join(htmldir, p), b, 0o644); err != nil {
			return fmt.Errorf("write asset %s: %w", p, err)
		}
		return nil
	})
}

func execute(path, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	// #nosec G306 -- report files are meant to be world readable
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
