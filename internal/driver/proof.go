package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"proofview/internal/adapter"
	"proofview/internal/cache"
	"proofview/internal/coverage"
	"proofview/internal/location"
	"proofview/internal/loop"
	"proofview/internal/observ"
	"proofview/internal/property"
	"proofview/internal/reachable"
	"proofview/internal/reconstruct"
	"proofview/internal/render"
	"proofview/internal/result"
	"proofview/internal/runner"
	"proofview/internal/sources"
	"proofview/internal/summary"
	"proofview/internal/symbols"
)

// Dumps name previously written registry dumps to load instead of parsing
// verifier output.
type Dumps struct {
	Traces     string
	Results    string
	Coverage   string
	Properties string
	Loops      string
	Symbols    string
	Sources    []string
	Reachable  string
}

// Request describes one proof report. Srcdir, Blddir and Goto are resolved
// against Wkdir, which defaults to the process working directory. Other
// paths are absolute or relative to the process working directory.
type Request struct {
	Results  []string
	Coverage []string
	Property string
	Loop     string
	Goto     string
	// Format forces the format of every verifier output; FormatAuto picks
	// it per file.
	Format adapter.Format

	Srcdir string
	Wkdir  string
	// Blddir defaults to the source root.
	Blddir string

	Sources sources.Method
	Tags    symbols.Tagger
	Dumps   Dumps

	// HTMLDir receives the report; empty skips rendering. JSONDir receives
	// the registry dumps; empty skips them.
	HTMLDir string
	JSONDir string

	Title           string
	ProofName       string
	ExpectedMissing []string
	InProofRoot     func(file string) bool

	// Jobs bounds how many inputs are loaded at once.
	Jobs  int
	Cache *cache.Cache
}

// Report holds every registry of one proof.
type Report struct {
	Sources    *sources.Sources
	Symbols    *symbols.Table
	Coverage   *coverage.Map
	Results    *result.Results
	Properties *property.Registry
	Loops      *loop.Registry
	Traces     *reconstruct.Store
	Reachable  *reachable.Functions
	Summary    summary.Proof
}

// Driver runs report requests.
type Driver struct {
	Run   *runner.Runner
	Log   *zap.Logger
	Timer *observ.Timer
}

// New creates a Driver logging to log.
func New(log *zap.Logger, timer *observ.Timer) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{Run: runner.New(log), Log: log, Timer: timer}
}

// Build loads every registry of the proof. Independent inputs are read in
// parallel; the first fatal error cancels the rest.
func (d *Driver) Build(ctx context.Context, req *Request) (*Report, error) {
	if req == nil {
		return nil, fmt.Errorf("missing report request")
	}
	wkdir, err := absDir(req.Wkdir)
	if err != nil {
		return nil, err
	}
	canon, err := location.New(inDir(wkdir, req.Srcdir), location.Canonical(wkdir))
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	blddir := canon.Root()
	if req.Blddir != "" {
		blddir = location.Canonical(inDir(wkdir, req.Blddir))
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	l := &loader{d: d, req: req, canon: canon, jobs: jobs, gotoPath: inDir(wkdir, req.Goto), blddir: blddir}
	rep := &Report{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	var parsed *parsedInputs
	g.Go(func() error {
		return d.Timer.Track("verifier output", func() (err error) {
			parsed, err = l.parsed(gctx)
			return err
		})
	})
	g.Go(func() error {
		return d.Timer.Track("sources and symbols", func() (err error) {
			if rep.Sources, err = l.sources(gctx); err != nil {
				return err
			}
			rep.Symbols, err = l.symbols(gctx, rep.Sources)
			return err
		})
	})
	g.Go(func() error {
		return d.Timer.Track("reachable functions", func() (err error) {
			rep.Reachable, err = l.reachable(gctx)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep.Traces = parsed.traces
	rep.Results = parsed.results
	rep.Coverage = parsed.coverage
	rep.Properties = parsed.properties
	rep.Loops = parsed.loops
	rep.Summary = summary.Compute(summary.Inputs{
		Coverage:        rep.Coverage,
		Results:         rep.Results,
		Properties:      rep.Properties,
		Loops:           rep.Loops,
		InProofRoot:     req.InProofRoot,
		ExpectedMissing: req.ExpectedMissing,
	})
	return rep, nil
}

// Generate builds the registries, writes the JSON dumps and renders the
// HTML report.
func (d *Driver) Generate(ctx context.Context, req *Request) (*Report, error) {
	rep, err := d.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.JSONDir != "" {
		if err := d.Timer.Track("json dumps", func() error {
			return rep.WriteJSON(req.JSONDir, req.proofName())
		}); err != nil {
			return nil, err
		}
	}
	if req.HTMLDir != "" {
		in := render.Input{
			Title:           req.Title,
			Sources:         rep.Sources,
			Symbols:         rep.Symbols,
			Coverage:        rep.Coverage,
			Results:         rep.Results,
			Properties:      rep.Properties,
			Loops:           rep.Loops,
			Traces:          rep.Traces,
			ExpectedMissing: req.ExpectedMissing,
		}
		if err := d.Timer.Track("html", func() error {
			return render.New(in, d.Log).Write(req.HTMLDir)
		}); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func absDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

// inDir resolves a relative p against dir. Empty stays empty.
func inDir(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func (req *Request) proofName() string {
	if req.ProofName != "" {
		return req.ProofName
	}
	return "PROOF"
}

// parsedInputs are the registries built from verifier output, which is
// what the cache stores.
type parsedInputs struct {
	traces     *reconstruct.Store
	results    *result.Results
	coverage   *coverage.Map
	properties *property.Registry
	loops      *loop.Registry
}

// loader reads one kind of input per method. Methods run on separate
// goroutines and share only read-only state.
type loader struct {
	d     *Driver
	req   *Request
	canon *location.Canonicalizer
	jobs  int

	// absolute; gotoPath is empty without a goto binary
	gotoPath string
	blddir   string
}
