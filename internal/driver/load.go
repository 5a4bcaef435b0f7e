package driver

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"proofview/internal/adapter"
	"proofview/internal/cache"
	"proofview/internal/coverage"
	"proofview/internal/diag"
	"proofview/internal/loop"
	"proofview/internal/property"
	"proofview/internal/reachable"
	"proofview/internal/reconstruct"
	"proofview/internal/result"
	"proofview/internal/runner"
	"proofview/internal/sources"
	"proofview/internal/symbols"
)

// readDump reads a registry dump. ok is false when no dump was named or the
// named file does not exist.
func (l *loader) readDump(what, path string) (data []byte, ok bool, err error) {
	if path == "" {
		return nil, false, nil
	}
	data, err = os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.d.Log.Info("dump not found", zap.String("registry", what), zap.String("path", path))
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func loadDump[T any](l *loader, what, path string, load func([]byte) (T, error)) (T, bool, error) {
	var zero T
	data, ok, err := l.readDump(what, path)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := load(data)
	if err != nil {
		return zero, false, diag.Wrap(diag.InMalformedInput, path, err)
	}
	return v, true, nil
}

func (l *loader) usesDumps() bool {
	d := l.req.Dumps
	return d.Traces != "" || d.Results != "" || d.Coverage != "" || d.Properties != "" || d.Loops != ""
}

// parsed builds the registries derived from verifier output, from dumps
// when any are named, else from the cache or by parsing.
func (l *loader) parsed(ctx context.Context) (*parsedInputs, error) {
	if l.usesDumps() {
		return l.fromDumps()
	}
	key, err := l.cacheKey()
	if err != nil {
		l.d.Log.Warn("cache disabled for this proof", zap.Error(err))
		key = cache.Digest{}
	}
	if !key.IsZero() {
		p, hit, err := l.req.Cache.Get(key)
		switch {
		case err != nil:
			l.d.Log.Warn("ignoring unreadable cache entry", zap.Error(err))
		case hit:
			in, err := restore(p)
			if err == nil {
				l.d.Log.Debug("cache hit", zap.Stringer("key", key))
				return in, nil
			}
			l.d.Log.Warn("ignoring corrupt cache entry", zap.Stringer("key", key), zap.Error(err))
		}
	}

	in, err := l.parse(ctx)
	if err != nil {
		return nil, err
	}
	if !key.IsZero() && l.req.Cache != nil {
		p, err := snapshot(in)
		if err == nil {
			err = l.req.Cache.Put(key, p)
		}
		if err != nil {
			l.d.Log.Warn("cache write failed", zap.Error(err))
		}
	}
	return in, nil
}

// cacheKey covers every input file and each option that changes how the
// files are read. A zero key disables the cache.
func (l *loader) cacheKey() (cache.Digest, error) {
	if l.req.Cache == nil {
		return cache.Digest{}, nil
	}
	req := l.req
	files := append([]string{}, req.Results...)
	files = append(files, req.Coverage...)
	for _, p := range []string{req.Property, req.Loop, l.gotoPath} {
		if p != "" {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return cache.Digest{}, nil
	}
	options := []string{
		"root=" + l.canon.Root(),
		"wkdir=" + l.canon.Dir(),
		"format=" + req.Format.String(),
		"goto=" + l.gotoPath,
	}
	return cache.Key(options, files)
}

// resolve fixes the format of every path. Missing files keep their path so
// that the reader reports them; other errors are fatal.
func (l *loader) resolve(paths []string) ([]adapter.Input, error) {
	ins := make([]adapter.Input, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		in, err := adapter.Resolve(p, l.req.Format)
		if err != nil {
			if diag.CodeOf(err) != diag.InMissingInput {
				return nil, err
			}
			in = adapter.Input{Format: adapter.FormatAuto, Path: p}
		}
		ins = append(ins, in)
	}
	return ins, nil
}

func (l *loader) resolveOne(path string) (adapter.Input, error) {
	ins, err := l.resolve([]string{path})
	if err != nil || len(ins) == 0 {
		return adapter.Input{}, err
	}
	return ins[0], nil
}

func (l *loader) parse(ctx context.Context) (*parsedInputs, error) {
	out := &parsedInputs{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.jobs)
	g.Go(func() (err error) {
		out.traces, out.results, err = l.results()
		return err
	})
	g.Go(func() error {
		ins, err := l.resolve(l.req.Coverage)
		if err != nil {
			return err
		}
		out.coverage, err = coverage.Read(ins, l.canon, l.d.Log)
		return err
	})
	g.Go(func() error {
		in, err := l.resolveOne(l.req.Property)
		if err != nil {
			return err
		}
		out.properties, err = property.Read(in, l.canon, l.d.Log)
		return err
	})
	g.Go(func() error {
		in, err := l.resolveOne(l.req.Loop)
		if err != nil {
			return err
		}
		out.loops, err = loop.Read(gctx, loop.Source{Input: in, Goto: l.gotoPath}, l.canon, l.d.Run, l.d.Log)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// results parses every verifier output, merges them and repairs the traces
// of the failed properties.
func (l *loader) results() (*reconstruct.Store, *result.Results, error) {
	ins, err := l.resolve(l.req.Results)
	if err != nil {
		return nil, nil, err
	}
	p := adapter.New(l.canon, l.d.Log)
	var outs []*adapter.Output
	for _, in := range ins {
		o, err := p.Parse(in)
		if err != nil {
			if diag.CodeOf(err) == diag.InMissingInput {
				l.d.Log.Info("result file not found", zap.String("path", in.Path))
				continue
			}
			return nil, nil, err
		}
		outs = append(outs, o)
	}
	if len(outs) == 0 {
		l.d.Log.Info("No results data found")
		return reconstruct.FromMap(nil), result.Empty(), nil
	}
	merged := adapter.Merge(outs...)
	traces, err := reconstruct.Build(merged.Traces)
	if err != nil {
		return nil, nil, err
	}
	return traces, result.FromOutput(merged), nil
}

func (l *loader) fromDumps() (*parsedInputs, error) {
	d := l.req.Dumps
	out := &parsedInputs{
		traces:     reconstruct.FromMap(nil),
		results:    result.Empty(),
		coverage:   coverage.Empty(),
		properties: property.Empty(),
		loops:      loop.Empty(),
	}
	var err error
	if v, ok, e := loadDump(l, "traces", d.Traces, reconstruct.Load); ok {
		out.traces = v
	} else {
		err = errors.Join(err, e)
	}
	if v, ok, e := loadDump(l, "results", d.Results, result.Load); ok {
		out.results = v
	} else {
		err = errors.Join(err, e)
	}
	if v, ok, e := loadDump(l, "coverage", d.Coverage, coverage.Load); ok {
		out.coverage = v
	} else {
		err = errors.Join(err, e)
	}
	if v, ok, e := loadDump(l, "properties", d.Properties, property.Load); ok {
		out.properties = v
	} else {
		err = errors.Join(err, e)
	}
	if v, ok, e := loadDump(l, "loops", d.Loops, loop.Load); ok {
		out.loops = v
	} else {
		err = errors.Join(err, e)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *loader) sources(ctx context.Context) (*sources.Sources, error) {
	if len(l.req.Dumps.Sources) > 0 {
		var listings []*sources.Sources
		for _, path := range l.req.Dumps.Sources {
			s, ok, err := loadDump(l, "sources", path, sources.Load)
			if err != nil {
				return nil, err
			}
			if ok {
				listings = append(listings, s)
			}
		}
		return sources.Merge(listings...)
	}
	root := ""
	if l.req.Srcdir != "" {
		root = l.canon.Root()
	}
	f := &sources.Finder{Run: l.d.Run, Log: l.d.Log}
	return f.Find(ctx, l.req.Sources, root, l.blddir)
}

func (l *loader) symbols(ctx context.Context, src *sources.Sources) (*symbols.Table, error) {
	if t, ok, err := loadDump(l, "symbols", l.req.Dumps.Symbols, symbols.Load); ok || err != nil {
		return t, err
	}
	if len(src.Files) == 0 {
		return symbols.Empty(), nil
	}
	e := &symbols.Extractor{Run: l.d.Run, Log: l.d.Log}
	return e.Extract(ctx, l.req.Tags, src.Root, src.Files)
}

func (l *loader) reachable(ctx context.Context) (*reachable.Functions, error) {
	if f, ok, err := loadDump(l, "reachable", l.req.Dumps.Reachable, reachable.Load); ok || err != nil {
		return f, err
	}
	if l.gotoPath != "" && !runner.Available("goto-analyzer") {
		l.d.Log.Info("No reachable function data: goto-analyzer not installed")
		return reachable.Empty(), nil
	}
	return reachable.Analyze(ctx, l.gotoPath, l.blddir, l.d.Run, l.d.Log)
}

// snapshot converts parsed registries to a cache payload.
func snapshot(in *parsedInputs) (*cache.Payload, error) {
	p := &cache.Payload{
		Traces:              in.traces.Map(),
		FailureDescriptions: in.results.Descriptions(),
	}
	var err error
	if p.Results, err = marshal(in.results); err != nil {
		return nil, err
	}
	if p.Coverage, err = marshal(in.coverage); err != nil {
		return nil, err
	}
	if p.Properties, err = marshal(in.properties); err != nil {
		return nil, err
	}
	if p.Loops, err = marshal(in.loops); err != nil {
		return nil, err
	}
	return p, nil
}

func restore(p *cache.Payload) (*parsedInputs, error) {
	res, err := result.Load(p.Results)
	if err != nil {
		return nil, err
	}
	cov, err := coverage.Load(p.Coverage)
	if err != nil {
		return nil, err
	}
	props, err := property.Load(p.Properties)
	if err != nil {
		return nil, err
	}
	loops, err := loop.Load(p.Loops)
	if err != nil {
		return nil, err
	}
	return &parsedInputs{
		traces:     reconstruct.FromMap(p.Traces),
		results:    res.WithDescriptions(p.FailureDescriptions),
		coverage:   cov,
		properties: props,
		loops:      loops,
	}, nil
}
