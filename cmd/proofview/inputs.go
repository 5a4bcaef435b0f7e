package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"proofview/internal/adapter"
	"proofview/internal/cache"
	"proofview/internal/config"
	"proofview/internal/driver"
	"proofview/internal/sources"
	"proofview/internal/symbols"
)

// addInputFlags registers the flags naming the verifier output of a proof.
// Unset flags fall back to the [inputs] table of proofview.toml.
func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArray("result", nil, "verifier output for the proof (text, xml or json; repeatable)")
	f.StringArray("coverage", nil, "verifier coverage output (xml or json; repeatable)")
	f.String("property", "", "verifier --show-properties output (xml or json)")
	f.String("loop", "", "verifier --show-loops output (xml or json)")
	f.String("goto", "", "goto binary, used for loops and reachable functions (relative to --wkdir)")
	f.String("format", "auto", "format of every verifier output (auto|text|xml|json)")
	f.String("srcdir", "", "source root of the project")
	f.String("wkdir", "", "directory the verifier ran in (default: current directory)")
	f.String("blddir", "", "build directory, used by --sources make and goto-analyzer (default: source root)")
	f.String("sources", "walk", "how to list source files (walk|find|make|none)")
	f.String("tags", "auto", "symbol tagger (auto|ctags|etags|treesitter|none)")
	f.String("config", "", "proof configuration (default: ./"+config.FileName+" if present)")
	f.Bool("cache", false, "cache parsed verifier output between runs")
	f.String("cache-dir", "", "cache directory (default: user cache dir)")
	f.Int("jobs", 0, "max inputs loaded at once (0=auto)")

	f.String("viewer-trace", "", "load traces from a viewer-trace.json dump")
	f.String("viewer-result", "", "load results from a viewer-results.json dump")
	f.String("viewer-coverage", "", "load coverage from a viewer-coverage.json dump")
	f.String("viewer-property", "", "load properties from a viewer-properties.json dump")
	f.String("viewer-loop", "", "load loops from a viewer-loops.json dump")
	f.String("viewer-symbol", "", "load symbols from a viewer-symbols.json dump")
	f.StringArray("viewer-source", nil, "load sources from viewer-sources.json dumps (repeatable)")
	f.String("viewer-reachable", "", "load reachable functions from a viewer-reachable.json dump")
}

// inputFlags are the raw values of addInputFlags.
type inputFlags struct {
	cmd *cobra.Command
	cfg *config.Config
	err error
}

// str returns the flag when set on the command line, else the config
// value resolved against the proof directory when path is true.
func (in *inputFlags) str(name, fromConfig string, path bool) string {
	if in.err != nil {
		return ""
	}
	v, err := in.cmd.Flags().GetString(name)
	if err != nil {
		in.err = fmt.Errorf("failed to get %s flag: %w", name, err)
		return ""
	}
	if in.cmd.Flags().Changed(name) || fromConfig == "" {
		return v
	}
	if path {
		return in.cfg.Resolve(fromConfig)
	}
	return fromConfig
}

func (in *inputFlags) list(name string, fromConfig []string) []string {
	if in.err != nil {
		return nil
	}
	v, err := in.cmd.Flags().GetStringArray(name)
	if err != nil {
		in.err = fmt.Errorf("failed to get %s flag: %w", name, err)
		return nil
	}
	if in.cmd.Flags().Changed(name) {
		return v
	}
	out := make([]string, 0, len(fromConfig))
	for _, p := range fromConfig {
		out = append(out, in.cfg.Resolve(p))
	}
	return out
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(".")
}

// buildRequest merges the command line with the proof configuration.
func buildRequest(cmd *cobra.Command) (*driver.Request, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	in := &inputFlags{cmd: cmd, cfg: cfg}
	ci := cfg.Inputs
	req := &driver.Request{
		Results:         in.list("result", ci.Result),
		Coverage:        in.list("coverage", ci.Coverage),
		Property:        in.str("property", ci.Property, true),
		Loop:            in.str("loop", ci.Loop, true),
		Goto:            in.str("goto", ci.Goto, true),
		Srcdir:          in.str("srcdir", ci.Srcdir, true),
		Wkdir:           in.str("wkdir", ci.Wkdir, true),
		Blddir:          in.str("blddir", ci.Blddir, true),
		ProofName:       cfg.Proof.Name,
		ExpectedMissing: cfg.ExpectedMissing(),
		InProofRoot:     cfg.InProofRoot,
		Dumps: driver.Dumps{
			Traces:     in.str("viewer-trace", "", true),
			Results:    in.str("viewer-result", "", true),
			Coverage:   in.str("viewer-coverage", "", true),
			Properties: in.str("viewer-property", "", true),
			Loops:      in.str("viewer-loop", "", true),
			Symbols:    in.str("viewer-symbol", "", true),
			Sources:    in.list("viewer-source", nil),
			Reachable:  in.str("viewer-reachable", "", true),
		},
	}
	format := in.str("format", "", false)
	method := in.str("sources", ci.Sources, false)
	tagger := in.str("tags", ci.Tags, false)
	if in.err != nil {
		return nil, nil, in.err
	}

	if req.Format, err = adapter.ParseFormat(format); err != nil {
		return nil, nil, err
	}
	if req.Sources, err = sources.ParseMethod(method); err != nil {
		return nil, nil, err
	}
	if req.Tags, err = symbols.ParseTagger(tagger); err != nil {
		return nil, nil, err
	}
	if req.Jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return nil, nil, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if req.Cache, err = openCache(cmd); err != nil {
		return nil, nil, err
	}
	return req, cfg, nil
}

func openCache(cmd *cobra.Command) (*cache.Cache, error) {
	enabled, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache flag: %w", err)
	}
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	switch {
	case dir != "":
		return cache.Open(dir)
	case enabled:
		return cache.OpenDefault("proofview")
	default:
		return nil, nil
	}
}
