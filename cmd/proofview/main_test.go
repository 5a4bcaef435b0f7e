package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"proofview/internal/adapter"
	"proofview/internal/runner"
	"proofview/internal/sources"
	"proofview/internal/symbols"
)

func TestReadProgressMode(t *testing.T) {
	for in, want := range map[string]progressMode{"": progressAuto, "AUTO": progressAuto, "on": progressOn, " off ": progressOff} {
		got, err := readProgressMode(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := readProgressMode("sometimes")
	require.Error(t, err)
	require.False(t, shouldShowProgress(progressOff))
	require.True(t, shouldShowProgress(progressOn))
}

func TestReadColorMode(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	auto, err := readColorMode("auto", f)
	require.NoError(t, err)
	require.False(t, auto, "a regular file is not a terminal")
	on, err := readColorMode("on", f)
	require.NoError(t, err)
	require.True(t, on)
	_, err = readColorMode("rainbow", f)
	require.Error(t, err)
}

func TestExitCode(t *testing.T) {
	tool := &runner.ToolError{Cmd: "cbmc --show-loops", Dir: "/tmp", Status: 6}
	require.Equal(t, 6, exitCode(fmt.Errorf("loops: %w", tool)))
	require.Equal(t, 1, exitCode(&runner.ToolError{Cmd: "ctags", Dir: "/tmp"}))
	require.Equal(t, 1, exitCode(fmt.Errorf("plain failure")))
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	err := renderVersionJSON(&buf, versionInfo{Version: "1.2.3"}, versionOptions{format: "json", showHash: true})
	require.NoError(t, err)

	var payload versionPayload
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	require.Equal(t, versionPayload{Tool: "proofview", Version: "1.2.3", GitCommit: "unknown"}, payload)
}

func newInputCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addInputFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestBuildRequestMergesConfig(t *testing.T) {
	dir := t.TempDir()
	proof := filepath.Join(dir, "proofs", "parse")
	require.NoError(t, os.MkdirAll(proof, 0o755))
	cfgPath := filepath.Join(proof, "proofview.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[proof]
name = "ParseBuffer"
root = "proofs"
expected-missing-functions = []

[inputs]
result = ["cbmc.xml"]
coverage = ["coverage.xml"]
property = "property.xml"
srcdir = "../.."
tags = "none"
`), 0o600))

	cmd := newInputCmd(t, "--config", cfgPath, "--coverage", "other.json", "--sources", "none", "--format", "xml")
	req, cfg, err := buildRequest(cmd)
	require.NoError(t, err)

	require.Equal(t, "ParseBuffer", req.ProofName)
	require.Equal(t, []string{filepath.Join(proof, "cbmc.xml")}, req.Results)
	require.Equal(t, []string{"other.json"}, req.Coverage, "flags win over the file")
	require.Equal(t, filepath.Join(proof, "property.xml"), req.Property)
	require.Equal(t, dir, req.Srcdir)
	require.Equal(t, adapter.FormatXML, req.Format)
	require.Equal(t, sources.MethodNone, req.Sources)
	require.Equal(t, symbols.TagsNone, req.Tags)
	require.NotNil(t, req.ExpectedMissing)
	require.Empty(t, req.ExpectedMissing)
	require.True(t, req.InProofRoot("proofs/parse/harness.c"))
	require.False(t, req.InProofRoot("source/parse.c"))
	require.Nil(t, req.Cache)
	require.Equal(t, cfgPath, cfg.Path)
}

func TestBuildRequestRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "proofview.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[proof]\nname = \"p\"\n"), 0o600))

	for _, args := range [][]string{
		{"--config", cfgPath, "--format", "yaml"},
		{"--config", cfgPath, "--sources", "guess"},
		{"--config", cfgPath, "--tags", "gtags"},
	} {
		_, _, err := buildRequest(newInputCmd(t, args...))
		require.Error(t, err, "%v", args)
	}
}

func TestOpenCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := openCache(newInputCmd(t, "--cache-dir", dir))
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, dir, c.Dir())
	require.DirExists(t, dir)
}
