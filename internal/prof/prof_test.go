package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Mem:   filepath.Join(dir, "mem.pprof"),
		Trace: filepath.Join(dir, "trace.out"),
	}
	s, err := Start(opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	for _, p := range []string{opts.CPU, opts.Mem, opts.Trace} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", filepath.Base(p))
		}
	}
}

func TestStartFailureLeavesNothingRunning(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(Options{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Trace: filepath.Join(dir, "missing", "trace.out"),
	})
	if err == nil {
		t.Fatal("expected an error for an unwritable trace path")
	}
	// the CPU profiler must have been released
	s, err := Start(Options{CPU: filepath.Join(dir, "cpu2.pprof")})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	_ = s.Stop()
}

func TestNilSession(t *testing.T) {
	var s *Session
	if err := s.Stop(); err != nil {
		t.Fatalf("nil Stop: %v", err)
	}
}
