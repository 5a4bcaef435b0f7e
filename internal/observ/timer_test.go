package observ

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestTrackRecordsPhases(t *testing.T) {
	tm := NewTimer()
	if err := tm.Track("parse results", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if err := tm.Track("render", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Track returned %v", err)
	}

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(report.Phases))
	}
	if report.Phases[0].Name != "parse results" || report.Phases[1].Note != "failed" {
		t.Errorf("unexpected phases %+v", report.Phases)
	}
	summary := tm.Summary()
	if !strings.Contains(summary, "render") || !strings.Contains(summary, "// failed") || !strings.Contains(summary, "total") {
		t.Errorf("summary:\n%s", summary)
	}
}

func TestConcurrentPhases(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.End(tm.Begin("load"), "")
		}()
	}
	wg.Wait()
	if got := len(tm.Report().Phases); got != 8 {
		t.Errorf("phases = %d, want 8", got)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if len(tm.Report().Phases) != 0 {
		t.Error("nil timer recorded a phase")
	}
}
