package ui

import (
	"strings"
	"testing"

	"proofview/internal/summary"
)

func TestApplyEventTracksProofs(t *testing.T) {
	events := make(chan summary.Event)
	m := NewProgressModel("proofs", []string{"A", "B"}, events).(*progressModel)

	m.applyEvent(summary.Event{Proof: "A", Stage: summary.StageRead, Status: summary.StatusWorking})
	if got := m.fraction(); got != 0.25 {
		t.Errorf("fraction = %v, want 0.25", got)
	}
	m.applyEvent(summary.Event{Proof: "A", Stage: summary.StageRead, Status: summary.StatusDone})
	m.applyEvent(summary.Event{Proof: "B", Stage: summary.StageRead, Status: summary.StatusSkipped})
	if got := m.fraction(); got != 1 {
		t.Errorf("fraction = %v, want 1", got)
	}
	m.applyEvent(summary.Event{Proof: "unknown", Status: summary.StatusDone})
	m.applyEvent(summary.Event{Stage: summary.StageReduce, Status: summary.StatusWorking})
	if m.stageLabel != "totalling" {
		t.Errorf("stage label = %q", m.stageLabel)
	}

	view := m.View()
	for _, want := range []string{"proofs (totalling)", "done", "skipped", "A", "B"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
