// Package observ measures how long each phase of report generation takes.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Phase is one timed step of report generation: parsing an input,
// reconstructing traces, rendering.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer collects phases. Registries are loaded concurrently, so Begin and
// End may be called from several goroutines.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 16)} }

// Begin starts a new phase and returns its index. A nil Timer ignores the
// call.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Track runs fn as a phase named name.
func (t *Timer) Track(name string, fn func() error) error {
	idx := t.Begin(name)
	err := fn()
	note := ""
	if err != nil {
		note = "failed"
	}
	t.End(idx, note)
	return err
}

// Summary returns a human-readable table of all phases.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-24s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-24s %9.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// Log writes one debug entry per phase.
func (t *Timer) Log(log *zap.Logger) {
	for _, p := range t.Report().Phases {
		log.Debug("Phase finished",
			zap.String("phase", p.Name),
			zap.Float64("ms", p.DurationMS),
			zap.String("note", p.Note))
	}
}

// PhaseReport представляет сжатую информацию о фазе для сериализации.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report описывает агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report returns the phases in start order. Total is wall-clock from the
// first start to the last end, since phases may overlap.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	first, last := t.phases[0].Start, t.phases[0].Start
	for i, phase := range t.phases {
		if phase.Start.Before(first) {
			first = phase.Start
		}
		if end := phase.Start.Add(phase.Dur); end.After(last) {
			last = end
		}
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(last.Sub(first))
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
