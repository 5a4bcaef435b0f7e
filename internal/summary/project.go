package summary

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Project output file names.
const (
	ProjectSummaryFile = "summary.json"
	ReportJSONFile     = "report.json"
	ReportCSVFile      = "report.csv"
)

// TotalRow names the last row of the report.
const TotalRow = "TOTAL"

// Columns of report.json and report.csv, in order.
var Columns = []string{
	"Proof",
	"Model LOC",
	"Project LOC",
	"Project Coverage",
	"Property Issues",
	"Loop Issues",
	"Other Issues",
	"Expected Missing Functions",
	"Unexpected Missing Functions",
}

// Row is one proof of the report. A row without a summary keeps only its
// name and renders every metric as "".
type Row struct {
	Proof   string
	Summary *Proof
}

// Values returns the row in column order.
func (r Row) Values() []any {
	if r.Summary == nil {
		out := []any{r.Proof}
		for range Columns[1:] {
			out = append(out, "")
		}
		return out
	}
	s := r.Summary
	return []any{
		r.Proof,
		len(s.ModelLines),
		len(s.ProjectLines),
		ratio(len(s.ProjectLinesHit), len(s.ProjectLines)),
		len(s.PropertyIssueLines),
		len(s.LoopIssueLines),
		s.OtherIssuesCount,
		len(s.ExpectedMissingFuncs),
		len(s.UnexpectedMissingFuncs),
	}
}

// ratio is hit/total rounded to two places; zero when total is zero.
func ratio(hit, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(hit)/float64(total)*100) / 100
}

// MarshalJSON writes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.Values() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(Columns[i])
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Project is the aggregate of every proof directory under one root.
type Project struct {
	Rows  []Row
	Total Proof
}

// Options control Aggregate.
type Options struct {
	// Jobs bounds the number of summaries read at once; zero means
	// GOMAXPROCS.
	Jobs     int
	Progress Sink
	Log      *zap.Logger
}

// ProofDirs lists the immediate subdirectories of root, sorted.
func ProofDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list proofs: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	slices.Sort(dirs)
	return dirs, nil
}

// readProof loads dir/viewer-summary.json and picks the entry for name. A
// document holding a single proof under another name is accepted.
func readProof(dir, name string) (*Proof, error) {
	// #nosec G304 -- fixed file name under a proof directory
	b, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("not a parsable json file: %w", err)
	}
	if p, ok := doc[name]; ok {
		return &p, nil
	}
	if len(doc) == 1 {
		for _, p := range doc {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("no summary for proof %q", name)
}

// Aggregate reads the summary of every proof directory under root in
// parallel. Proofs without a readable summary get empty rows and are left
// out of the totals.
func Aggregate(ctx context.Context, root string, opts Options) (*Project, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	names, err := ProofDirs(root)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		emit(opts.Progress, Event{Proof: name, Stage: StageRead, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индекс i уникален для каждой горутины, мьютекс не нужен
	rows := make([]Row, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(names))))
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			emit(opts.Progress, Event{Proof: name, Stage: StageRead, Status: StatusWorking})
			rows[i] = Row{Proof: name}
			p, err := readProof(filepath.Join(root, name), name)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					log.Warn("Proof has no summary", zap.String("proof", name))
				} else {
					log.Warn("Unusable proof summary", zap.String("proof", name), zap.Error(err))
				}
				emit(opts.Progress, Event{Proof: name, Stage: StageRead, Status: StatusSkipped})
				return nil
			}
			rows[i].Summary = p
			emit(opts.Progress, Event{Proof: name, Stage: StageRead, Status: StatusDone})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	emit(opts.Progress, Event{Stage: StageReduce, Status: StatusWorking})
	project := &Project{Rows: rows, Total: reduce(rows)}
	emit(opts.Progress, Event{Stage: StageReduce, Status: StatusDone})
	return project, nil
}

// reduce concatenates the line lists of every summarized proof and adds up
// the counts. Lines are not deduplicated across proofs.
func reduce(rows []Row) Proof {
	total := Proof{
		ModelLines:             []Line{},
		ProjectLines:           []Line{},
		ProjectLinesHit:        []Line{},
		PropertyIssueLines:     []Line{},
		LoopIssueLines:         []Line{},
		ExpectedMissingFuncs:   []string{},
		UnexpectedMissingFuncs: []string{},
	}
	for _, r := range rows {
		s := r.Summary
		if s == nil {
			continue
		}
		total.ModelLines = append(total.ModelLines, s.ModelLines...)
		total.ProjectLines = append(total.ProjectLines, s.ProjectLines...)
		total.ProjectLinesHit = append(total.ProjectLinesHit, s.ProjectLinesHit...)
		total.PropertyIssueLines = append(total.PropertyIssueLines, s.PropertyIssueLines...)
		total.LoopIssueLines = append(total.LoopIssueLines, s.LoopIssueLines...)
		total.OtherIssuesCount += s.OtherIssuesCount
		total.ExpectedMissingFuncs = append(total.ExpectedMissingFuncs, s.ExpectedMissingFuncs...)
		total.UnexpectedMissingFuncs = append(total.UnexpectedMissingFuncs, s.UnexpectedMissingFuncs...)
	}
	return total
}

// Report returns the proof rows followed by the TOTAL row.
func (p *Project) Report() []Row {
	total := p.Total
	return append(slices.Clone(p.Rows), Row{Proof: TotalRow, Summary: &total})
}

// Write stores summary.json, report.json and report.csv in dir.
func (p *Project) Write(dir string) error {
	if err := writeJSON(filepath.Join(dir, ProjectSummaryFile), map[string]Proof{"summary": p.Total}); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, ReportJSONFile), orderedRows(p.Report())); err != nil {
		return err
	}
	return p.writeCSV(filepath.Join(dir, ReportCSVFile))
}

// orderedRows is report.json: rows keyed by proof name in report order.
type orderedRows []Row

func (rs orderedRows) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(r.Proof)
		if err != nil {
			return nil, err
		}
		v, err := r.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Project) writeCSV(path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, r := range p.Report() {
		vals := r.Values()
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = csvValue(v)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// #nosec G306 -- report files are meant to be world readable
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func csvValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
