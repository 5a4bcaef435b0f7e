package summary

// Stage is a step of aggregating one proof.
type Stage string

const (
	// StageRead reads the proof's viewer-summary.json.
	StageRead Stage = "read"
	// StageReduce folds the proof into the project totals.
	StageReduce Stage = "reduce"
)

// Status captures progress within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	// StatusSkipped marks a proof without a usable summary; it still gets an
	// empty row.
	StatusSkipped Status = "skipped"
)

// Event reports progress of one proof. An empty Proof refers to the whole
// project.
type Event struct {
	Proof  string
	Stage  Stage
	Status Status
}

// Sink receives progress events. Implementations must be safe for
// concurrent use.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(s Sink, evt Event) {
	if s != nil {
		s.OnEvent(evt)
	}
}
