package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for conditions that are logged and otherwise ignored.
	SevInfo Severity = iota
	// SevWarning is for conditions that degrade a report section.
	SevWarning
	// SevError aborts report generation for the offending input.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
