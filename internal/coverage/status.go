package coverage

import "fmt"

// Status is the coverage of one source line.
type Status uint8

const (
	Missed Status = iota + 1
	Hit
	// Both marks a line reported hit by one run and missed by another.
	Both
)

var statusNames = [...]string{Missed: "missed", Hit: "hit", Both: "both"}

func (s Status) String() string {
	if int(s) < len(statusNames) && statusNames[s] != "" {
		return statusNames[s]
	}
	return "none"
}

// Covered reports whether the line was reached in at least one run.
func (s Status) Covered() bool { return s == Hit || s == Both }

func (s Status) merge(o Status) Status {
	if s == 0 || s == o {
		return o
	}
	return Both
}

func (s Status) MarshalText() ([]byte, error) {
	if s < Missed || s > Both {
		return nil, fmt.Errorf("invalid coverage status %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name != "" && name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown coverage status %q", b)
}

// ParseGoalStatus maps the verifier's goal status to a line status.
func ParseGoalStatus(s string) Status {
	if s == "SATISFIED" || s == "satisfied" {
		return Hit
	}
	return Missed
}
