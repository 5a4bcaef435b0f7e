package location

import "fmt"

// Intrinsic is the file recorded for intrinsic models with no file at all.
const Intrinsic = "<intrinsic>"

// Location is a canonical source reference. File is root-relative, absolute
// when outside the root, or a builtin marker.
type Location struct {
	File     string `json:"file" msgpack:"file"`
	Function string `json:"function" msgpack:"function"`
	Line     int    `json:"line" msgpack:"line"`
}

// Missing stands in for locations the verifier omitted so that joins on
// (file, function, line) stay total.
var Missing = Location{File: "MISSING", Function: "MISSING", Line: 0}

// IsBuiltin reports whether the location points into a verifier builtin.
func (l Location) IsBuiltin() bool { return IsBuiltin(l.File) }

// IsMissing reports whether l is the sentinel.
func (l Location) IsMissing() bool { return l == Missing }

// Linkable reports whether l may participate in source and coverage joins.
func (l Location) Linkable() bool {
	return l.File != "" && !l.IsBuiltin() && !l.IsMissing() && l.Line > 0
}

func (l Location) String() string {
	return fmt.Sprintf("file %s function %s line %d", l.File, l.Function, l.Line)
}
