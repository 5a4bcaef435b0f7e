package render

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/location"
	"proofview/internal/reconstruct"
	"proofview/internal/sources"
	"proofview/internal/step"
)

// snippetLines is how many source lines a step's code snippet may span.
const snippetLines = 5

var spaceRE = regexp.MustCompile(`\s+`)

// snippets extracts the statement at a step's location from the source
// files.
type snippets struct {
	files *sources.FileSet
	log   *zap.Logger
}

// lookup joins up to five lines starting at loc and cuts the result after
// the first ';' or, failing that, the first '}'.
func (s snippets) lookup(loc location.Location) string {
	if s.files == nil || !loc.Linkable() || location.IsAbs(loc.File) {
		return ""
	}
	f, err := s.files.Load(loc.File)
	if err != nil {
		s.log.Info("Code snippet unavailable", zap.String("file", loc.File), zap.Error(err))
		return ""
	}
	parts := make([]string, 0, snippetLines)
	for n := loc.Line; n < loc.Line+snippetLines && n <= f.LineCount(); n++ {
		parts = append(parts, f.Line(n))
	}
	text := strings.TrimSpace(spaceRE.ReplaceAllString(strings.Join(parts, " "), " "))
	if i := strings.IndexByte(text, ';'); i >= 0 {
		return text[:i+1]
	}
	if i := strings.IndexByte(text, '}'); i >= 0 {
		return text[:i+1]
	}
	return text
}

type traceStep struct {
	Num    int
	Call   bool
	Return bool
	Header template.HTML
	Code   string
	Text   template.HTML
}

type tracePage struct {
	Name  string
	Steps []traceStep
}

func (r *Renderer) tracePage(t *reconstruct.Trace) tracePage {
	page := tracePage{Name: t.Property(), Steps: make([]traceStep, 0, t.Len())}
	for i := range t.Len() {
		s := t.At(i)
		page.Steps = append(page.Steps, traceStep{
			Num:    i + 1,
			Call:   s.Kind == step.FunctionCall,
			Return: s.Kind == step.FunctionReturn,
			Header: r.stepHeader(s.Location),
			Code:   r.snippets.lookup(s.Location),
			Text:   stepText(s),
		})
	}
	return page
}

func (r *Renderer) stepHeader(loc location.Location) template.HTML {
	return template.HTML(fmt.Sprintf("Function %s, File %s, Line %s", // #nosec G203 -- parts are escaped
		linkSymbol(loc.Function, loc.Function, r.in.Symbols, fromTrace),
		linkFile(loc.File, loc.File, fromTrace),
		linkLine(fmt.Sprint(loc.Line), loc.File, loc.Line, fromTrace)))
}

// stepText is the verifier's view of a step: the call or return arrow, the
// assignment, the assumption or the failure.
func stepText(s step.Step) template.HTML {
	switch s.Kind {
	case step.FunctionCall, step.FunctionReturn:
		arrow := "-> "
		if s.Kind == step.FunctionReturn {
			arrow = "<- "
		}
		return escape(arrow) + linkLocation(s.Call.Name, s.Call.Location, fromTrace)
	case step.VariableAssignment, step.ParameterAssignment:
		a := s.Assignment
		text := a.LHS + " = " + a.RHSValue
		if a.RHSBinary != "" {
			text += " (" + a.RHSBinary + ")"
		}
		return escape(text)
	case step.Assumption:
		return escape("assumption: " + s.Assume.Predicate)
	case step.Failure:
		prop, reason := s.Fail.Property, s.Fail.Reason
		if prop == "" {
			prop = "Unnamed"
		}
		if reason == "" {
			reason = "Not given"
		}
		return escape("failure: " + prop + ": " + reason)
	}
	return escape(s.Kind.String())
}
