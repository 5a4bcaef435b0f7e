package render

import (
	"fmt"
	"html/template"
	"path"
	"regexp"
	"strings"

	"proofview/internal/location"
	"proofview/internal/symbols"
)

// Pages links are made from, relative to the source root. Source listings
// use their own source path.
const (
	fromIndex = "index.html"
	fromTrace = "traces/trace.html"
)

var identRE = regexp.MustCompile(`[_a-zA-Z][_a-zA-Z0-9]*`)

// pathToRoot is the relative path from the page for from back to the
// report root.
func pathToRoot(from string) string {
	depth := strings.Count(location.Canonical(from), "/")
	if depth == 0 {
		return "."
	}
	return strings.TrimSuffix(strings.Repeat("../", depth), "/")
}

// pathToFile is the relative path from the page for from to the listing
// of the source file to.
func pathToFile(to, from string) string {
	return path.Join(pathToRoot(from), location.Canonical(to))
}

// linkableFile reports whether file has a listing in the report.
func linkableFile(file string) bool {
	return file != "" &&
		file != location.Missing.File &&
		!location.IsBuiltin(file) &&
		!location.IsAbs(file)
}

func escape(text string) template.HTML {
	return template.HTML(template.HTMLEscapeString(text)) // #nosec G203 -- escaped above
}

func linkFile(text, to, from string) template.HTML {
	if !linkableFile(to) {
		return escape(text)
	}
	return template.HTML(fmt.Sprintf(`<a href="%s.html">%s</a>`, // #nosec G203 -- text escaped
		template.HTMLEscapeString(pathToFile(to, from)), template.HTMLEscapeString(text)))
}

func linkLine(text, to string, line int, from string) template.HTML {
	if !linkableFile(to) || line <= 0 {
		return escape(text)
	}
	return template.HTML(fmt.Sprintf(`<a href="%s.html#%d">%s</a>`, // #nosec G203 -- text escaped
		template.HTMLEscapeString(pathToFile(to, from)), line, template.HTMLEscapeString(text)))
}

func linkLocation(text string, loc location.Location, from string) template.HTML {
	if !loc.Linkable() {
		return escape(text)
	}
	return linkLine(text, loc.File, loc.Line, from)
}

// linkSymbol links text to the definition of symbol when the table knows it.
func linkSymbol(text, symbol string, syms *symbols.Table, from string) template.HTML {
	if syms == nil {
		return escape(text)
	}
	loc, ok := syms.Lookup(symbol)
	if !ok {
		return escape(text)
	}
	return linkLocation(text, loc, from)
}

// linkSymbols escapes code and links every identifier-shaped token with a
// known definition.
func linkSymbols(code string, syms *symbols.Table, from string) string {
	var sb strings.Builder
	last := 0
	for _, m := range identRE.FindAllStringIndex(code, -1) {
		sb.WriteString(template.HTMLEscapeString(code[last:m[0]]))
		tok := code[m[0]:m[1]]
		sb.WriteString(string(linkSymbol(tok, tok, syms, from)))
		last = m[1]
	}
	sb.WriteString(template.HTMLEscapeString(code[last:]))
	return sb.String()
}
