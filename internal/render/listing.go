package render

import (
	"fmt"
	"html/template"
	"strings"

	"proofview/internal/coverage"
	"proofview/internal/symbols"
)

const tabStop = 8

// untabify expands tabs in one line to the next multiple of tabstop.
func untabify(line string, tabstop int) string {
	if !strings.Contains(line, "\t") {
		return line
	}
	var sb strings.Builder
	col := 0
	for _, r := range line {
		if r == '\t' {
			n := tabstop - col%tabstop
			sb.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		sb.WriteRune(r)
		col++
	}
	return sb.String()
}

// codeBlock is a run of source text that is either code or a comment or
// literal whose contents must not be linked.
type codeBlock struct {
	text string
	code bool
}

// splitCode separates code from string and character literals and
// comments. An unterminated literal or comment runs to the end of the
// text; a line comment stops before its newline.
func splitCode(src string) []codeBlock {
	var blocks []codeBlock
	start := 0
	emit := func(end int, code bool) {
		if end > start {
			blocks = append(blocks, codeBlock{text: src[start:end], code: code})
		}
		start = end
	}

	i := 0
	for i < len(src) {
		switch {
		case src[i] == '"' || src[i] == '\'':
			emit(i, true)
			i = skipLiteral(src, i)
			emit(i, false)
		case strings.HasPrefix(src[i:], "/*"):
			emit(i, true)
			if end := strings.Index(src[i+2:], "*/"); end >= 0 {
				i += 2 + end + 2
			} else {
				i = len(src)
			}
			emit(i, false)
		case strings.HasPrefix(src[i:], "//"):
			emit(i, true)
			if end := strings.IndexByte(src[i:], '\n'); end >= 0 {
				i += end
			} else {
				i = len(src)
			}
			emit(i, false)
		default:
			i++
		}
	}
	emit(len(src), true)
	return blocks
}

// skipLiteral returns the index just past the literal opened at src[i].
// Literals never span an unescaped newline.
func skipLiteral(src string, i int) int {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(src)
}

// markupCode escapes the whole file and links identifiers in code blocks.
func markupCode(path, src string, syms *symbols.Table) string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = untabify(l, tabStop)
	}
	src = strings.Join(lines, "\n")

	var sb strings.Builder
	for _, b := range splitCode(src) {
		if b.code {
			sb.WriteString(linkSymbols(b.text, syms, path))
		} else {
			sb.WriteString(template.HTMLEscapeString(b.text))
		}
	}
	return sb.String()
}

// annotate wraps every line in a div carrying its number as anchor and its
// coverage status as class.
func annotate(markup string, status map[int]coverage.Status) template.HTML {
	markup = strings.TrimSuffix(markup, "\n")
	var sb strings.Builder
	for i, line := range strings.Split(markup, "\n") {
		num := i + 1
		fmt.Fprintf(&sb, "<div id=\"%d\" class=\"line %s\">%5d %s</div>\n", num, status[num], num, line)
	}
	return template.HTML(sb.String()) // #nosec G203 -- built from escaped markup
}
