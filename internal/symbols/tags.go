package symbols

import (
	"fmt"
	"strings"

	"proofview/internal/location"
)

// ParseCtags reads `ctags -x` output: one "symbol kind line file ..." per
// line. File names are assumed to contain no whitespace.
func ParseCtags(out string) ([]Definition, error) {
	var defs []Definition
	for raw := range strings.Lines(out) {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("ctags: short line %q", strings.TrimSpace(raw))
		}
		line, err := location.ParseLine(fields[2])
		if err != nil {
			return nil, fmt.Errorf("ctags: %w", err)
		}
		defs = append(defs, Definition{
			Symbol: fields[0],
			File:   strings.TrimPrefix(fields[3], "./"),
			Line:   line,
		})
	}
	return defs, nil
}

// ParseEtags reads an etags TAGS file. Each section starts with a form
// feed line, then "file,length", then definitions of the form
// "text\x7fname\x01line,offset" where the name may be omitted.
func ParseEtags(data string) ([]Definition, error) {
	var defs []Definition
	sections := strings.Split(data, "\f\n")
	for _, section := range sections[1:] {
		lines := strings.Split(strings.TrimRight(section, "\n"), "\n")
		if len(lines) == 0 {
			continue
		}
		file, _, _ := strings.Cut(lines[0], ",")
		for _, def := range lines[1:] {
			if def == "" {
				continue
			}
			name, line, err := parseEtagsDefinition(def)
			if err != nil {
				return nil, fmt.Errorf("etags %s: %w", file, err)
			}
			defs = append(defs, Definition{Symbol: name, File: strings.TrimPrefix(file, "./"), Line: line})
		}
	}
	return defs, nil
}

func parseEtagsDefinition(def string) (string, int, error) {
	text, rest, ok := strings.Cut(def, "\x7f")
	if !ok {
		return "", 0, fmt.Errorf("definition %q has no tag separator", def)
	}
	nameLine, _, _ := strings.Cut(rest, ",")
	name, lineText, named := strings.Cut(nameLine, "\x01")
	if !named {
		lineText, name = name, ""
	}
	if name == "" {
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return "", 0, fmt.Errorf("definition %q names no symbol", def)
		}
		name = strings.TrimLeft(fields[len(fields)-1], "(")
	}
	line, err := location.ParseLine(lineText)
	if err != nil {
		return "", 0, err
	}
	return name, line, nil
}
