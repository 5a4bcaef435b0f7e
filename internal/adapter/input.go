package adapter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"proofview/internal/diag"
)

// Format selects the verifier output encoding.
type Format uint8

const (
	FormatAuto Format = iota
	FormatText
	FormatJSON
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return "unknown"
	}
}

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "xml":
		return FormatXML, nil
	default:
		return FormatAuto, fmt.Errorf("invalid format: %q (expected: auto|text|json|xml)", s)
	}
}

// Input describes one verifier output file with its encoding already
// decided. Components receive an Input and never sniff formats themselves.
type Input struct {
	Format Format
	Path   string
}

func (in Input) String() string { return fmt.Sprintf("%s:%s", in.Format, in.Path) }

// Resolve fixes the format of path. An explicit format wins; otherwise the
// extension decides, and for unknown extensions the first non-blank byte of
// the file ('[' or '{' for JSON, '<' for XML, anything else text).
func Resolve(path string, format Format) (Input, error) {
	if path == "" {
		return Input{}, &diag.Error{Code: diag.InMissingInput, Msg: "no input file given"}
	}
	if format != FormatAuto {
		return Input{Format: format, Path: path}, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return Input{Format: FormatJSON, Path: path}, nil
	case ".xml":
		return Input{Format: FormatXML, Path: path}, nil
	case ".txt", ".log", ".out":
		return Input{Format: FormatText, Path: path}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Input{}, diag.Wrap(diag.InMissingInput, path, err)
		}
		return Input{}, err
	}
	defer f.Close()
	detected, err := sniff(bufio.NewReader(f))
	if err != nil {
		return Input{}, diag.Wrap(diag.InUnknownFormat, path, err)
	}
	return Input{Format: detected, Path: path}, nil
}

func sniff(r io.ByteReader) (Format, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return FormatAuto, errors.New("empty input")
			}
			return FormatAuto, err
		}
		switch b {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		case '[', '{':
			return FormatJSON, nil
		case '<':
			return FormatXML, nil
		default:
			return FormatText, nil
		}
	}
}
