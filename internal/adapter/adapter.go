package adapter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"proofview/internal/diag"
	"proofview/internal/location"
)

// decoder is implemented once per encoding.
type decoder interface {
	decode(r io.Reader) (*Output, error)
}

// Parser reads verifier output into an Output, canonicalizing every
// location on the way in.
type Parser struct {
	canon *location.Canonicalizer
	log   *zap.Logger
}

// New returns a Parser. A nil logger discards log output.
func New(canon *location.Canonicalizer, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{canon: canon, log: log}
}

func (p *Parser) decoderFor(f Format) (decoder, error) {
	switch f {
	case FormatText:
		return &textDecoder{canon: p.canon, log: p.log}, nil
	case FormatJSON:
		return &jsonDecoder{canon: p.canon, log: p.log}, nil
	case FormatXML:
		return &xmlDecoder{canon: p.canon, log: p.log}, nil
	default:
		return nil, &diag.Error{Code: diag.InUnknownFormat, Subject: f.String(), Msg: "no adapter for format"}
	}
}

// Parse reads the file named by in. A missing file is reported as
// diag.InMissingInput so callers can degrade instead of aborting.
func (p *Parser) Parse(in Input) (*Output, error) {
	p.log.Debug("parsing verifier output", zap.String("path", in.Path), zap.Stringer("format", in.Format))
	f, err := Open(in.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := p.ParseReader(in.Format, bufio.NewReader(f))
	if err != nil {
		return nil, diag.WithPath(in.Path, err)
	}
	return out, nil
}

// ParseReader decodes r in the given format.
func (p *Parser) ParseReader(f Format, r io.Reader) (*Output, error) {
	dec, err := p.decoderFor(f)
	if err != nil {
		return nil, err
	}
	return dec.decode(r)
}

// Open opens an input file, reporting a missing one as diag.InMissingInput.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, diag.Wrap(diag.InMissingInput, path, err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}
