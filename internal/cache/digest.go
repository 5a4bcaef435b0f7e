package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// Digest is a SHA-256 value identifying one set of report inputs.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// Key hashes everything a parse depends on: the options that change how
// inputs are read, then each input path followed by its content. Paths are
// hashed in sorted order; a missing file contributes a marker instead of
// content so that creating it later changes the key.
func Key(options []string, files []string) (Digest, error) {
	h := sha256.New()
	for _, opt := range options {
		writeField(h, []byte(opt))
	}
	for _, path := range slices.Sorted(slices.Values(files)) {
		writeField(h, []byte(path))
		// #nosec G304 -- paths are report inputs named on the command line
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				writeField(h, []byte("\x00missing"))
				continue
			}
			return Digest{}, fmt.Errorf("hash %s: %w", path, err)
		}
		fh := sha256.New()
		_, err = io.Copy(fh, f)
		_ = f.Close()
		if err != nil {
			return Digest{}, fmt.Errorf("hash %s: %w", path, err)
		}
		writeField(h, fh.Sum(nil))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// writeField writes a length-prefixed field so that concatenations of
// different fields never collide.
func writeField(w io.Writer, b []byte) {
	_, _ = fmt.Fprintf(w, "%d:", len(b))
	_, _ = w.Write(b)
}
