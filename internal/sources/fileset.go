package sources

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"proofview/internal/location"
)

// FileFlags records what normalisation a file needed.
type FileFlags uint8

const (
	FileHadBOM FileFlags = 1 << iota
	FileNormalizedCRLF
	FileLatin1
)

// File is one loaded source file.
type File struct {
	Path    string // relative to the FileSet root
	Content []byte
	LineIdx []int // offsets of '\n'
	Hash    [32]byte
	Flags   FileFlags
}

// FileSet loads source files under one root and keeps them for the
// lifetime of a report.
type FileSet struct {
	root  string
	files map[string]*File
}

// NewFileSet creates a FileSet reading files under root.
func NewFileSet(root string) *FileSet {
	return &FileSet{root: root, files: make(map[string]*File)}
}

// Root returns the directory files are read from.
func (fs *FileSet) Root() string { return fs.root }

// Add stores normalized content under path.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) *File {
	f := &File{
		Path:    location.Canonical(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	}
	fs.files[f.Path] = f
	return f
}

// Load reads path (relative to the root, or absolute), strips a BOM,
// normalizes CRLF and re-encodes latin-1. Files are read once.
func (fs *FileSet) Load(path string) (*File, error) {
	key := location.Canonical(path)
	if f, ok := fs.files[key]; ok {
		return f, nil
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(fs.root, path)
	}
	// #nosec G304 -- path comes from the discovered source list
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}

	var flags FileFlags
	content, hadBOM := removeBOM(content)
	if hadBOM {
		flags |= FileHadBOM
	}
	content, hadCRLF := normalizeCRLF(content)
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	content, latin1, err := decodeLatin1(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if latin1 {
		flags |= FileLatin1
	}
	return fs.Add(key, content, flags), nil
}

// Get returns a loaded file.
func (fs *FileSet) Get(path string) (*File, bool) {
	f, ok := fs.files[location.Canonical(path)]
	return f, ok
}

// LineCount returns the number of lines; a trailing newline does not start
// a new line.
func (f *File) LineCount() int {
	n := len(f.LineIdx)
	if len(f.Content) > 0 && f.Content[len(f.Content)-1] != '\n' {
		n++
	}
	return n
}

// Line returns line n (1-based) without its newline, or "" when out of
// range.
func (f *File) Line(n int) string {
	if n < 1 || n > f.LineCount() {
		return ""
	}
	start := 0
	if n > 1 {
		start = f.LineIdx[n-2] + 1
	}
	end := len(f.Content)
	if n-1 < len(f.LineIdx) {
		end = f.LineIdx[n-1]
	}
	return string(f.Content[start:end])
}

// Lines returns every line of the file.
func (f *File) Lines() []string {
	s := strings.TrimSuffix(string(f.Content), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
