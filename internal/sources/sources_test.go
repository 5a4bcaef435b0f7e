package sources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"proofview/internal/diag"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
}

func TestWalkFindsSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.c":          "int main(void) { return 0; }\n",
		"inc/defs.H":      "#define X 1\n",
		"lib/table.inl":   "",
		"README.md":       "docs",
		"build/main.goto": "",
	})
	files, err := Walk(root)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"main.c", "inc/defs.H", "lib/table.inl"}, files)

	s, err := (&Finder{}).Find(context.Background(), MethodWalk, root, "")
	require.NoError(t, err)
	require.Equal(t, []string{"inc/defs.H", "lib/table.inl", "main.c"}, s.Files)
	require.Len(t, s.FilesUnderRoot, 3)
}

func TestFromFilesSplitsByRoot(t *testing.T) {
	s := FromFiles("/proj/src", []string{"b.c", "/proj/src/a.c", "/usr/include/stdio.h", "b.c"})
	want := &Sources{
		Root:           "/proj/src",
		Files:          []string{"a.c", "b.c"},
		FilesUnderRoot: []string{"/proj/src/a.c", "/proj/src/b.c"},
		AllFiles:       []string{"/proj/src/a.c", "/proj/src/b.c", "/usr/include/stdio.h"},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("sources (-want +got):\n%s", diff)
	}
}

func TestMergeRejectsDifferentRoots(t *testing.T) {
	a := FromFiles("/proj", []string{"a.c"})
	b := FromFiles("/proj", []string{"b.c"})
	merged, err := Merge(a, b)
	require.NoError(t, err)
	require.Equal(t, []string{"a.c", "b.c"}, merged.Files)

	_, err = Merge(a, FromFiles("/other", []string{"c.c"}))
	require.Equal(t, diag.ConRootMismatch, diag.CodeOf(err))
}

func TestPreprocessedFiles(t *testing.T) {
	out := `# 1 "main.c"
# 1 "<built-in>"
# 1 "<command-line>"
# 1 "/usr/include/stdio.h" 1 3 4
int printf(const char *, ...);
# 12 "main.c" 2
`
	require.Equal(t, []string{"/usr/include/stdio.h", "main.c"}, PreprocessedFiles(out))
}

func TestFileSetNormalizes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"crlf.c":   "\xEF\xBB\xBFint a;\r\nint b;\r\n",
		"latin1.c": "/* caf\xe9 */\nint c;",
	})
	fs := NewFileSet(root)

	f, err := fs.Load("crlf.c")
	require.NoError(t, err)
	require.Equal(t, FileHadBOM|FileNormalizedCRLF, f.Flags)
	require.Equal(t, []string{"int a;", "int b;"}, f.Lines())
	require.Equal(t, "int b;", f.Line(2))
	require.Equal(t, "", f.Line(3))

	g, err := fs.Load("latin1.c")
	require.NoError(t, err)
	require.Equal(t, FileLatin1, g.Flags)
	require.Equal(t, "/* café */", g.Line(1))
	require.Equal(t, 2, g.LineCount())

	again, err := fs.Load("./crlf.c")
	require.NoError(t, err)
	require.Same(t, f, again)
}

func TestDumpAndLoad(t *testing.T) {
	s := FromFiles("/proj", []string{"a.c", "/elsewhere/b.h"})
	b, err := json.Marshal(s)
	require.NoError(t, err)
	loaded, err := Load(b)
	require.NoError(t, err)
	if diff := cmp.Diff(s, loaded); diff != "" {
		t.Errorf("loaded (-want +got):\n%s", diff)
	}
}
