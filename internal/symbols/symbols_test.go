package symbols

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"proofview/internal/location"
)

func TestParseCtags(t *testing.T) {
	out := "helper           function     12 ./src/util.c     int helper(int x)\n" +
		"MAX              macro         3 include/defs.h   #define MAX 10\n\n"
	defs, err := ParseCtags(out)
	require.NoError(t, err)
	want := []Definition{
		{Symbol: "helper", File: "src/util.c", Line: 12},
		{Symbol: "MAX", File: "include/defs.h", Line: 3},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("defs (-want +got):\n%s", diff)
	}

	_, err = ParseCtags("helper function\n")
	require.Error(t, err)
}

func TestParseEtags(t *testing.T) {
	data := "\f\nsrc/util.c,120\n" +
		"int helper(\x7fhelper\x011,0\n" +
		"#define MAX \x7f3,40\n" +
		"\f\nmain.c,30\n" +
		"int main(\x7fmain\x015,10\n"
	defs, err := ParseEtags(data)
	require.NoError(t, err)
	want := []Definition{
		{Symbol: "helper", File: "src/util.c", Line: 1},
		{Symbol: "MAX", File: "src/util.c", Line: 3},
		{Symbol: "main", File: "main.c", Line: 5},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("defs (-want +got):\n%s", diff)
	}
}

func TestBuildFirstDefinitionWins(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	table := Build([]Definition{
		{Symbol: "f", File: "b.c", Line: 9},
		{Symbol: "f", File: "a.c", Line: 4},
		{Symbol: "g", File: "a.c", Line: 1},
	}, zap.New(core))

	loc, ok := table.Lookup("f")
	require.True(t, ok)
	require.Equal(t, location.Location{File: "a.c", Line: 4}, loc)
	require.Equal(t, 2, table.Len())

	dups := logs.FilterMessage("Found duplicate definition").All()
	require.Len(t, dups, 1)
	require.Equal(t, "b.c", dups[0].ContextMap()["file"])
}

func TestTreeSitterC(t *testing.T) {
	src := []byte(`#include <stdlib.h>
#define LIMIT 8
typedef struct node { int v; } node_t;
enum color { RED, GREEN };

static int *make(int n)
{
	return malloc(n);
}

int main(void) { return LIMIT; }
`)
	defs, err := NewCParser().Parse(context.Background(), "main.c", src)
	require.NoError(t, err)
	got := map[string]int{}
	for _, d := range defs {
		got[d.Symbol] = d.Line
	}
	want := map[string]int{"LIMIT": 2, "node": 3, "node_t": 3, "color": 4, "RED": 4, "GREEN": 4, "make": 6, "main": 11}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("definitions (-want +got):\n%s", diff)
	}
}

func TestBatches(t *testing.T) {
	files := make([]string, 250)
	got := batches(files)
	require.Len(t, got, 3)
	require.Len(t, got[2], 50)
	require.Empty(t, batches(nil))
}

func TestExtractNone(t *testing.T) {
	table, err := (&Extractor{}).Extract(context.Background(), TagsNone, t.TempDir(), []string{"a.c"})
	require.NoError(t, err)
	require.Zero(t, table.Len())
}

func TestDumpAndLoad(t *testing.T) {
	table := Build([]Definition{{Symbol: "f", File: "a.c", Line: 2}}, nil)
	b, err := json.Marshal(table)
	require.NoError(t, err)
	require.JSONEq(t, `{"f": {"file": "a.c", "function": "", "line": 2}}`, string(b))
	loaded, err := Load(b)
	require.NoError(t, err)
	require.Equal(t, table.Names(), loaded.Names())
}
