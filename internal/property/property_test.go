package property

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"proofview/internal/adapter"
	"proofview/internal/location"
)

var canon = location.MustNew("/proj", "/proj")

func TestParseJSONAndXMLAgree(t *testing.T) {
	js := `[{"program": "CBMC"}, {"properties": [
	  {"name": "main.assertion.1", "class": "assertion", "description": "x is zero", "expression": "x == 0",
	   "sourceLocation": {"file": "/proj/main.c", "function": "main", "line": "5"}}]}]`
	xs := `<cprover><program>CBMC</program>
	  <property name="main.assertion.1" class="assertion">
	    <location file="/proj/main.c" function="main" line="5"/>
	    <description>x is zero</description>
	    <expression>x == 0</expression>
	  </property></cprover>`

	fromJSON, err := ParseJSON(strings.NewReader(js), canon)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	fromXML, err := ParseXML(strings.NewReader(xs), canon)
	if err != nil {
		t.Fatalf("xml: %v", err)
	}
	want := Property{
		Class:       "assertion",
		Description: "x is zero",
		Expression:  "x == 0",
		Location:    location.Location{File: "main.c", Function: "main", Line: 5},
	}
	for name, reg := range map[string]*Registry{"json": fromJSON, "xml": fromXML} {
		got, ok := reg.Get("main.assertion.1")
		if !ok {
			t.Errorf("%s: property missing", name)
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", name, diff)
		}
	}
}

func TestReadMissingIsEmpty(t *testing.T) {
	reg, err := Read(adapter.Input{Format: adapter.FormatXML, Path: filepath.Join(t.TempDir(), "nope.xml")}, canon, nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("len = %d", reg.Len())
	}
}

func TestReadRejectsText(t *testing.T) {
	p := filepath.Join(t.TempDir(), "props.txt")
	if err := os.WriteFile(p, []byte("Property main.assertion.1"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(adapter.Input{Format: adapter.FormatText, Path: p}, canon, nil); err == nil {
		t.Fatal("text property listing accepted")
	}
}

func TestDumpAndLoad(t *testing.T) {
	reg := Empty()
	reg.props["p"] = Property{Class: "c", Location: location.Missing}
	b, err := json.Marshal(reg)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(reg.Names(), loaded.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}
