package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestVersion_BlankIsDev(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "  "
	if got := String(); got != "dev" {
		t.Errorf("String() = %q, want dev", got)
	}
}

func TestVersion_ColoredWithoutColor(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = origVersion, origNoColor }()
	color.NoColor = true

	tests := []string{
		"0.1.0",
		"1.2.3-rc.1+build.123",
		"0.1.0-dev",
		"weird",
	}
	for _, v := range tests {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}

func TestVersion_ColoredAddsEscapes(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = origVersion, origNoColor }()
	color.NoColor = false

	Version = "1.2.3"
	if got := Colored(); got == "1.2.3" {
		t.Error("expected colour escapes")
	}
}
