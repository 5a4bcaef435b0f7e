package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"proofview/internal/diag"
)

func TestRunUsesExplicitDir(t *testing.T) {
	if !Available("pwd") {
		t.Skip("pwd not available")
	}
	dir := t.TempDir()
	out, err := New(nil).Run(context.Background(), Command{Name: "pwd", Dir: dir})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("pwd = %q, want %q", out, dir)
	}
}

func TestRunRequiresDir(t *testing.T) {
	if _, err := New(nil).Run(context.Background(), Command{Name: "true"}); err == nil {
		t.Fatal("missing dir accepted")
	}
}

func TestExitStatusPropagates(t *testing.T) {
	if !Available("sh") {
		t.Skip("sh not available")
	}
	r := New(nil)
	_, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo oops >&2; exit 3"}, Dir: t.TempDir()})
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want ToolError", err)
	}
	if te.Status != 3 || !strings.Contains(te.Stderr, "oops") {
		t.Errorf("status %d stderr %q", te.Status, te.Stderr)
	}
	if status, ok := ExitStatus(err); !ok || status != 3 {
		t.Errorf("ExitStatus = %d, %v", status, ok)
	}
	if diag.CodeOf(err) != diag.ToolFailure {
		t.Errorf("code = %v", diag.CodeOf(err))
	}

	out, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo partial; exit 1"}, Dir: t.TempDir(), Ignore: []int{1}})
	if err != nil || strings.TrimSpace(out) != "partial" {
		t.Errorf("ignored status: out %q err %v", out, err)
	}
}

func TestToolNotFound(t *testing.T) {
	_, err := New(nil).Run(context.Background(), Command{Name: "proofview-no-such-tool", Dir: t.TempDir()})
	if diag.CodeOf(err) != diag.ToolNotFound {
		t.Fatalf("err = %v (code %v), want tool not found", err, diag.CodeOf(err))
	}
}
