// Package runner executes external tools (the verifier, tagging tools,
// find, the preprocessor) in an explicit working directory.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"go.uber.org/zap"

	"proofview/internal/diag"
)

// Command describes one invocation. Dir is required: tools never inherit
// the process's current directory.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Ignore lists exit codes treated as success.
	Ignore []int
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// ToolError reports a tool that could not be started or exited non-zero.
type ToolError struct {
	Cmd    string
	Dir    string
	Status int
	Stdout string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s (in %s) failed", e.Cmd, e.Dir)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s with exit status %d", msg, e.Status)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg = fmt.Sprintf("%s: %s", msg, s)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ToolError) Unwrap() []error {
	code := diag.ToolFailure
	if errors.Is(e.Err, exec.ErrNotFound) {
		code = diag.ToolNotFound
	}
	return []error{&diag.Error{Code: code, Subject: e.Cmd}, e.Err}
}

// ExitStatus returns the status a CLI should exit with for err, and false
// when err is not a tool failure.
func ExitStatus(err error) (int, bool) {
	var te *ToolError
	if !errors.As(err, &te) || te.Status <= 0 {
		return 0, false
	}
	return te.Status, true
}

// Runner runs commands and logs them at debug level.
type Runner struct {
	log *zap.Logger
}

// New returns a Runner; a nil logger discards output.
func New(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// Run executes c and returns its stdout.
func (r *Runner) Run(ctx context.Context, c Command) (string, error) {
	if c.Dir == "" {
		return "", fmt.Errorf("run %s: no working directory given", c.Name)
	}
	r.log.Debug("running", zap.Stringer("cmd", c), zap.String("dir", c.Dir))

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && slices.Contains(c.Ignore, exitErr.ExitCode()) {
		r.log.Debug("ignored exit status", zap.Stringer("cmd", c), zap.Int("status", exitErr.ExitCode()))
		return stdout.String(), nil
	}
	te := &ToolError{
		Cmd:    c.String(),
		Dir:    c.Dir,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Err:    err,
	}
	if exitErr != nil {
		te.Status = exitErr.ExitCode()
	}
	return stdout.String(), te
}

// Available reports whether name resolves on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
