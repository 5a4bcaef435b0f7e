package diag

import (
	"errors"
	"fmt"
)

// Error is a classified failure raised while reading verifier output or
// reconstructing traces. Path names the input file, Subject the offending
// name (property, function, path) when one is known.
type Error struct {
	Code    Code
	Path    string
	Subject string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code.Title()
	}
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Subject)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Code.ID(), msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same code, so callers can
// write errors.Is(err, &diag.Error{Code: diag.ConStackUnderflow}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, subject, format string, args ...any) *Error {
	return &Error{Code: code, Subject: subject, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and input path to err.
func Wrap(code Code, path string, err error) *Error {
	return &Error{Code: code, Path: path, Err: err}
}

// WithPath returns err annotated with the input path. Errors that are not
// *Error are wrapped as malformed input.
func WithPath(path string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		if de.Path == "" {
			cp := *de
			cp.Path = path
			return &cp
		}
		return err
	}
	return Wrap(InMalformedInput, path, err)
}

// CodeOf extracts the code from the first *Error in err's chain.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return UnknownCode
}

// IsFatal reports whether err must abort report generation for its input.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code.Severity() >= SevError
	}
	return true
}
