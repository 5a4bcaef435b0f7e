package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		opts Options
		want zapcore.Level
	}{
		{Options{}, zapcore.InfoLevel},
		{Options{Verbose: true}, zapcore.DebugLevel},
		{Options{Quiet: true}, zapcore.ErrorLevel},
		{Options{Verbose: true, Quiet: true}, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		if got := tt.opts.Level(); got != tt.want {
			t.Errorf("%+v: level = %v, want %v", tt.opts, got, tt.want)
		}
	}
}

func TestNewHonoursLevel(t *testing.T) {
	log, err := New(Options{Quiet: true, Console: true})
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(zapcore.WarnLevel) {
		t.Error("quiet logger should drop warnings")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("quiet logger should keep errors")
	}
	if OrNop(nil) == nil {
		t.Error("OrNop(nil) returned nil")
	}
}
