package logger

import (
	"reflect"
	"testing"
)

type recordingLogger struct {
	msgs []string
	args [][]interface{}
}

func (r *recordingLogger) record(msg string, args []interface{}) {
	r.msgs = append(r.msgs, msg)
	r.args = append(r.args, args)
}

func (r *recordingLogger) Info(msg string, args ...interface{})  { r.record(msg, args) }
func (r *recordingLogger) Error(msg string, args ...interface{}) { r.record(msg, args) }
func (r *recordingLogger) Debug(msg string, args ...interface{}) { r.record(msg, args) }
func (r *recordingLogger) Warn(msg string, args ...interface{})  { r.record(msg, args) }

// Key/value pairs must arrive at the backing logger as individual elements,
// not wrapped in a single slice argument.
func TestPackageFuncsForwardArgsFlat(t *testing.T) {
	rec := &recordingLogger{}
	orig := Logger
	Logger = rec
	defer func() { Logger = orig }()

	Info("info msg", "key", "value")
	Error("error msg", "code", 42)
	Debug("debug msg")
	Warn("warn msg", "a", 1, "b", 2)

	wantArgs := [][]interface{}{
		{"key", "value"},
		{"code", 42},
		nil,
		{"a", 1, "b", 2},
	}
	if len(rec.args) != len(wantArgs) {
		t.Fatalf("recorded %d calls, want %d", len(rec.args), len(wantArgs))
	}
	for i, want := range wantArgs {
		if len(rec.args[i]) == 0 && len(want) == 0 {
			continue
		}
		if !reflect.DeepEqual(rec.args[i], want) {
			t.Errorf("call %d args = %v, want %v", i, rec.args[i], want)
		}
	}
}
