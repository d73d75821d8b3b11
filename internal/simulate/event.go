package simulate

import (
	"fmt"
	"io"

	"unclass/internal/bytecode"
)

// EventKind distinguishes emitted statements from diagnostics.
type EventKind int

const (
	EventStatement EventKind = iota
	EventDiagnostic
)

func (k EventKind) String() string {
	if k == EventDiagnostic {
		return "diagnostic"
	}
	return "statement"
}

// Event is one line of simulator output.
type Event struct {
	Offset uint32      `json:"offset"`
	Op     bytecode.Op `json:"-"`
	Kind   EventKind   `json:"kind"`
	Text   string      `json:"text"`
}

func (e Event) String() string { return e.Text }

// Sink receives simulator output in instruction order.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder keeps every event.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// Lines returns the text of recorded events of the given kind.
func (r *Recorder) Lines(kind EventKind) []string {
	var out []string
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e.Text)
		}
	}
	return out
}

// WriterSink writes each event as a line. Diagnostics are prefixed with
// "// ". The first write error is kept and later events are dropped.
type WriterSink struct {
	W      io.Writer
	Indent string
	Err    error
}

func (w *WriterSink) Emit(e Event) {
	if w.Err != nil {
		return
	}
	prefix := w.Indent
	if e.Kind == EventDiagnostic {
		prefix += "// "
	}
	_, w.Err = fmt.Fprintf(w.W, "%s%s\n", prefix, e.Text)
}
