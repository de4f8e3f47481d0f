package metrics

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestNoOpDiscardsObservations(t *testing.T) {
	var s Sink = NoOp{}
	s.Observe("anything", 42) // must not panic
}

func TestLoggingObserveWritesSpanAndMetric(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	span := NewSpan(logger)
	span.Observe("caller.window", 150)
	out := buf.String()
	if !strings.Contains(out, "span="+span.SpanID) {
		t.Fatalf("expected the observation to be tagged with its span id, got %q", out)
	}
	if !strings.Contains(out, "metric=caller.window") || !strings.Contains(out, "value=150") {
		t.Fatalf("expected the metric name and value in the log line, got %q", out)
	}
}

func TestNewSpanGeneratesDistinctIDs(t *testing.T) {
	a := NewSpan(nil)
	b := NewSpan(nil)
	if a.SpanID == b.SpanID {
		t.Fatalf("expected distinct span ids across NewSpan calls")
	}
}

func TestLoggingObserveNilLoggerIsNoop(t *testing.T) {
	var l Logging
	l.Observe("x", 1) // must not panic with a nil *log.Logger
}
