// Package metrics defines the injected observability seam spec.md's
// Design Notes call for in place of a global timer/counter registry: a
// Sink interface passed explicitly into the components that produce
// measurements, so workers (spec.md §5) never share mutable global
// state.
package metrics

import (
	"log"

	"github.com/google/uuid"
)

// Sink receives point observations keyed by name. Implementations must
// be safe for concurrent use by multiple per-region workers.
type Sink interface {
	Observe(name string, value float64)
}

// NoOp discards every observation; the default when no metrics backend
// is configured.
type NoOp struct{}

// Observe implements Sink.
func (NoOp) Observe(string, float64) {}

// Logging writes each observation as a log line tagged with a
// correlation id. elprep's own go.mod carries github.com/google/uuid as
// an indirect dependency without ever importing it directly; promoted
// here to a direct import to give each per-region worker iteration its
// own correlation id, generalising the Design Notes' "inject a Sink
// instead of a global timer registry" into something a log backend can
// actually group by.
type Logging struct {
	Logger *log.Logger
	SpanID string
}

// NewSpan returns a Logging sink scoped to a freshly generated
// correlation id, one per region-processing worker iteration.
func NewSpan(logger *log.Logger) Logging {
	return Logging{Logger: logger, SpanID: uuid.NewString()}
}

// Observe implements Sink.
func (l Logging) Observe(name string, value float64) {
	if l.Logger == nil {
		return
	}
	l.Logger.Printf("span=%s metric=%s value=%v", l.SpanID, name, value)
}
