package pipeline

import (
	"fmt"
	"io"

	"github.com/steelspec/bucklab/internal/store"
)

// EventKind classifies pipeline progress events.
type EventKind int

const (
	SpecimenStarted EventKind = iota
	CaseStarted
	PhaseStarted
	PhaseDone
	CaseDone
	SpecimenDone
	Warning
)

// Event is one progress notification. Curve carries the extracted load
// series on the ExtractCurve phase so live views can sketch it.
type Event struct {
	Kind     EventKind
	Specimen string
	Case     string
	Phase    Phase
	Status   store.CaseStatus
	Err      error
	Message  string
	Curve    []float64
}

// Sink receives pipeline events. Publish must not block the run.
type Sink interface {
	Publish(Event)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// ConsoleSink prints a terse progress trail.
type ConsoleSink struct {
	w io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink { return &ConsoleSink{w: w} }

func (c *ConsoleSink) Publish(e Event) {
	switch e.Kind {
	case SpecimenStarted:
		fmt.Fprintf(c.w, "=== %s ===\n", e.Specimen)
	case CaseStarted:
		fmt.Fprintf(c.w, "--> %s\n", e.Case)
	case PhaseDone:
		if e.Err != nil {
			fmt.Fprintf(c.w, "    %s failed: %v\n", e.Phase, e.Err)
		}
	case Warning:
		fmt.Fprintf(c.w, "    warning: %s\n", e.Message)
	case CaseDone:
		fmt.Fprintf(c.w, "<-- %s %s\n", e.Case, e.Status)
	case SpecimenDone:
		fmt.Fprintf(c.w, "=== %s done ===\n\n", e.Specimen)
	}
}

// ChannelSink forwards events to a channel for live views. A full
// channel drops events rather than stalling the run.
type ChannelSink struct {
	ch chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 64
	}
	return &ChannelSink{ch: make(chan Event, buffer)}
}

func (s *ChannelSink) Publish(e Event) {
	select {
	case s.ch <- e:
	default:
	}
}

// Events exposes the receive side.
func (s *ChannelSink) Events() <-chan Event { return s.ch }

// Close ends the stream once the run is over.
func (s *ChannelSink) Close() { close(s.ch) }

// MultiSink fans events out to several sinks.
type MultiSink []Sink

func (m MultiSink) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}
