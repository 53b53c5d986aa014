// Package eventsink mirrors orchestration events to operator-facing stores.
//
// Every sink is best effort: failures are logged and dropped, and a slow
// backend is bounded by a per-event timeout so it cannot stall the loop.
package eventsink

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/logging"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

var sinkLog *logging.Logger

func init() {
	var err error
	sinkLog, err = logging.NewLogger("eventsink")
	if err != nil {
		sinkLog.Warnf("Failed to initialize eventsink logger, using stderr fallback: %v", err)
	}
}

// DefaultTimeout bounds one delivery to a remote sink.
const DefaultTimeout = 2 * time.Second

// Sink receives events. It matches agent.EventSink.
type Sink interface {
	Emit(ctx context.Context, event *types.AgentEvent)
}

// deliveryContext detaches delivery from the run's cancellation so the
// final state_change of a canceled run is still recorded.
func deliveryContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func encode(event *types.AgentEvent) ([]byte, bool) {
	data, err := json.Marshal(event)
	if err != nil {
		sinkLog.Warnf("cannot encode %s event: %v", event.Name(), err)
		return nil, false
	}
	return data, true
}

// Multi fans every event out to its sinks in order. A panicking sink does
// not keep the others from receiving the event.
type Multi struct {
	sinks   []Sink
	closers []io.Closer
}

// NewMulti creates a fan-out over sinks. nil entries are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// Add appends s. Sinks that implement io.Closer are closed by Close.
func (m *Multi) Add(s Sink) {
	if s == nil {
		return
	}
	m.sinks = append(m.sinks, s)
	if c, ok := s.(io.Closer); ok {
		m.closers = append(m.closers, c)
	}
}

// Len returns the number of sinks.
func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Emit(ctx context.Context, event *types.AgentEvent) {
	if event == nil {
		return
	}
	for _, s := range m.sinks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					sinkLog.Errorf("sink %T panicked on %s: %v", s, event.Name(), p)
				}
			}()
			s.Emit(ctx, event)
		}()
	}
}

// Close closes every closable sink and returns the first error.
func (m *Multi) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}

// LogSink writes events to a component log file.
type LogSink struct {
	log *logging.Logger
}

// NewLogSink logs to l, or to the package logger when l is nil.
func NewLogSink(l *logging.Logger) *LogSink {
	if l == nil {
		l = sinkLog
	}
	return &LogSink{log: l}
}

func (s *LogSink) Emit(_ context.Context, event *types.AgentEvent) {
	data, ok := encode(event)
	if !ok {
		return
	}
	s.log.Debugf("event %s run=%s %s", event.Name(), event.RunID, data)
}
