// Package progresstest provides a progress.Reporter that records events for tests.
package progresstest

import "github.com/ExclusiveAccount/ctfoutu/pkg/progress"

var _ progress.Reporter = (*Recorder)(nil)

// Recorder keeps every event in memory
type Recorder struct {
	Events []Event
}

// Event is one recorded progress call
type Event struct {
	Type    string
	Message string
}

func (r *Recorder) Start(m string)   { r.add("start", m) }
func (r *Recorder) Warn(m string)    { r.add("warn", m) }
func (r *Recorder) Success(m string) { r.add("success", m) }
func (r *Recorder) Fail(m string)    { r.add("fail", m) }

func (r *Recorder) add(typ, m string) {
	r.Events = append(r.Events, Event{Type: typ, Message: m})
}

// Count returns the number of events of the given type
func (r *Recorder) Count(typ string) int {
	n := 0
	for _, e := range r.Events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
