package scraper

import "sync/atomic"

// State is the phase an orchestrator is in
type State int32

const (
	StateIdle State = iota
	StateWarmingUp
	StateListing
	StateEnriching
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarmingUp:
		return "warming-up"
	case StateListing:
		return "listing"
	case StateEnriching:
		return "enriching"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Tracker holds the current state and may be read from another goroutine
type Tracker struct {
	v atomic.Int32
}

// Set moves to s
func (t *Tracker) Set(s State) {
	t.v.Store(int32(s))
}

// Get returns the current state
func (t *Tracker) Get() State {
	return State(t.v.Load())
}

// Finish moves to done, or to error when err is set, and passes err through
func (t *Tracker) Finish(err error) error {
	if err != nil {
		t.Set(StateError)
		return err
	}
	t.Set(StateDone)
	return nil
}
