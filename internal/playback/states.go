// Package playback owns the lifecycle of a single adaptive-bitrate video
// session for the active lesson: manifest resolution, engine selection, error
// classification and recovery, and teardown.
package playback

// SessionState is the playback session lifecycle. Exactly one session is live
// at a time; opening a new one implicitly closes the prior session.
type SessionState string

const (
	SessionNew     SessionState = "NEW"
	SessionLoading SessionState = "LOADING"
	SessionReady   SessionState = "READY"
	SessionEnded   SessionState = "ENDED"
	SessionFailed  SessionState = "FAILED"
	SessionClosed  SessionState = "CLOSED"
)

// IsTerminal returns true if no further playback activity is possible.
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionFailed, SessionClosed:
		return true
	}
	return false
}

// EventKind drives the session state machine.
type EventKind string

const (
	EvLoadingStarted EventKind = "LOADING_STARTED"
	EvReady          EventKind = "READY"
	EvEnded          EventKind = "ENDED"
	EvReload         EventKind = "RELOAD"
	EvFatal          EventKind = "FATAL"
	EvClose          EventKind = "CLOSE"
)

// Transition is a single allowed edge in the session state machine.
type Transition struct {
	From  SessionState
	To    SessionState
	Event EventKind
}

var transitionsTable = []Transition{
	// Load path
	{From: SessionNew, To: SessionLoading, Event: EvLoadingStarted},
	{From: SessionLoading, To: SessionReady, Event: EvReady},

	// Natural end-of-stream
	{From: SessionReady, To: SessionEnded, Event: EvEnded},

	// Bounded network recovery reloads the manifest from either phase
	{From: SessionLoading, To: SessionLoading, Event: EvReload},
	{From: SessionReady, To: SessionLoading, Event: EvReload},

	// Fatal outcomes
	{From: SessionNew, To: SessionFailed, Event: EvFatal},
	{From: SessionLoading, To: SessionFailed, Event: EvFatal},
	{From: SessionReady, To: SessionFailed, Event: EvFatal},

	// Teardown is legal from every non-closed state
	{From: SessionNew, To: SessionClosed, Event: EvClose},
	{From: SessionLoading, To: SessionClosed, Event: EvClose},
	{From: SessionReady, To: SessionClosed, Event: EvClose},
	{From: SessionEnded, To: SessionClosed, Event: EvClose},
	{From: SessionFailed, To: SessionClosed, Event: EvClose},
}

// TransitionFor returns the allowed transition for a given state+event.
func TransitionFor(from SessionState, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
