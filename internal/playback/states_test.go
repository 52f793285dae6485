package playback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionTable_Coverage(t *testing.T) {
	states := []SessionState{
		SessionNew,
		SessionLoading,
		SessionReady,
		SessionEnded,
		SessionFailed,
		SessionClosed,
	}
	events := []EventKind{
		EvLoadingStarted,
		EvReady,
		EvEnded,
		EvReload,
		EvFatal,
		EvClose,
	}

	allowed := map[SessionState]map[EventKind]struct{}{}
	for _, tr := range transitionsTable {
		if _, ok := allowed[tr.From]; !ok {
			allowed[tr.From] = map[EventKind]struct{}{}
		}
		if _, exists := allowed[tr.From][tr.Event]; exists {
			t.Fatalf("duplicate transition: %s + %v", tr.From, tr.Event)
		}
		allowed[tr.From][tr.Event] = struct{}{}
	}

	for _, state := range states {
		for _, ev := range events {
			tr, ok := TransitionFor(state, ev)
			if _, want := allowed[state][ev]; want {
				require.True(t, ok, "missing transition for %s + %v", state, ev)
				require.Equal(t, state, tr.From)
				continue
			}
			require.False(t, ok, "unexpected transition for %s + %v", state, ev)
		}
	}
}

func TestTransitionTable_TerminalStatesHaveNoExit(t *testing.T) {
	for _, tr := range transitionsTable {
		if tr.From.IsTerminal() && tr.Event != EvClose {
			t.Fatalf("terminal state %s must not transition on %v", tr.From, tr.Event)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	require.True(t, SessionFailed.IsTerminal())
	require.True(t, SessionClosed.IsTerminal())
	require.False(t, SessionNew.IsTerminal())
	require.False(t, SessionLoading.IsTerminal())
	require.False(t, SessionReady.IsTerminal())
	require.False(t, SessionEnded.IsTerminal())
}
