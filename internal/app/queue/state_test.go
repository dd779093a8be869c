package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

func TestItemLifecycle_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		from  speech.Status
		to    speech.Status
		legal bool
	}{
		{"pending to generating", speech.StatusPending, speech.StatusGenerating, true},
		{"generating to ready", speech.StatusGenerating, speech.StatusReady, true},
		{"generating to error", speech.StatusGenerating, speech.StatusError, true},
		{"ready to playing", speech.StatusReady, speech.StatusPlaying, true},
		{"ready to error", speech.StatusReady, speech.StatusError, true},
		{"playing to completed", speech.StatusPlaying, speech.StatusCompleted, true},
		{"playing to error", speech.StatusPlaying, speech.StatusError, true},
		{"pending to ready skips generation", speech.StatusPending, speech.StatusReady, false},
		{"pending to playing", speech.StatusPending, speech.StatusPlaying, false},
		{"ready back to pending", speech.StatusReady, speech.StatusPending, false},
		{"completed is terminal", speech.StatusCompleted, speech.StatusPlaying, false},
		{"error is terminal", speech.StatusError, speech.StatusPending, false},
		{"playing back to ready", speech.StatusPlaying, speech.StatusReady, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewItemLifecycle()
			item := &speech.Item{ID: "item-1", Status: tt.from}

			err := l.Transition(item, tt.to)
			if tt.legal {
				require.NoError(t, err)
				assert.Equal(t, tt.to, item.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, item.Status)
			}
		})
	}
}

func TestItemLifecycle_CallbacksRunInOrder(t *testing.T) {
	l := NewItemLifecycle()
	var calls []string
	l.OnTransition(func(item *speech.Item, from, to speech.Status) {
		calls = append(calls, "first:"+from.String()+">"+to.String())
	})
	l.OnTransition(func(item *speech.Item, from, to speech.Status) {
		calls = append(calls, "second:"+from.String()+">"+to.String())
	})

	item := &speech.Item{ID: "item-1", Status: speech.StatusPending}
	require.NoError(t, l.Transition(item, speech.StatusGenerating))

	assert.Equal(t, []string{"first:pending>generating", "second:pending>generating"}, calls)
}

func TestItemLifecycle_IllegalTransitionSkipsCallbacks(t *testing.T) {
	l := NewItemLifecycle()
	called := false
	l.OnTransition(func(*speech.Item, speech.Status, speech.Status) {
		called = true
	})

	item := &speech.Item{ID: "item-1", Status: speech.StatusPending}
	require.Error(t, l.Transition(item, speech.StatusCompleted))
	assert.False(t, called)
}

func TestLifecycle_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		to    State
		legal bool
	}{
		{"idle to active", StateIdle, StateActive, true},
		{"active to idle", StateActive, StateIdle, true},
		{"active to draining", StateActive, StateDraining, true},
		{"draining to idle", StateDraining, StateIdle, true},
		{"draining to active", StateDraining, StateActive, true},
		{"idle to draining", StateIdle, StateDraining, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Lifecycle{state: tt.from}

			err := l.Transition(tt.to)
			if tt.legal {
				require.NoError(t, err)
				assert.Equal(t, tt.to, l.Current())
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, l.Current())
			}
		})
	}
}

func TestLifecycle_SameStateIsNoop(t *testing.T) {
	l := NewLifecycle()
	fired := false
	l.OnTransition(func(State, State) { fired = true })

	require.NoError(t, l.Transition(StateIdle))
	assert.False(t, fired)
	assert.Equal(t, StateIdle, l.Current())
}

func TestLifecycle_CallbackSeesEndpoints(t *testing.T) {
	l := NewLifecycle()
	var gotFrom, gotTo State
	l.OnTransition(func(from, to State) {
		gotFrom, gotTo = from, to
	})

	require.NoError(t, l.Transition(StateActive))
	assert.Equal(t, StateIdle, gotFrom)
	assert.Equal(t, StateActive, gotTo)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "unknown", State(42).String())
}
