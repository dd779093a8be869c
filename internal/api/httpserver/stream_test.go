package httpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/queue"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

func enqueuedEvent(id, text string, length int) queue.Event {
	return queue.Event{
		Type:        queue.EventItemEnqueued,
		Item:        &speech.Item{ID: id, Text: text, Status: speech.StatusPending},
		QueueState:  queue.StateActive,
		QueueLength: length,
	}
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	_, first := h.Subscribe()
	_, second := h.Subscribe()
	require.Equal(t, 2, h.SubscriberCount())

	h.Broadcast(enqueuedEvent("item-1", "こんにちは。", 1))

	for _, frames := range []<-chan Frame{first, second} {
		require.Len(t, frames, 1)
		frame := <-frames
		assert.Equal(t, uint64(1), frame.SequenceNo)
		assert.Equal(t, "item_enqueued", frame.Type)
		assert.Equal(t, "item-1", frame.ItemID)
		assert.Equal(t, "こんにちは。", frame.Text)
		assert.Equal(t, "pending", frame.StatusTo)
		assert.Equal(t, "active", frame.QueueState)
		assert.Equal(t, 1, frame.QueueLength)
	}
}

func TestHub_SequenceNumbersIncrease(t *testing.T) {
	h := NewHub()
	_, frames := h.Subscribe()

	for i := 0; i < 3; i++ {
		h.Broadcast(enqueuedEvent("item", "x", i+1))
	}

	for want := uint64(1); want <= 3; want++ {
		frame := <-frames
		assert.Equal(t, want, frame.SequenceNo)
	}
}

func TestHub_SlowSubscriberDropsFrames(t *testing.T) {
	h := NewHub()
	_, frames := h.Subscribe()

	// Nothing drains the channel, so broadcasts past the buffer are
	// dropped instead of blocking the queue goroutine.
	for i := 0; i < sendBuffer+8; i++ {
		h.Broadcast(enqueuedEvent("item", "x", 1))
	}

	require.Len(t, frames, sendBuffer)
	frame := <-frames
	assert.Equal(t, uint64(1), frame.SequenceNo, "oldest frames are kept, newest dropped")
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	id, frames := h.Subscribe()

	h.Unsubscribe(id)
	require.Equal(t, 0, h.SubscriberCount())

	h.Broadcast(enqueuedEvent("item", "x", 1))
	assert.Empty(t, frames)
}

func TestHub_FrameShapes(t *testing.T) {
	h := NewHub()

	statusFrame := h.frame(queue.Event{
		Type:        queue.EventItemStatusChanged,
		Item:        &speech.Item{ID: "item-2", Text: "next"},
		ItemFrom:    speech.StatusReady,
		ItemTo:      speech.StatusPlaying,
		QueueState:  queue.StateActive,
		QueueLength: 2,
	})
	assert.Equal(t, "item_status_changed", statusFrame.Type)
	assert.Equal(t, "item-2", statusFrame.ItemID)
	assert.Equal(t, "ready", statusFrame.StatusFrom)
	assert.Equal(t, "playing", statusFrame.StatusTo)
	assert.Empty(t, statusFrame.QueueFrom)

	stateFrame := h.frame(queue.Event{
		Type:       queue.EventQueueStateChanged,
		QueueFrom:  queue.StateActive,
		QueueState: queue.StateIdle,
	})
	assert.Equal(t, "queue_state_changed", stateFrame.Type)
	assert.Equal(t, "active", stateFrame.QueueFrom)
	assert.Equal(t, "idle", stateFrame.QueueState)
	assert.Empty(t, stateFrame.ItemID)
}
