package httpserver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/queue"
)

// Frame is the JSON wire form of a queue event.
type Frame struct {
	SequenceNo  uint64 `json:"sequence_no"`
	Type        string `json:"type"`
	ItemID      string `json:"item_id,omitempty"`
	Text        string `json:"text,omitempty"`
	StatusFrom  string `json:"status_from,omitempty"`
	StatusTo    string `json:"status_to,omitempty"`
	QueueFrom   string `json:"queue_from,omitempty"`
	QueueState  string `json:"queue_state"`
	QueueLength int    `json:"queue_length"`
}

// subscription represents one connected websocket client.
type subscription struct {
	id   string
	send chan Frame
}

// Hub fans queue events out to websocket subscribers. Broadcast runs on
// the queue's goroutines and must not block, so each subscriber gets a
// buffered channel and frames are dropped when a subscriber falls
// behind. Sequence numbers let clients detect the gap.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// sendBuffer is the per-subscriber frame backlog before drops start.
const sendBuffer = 64

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a subscriber and returns its id and frame channel.
func (h *Hub) Subscribe() (string, <-chan Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscription{
		id:   uuid.New().String(),
		send: make(chan Frame, sendBuffer),
	}
	h.subscriptions[sub.id] = sub
	return sub.id, sub.send
}

// Unsubscribe removes a subscription.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscriptions, id)
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}

// Broadcast converts a queue event into a frame and offers it to every
// subscriber. It is registered as a queue event handler.
func (h *Hub) Broadcast(ev queue.Event) {
	h.sequenceNoMu.Lock()
	h.sequenceNo++
	currentSequenceNo := h.sequenceNo
	h.sequenceNoMu.Unlock()

	frame := h.frame(ev)
	frame.SequenceNo = currentSequenceNo

	h.mu.RLock()
	// Copy subscriptions to avoid holding the lock during sends
	subs := make([]*subscription, 0, len(h.subscriptions))
	for _, sub := range h.subscriptions {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.send <- frame:
		default:
			// Keep websocket writes single-threaded; drop if the
			// subscriber's backlog is saturated.
			zlog.Debug().Msgf("event hub: dropping frame %d for slow subscriber %s", frame.SequenceNo, sub.id)
		}
	}
}

// frame builds the wire form of an event. It runs on the queue
// goroutine that published the event, so reading item fields is safe.
func (h *Hub) frame(ev queue.Event) Frame {
	f := Frame{
		Type:        ev.Type.String(),
		QueueState:  ev.QueueState.String(),
		QueueLength: ev.QueueLength,
	}
	switch ev.Type {
	case queue.EventItemEnqueued:
		f.ItemID = ev.Item.ID
		f.Text = ev.Item.Text
		f.StatusTo = ev.Item.Status.String()
	case queue.EventItemStatusChanged:
		f.ItemID = ev.Item.ID
		f.Text = ev.Item.Text
		f.StatusFrom = ev.ItemFrom.String()
		f.StatusTo = ev.ItemTo.String()
	case queue.EventQueueStateChanged:
		f.QueueFrom = ev.QueueFrom.String()
	}
	return f
}

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 120 * time.Second
	readLimit    = 1 << 20
)

// serveConn pumps hub frames to one websocket connection until the
// client disconnects or the context is cancelled. Inbound messages are
// read only to detect the close handshake.
func (h *Hub) serveConn(ctx context.Context, conn *websocket.Conn) {
	id, frames := h.Subscribe()
	defer h.Unsubscribe(id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-frames:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(frame); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	}

	cancel()
	<-writerDone
}
