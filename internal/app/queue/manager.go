package queue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/audiofile"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/playback"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// Config holds queue manager settings.
type Config struct {
	// PrefetchSize bounds concurrent synthesis calls. Values below 1 are
	// raised to 1.
	PrefetchSize int
	// DefaultSpeaker is used when an enqueue request names no speaker.
	DefaultSpeaker int
	// DefaultSpeedScale is applied when a request carries no speed
	// override. Zero leaves the engine's own speed untouched.
	DefaultSpeedScale float64
}

// EnqueueRequest describes one unit of speech to queue.
type EnqueueRequest struct {
	Text       string             // Source text; ignored when Query is set
	Query      *speech.AudioQuery // Pre-built audio query
	Speaker    *int               // Speaker style id (nil = default)
	SpeedScale float64            // Speed override (0 = default)
	Options    speech.Options     // Caller intent; nil fields take defaults
}

// Enqueued is the result of accepting an item into the queue.
type Enqueued struct {
	Item  *speech.Item
	Start *speech.Signal // Settles when playback starts (nil unless requested)
	End   *speech.Signal // Settles when playback ends (nil unless requested)
}

// Manager owns the speech queue. It schedules synthesis ahead of
// playback within the prefetch bound, plays items strictly in queue
// order, and settles the per-item handles. All queue state is guarded
// by a single mutex; synthesis and playback run on their own goroutines
// and report back through it.
type Manager struct {
	cfg       Config
	generator *Generator
	strategy  playback.Strategy
	files     *audiofile.Manager

	mu         sync.Mutex
	queue      []*speech.Item // waiting items, head first
	playing    *speech.Item
	playCancel context.CancelFunc
	genCancels map[string]context.CancelFunc
	prefetch   *Prefetch
	items      *ItemLifecycle
	state      *Lifecycle
	closed     bool

	events *Events

	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewManager creates a queue manager. Call Start to begin scheduling and
// Close to shut down.
func NewManager(cfg Config, synth Synthesizer, strategy playback.Strategy, files *audiofile.Manager) *Manager {
	if cfg.PrefetchSize < 1 {
		cfg.PrefetchSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		generator:  NewGenerator(synth),
		strategy:   strategy,
		files:      files,
		genCancels: map[string]context.CancelFunc{},
		prefetch:   NewPrefetch(cfg.PrefetchSize),
		items:      NewItemLifecycle(),
		state:      NewLifecycle(),
		events:     NewEvents(),
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	m.items.OnTransition(func(item *speech.Item, from, to speech.Status) {
		m.events.Publish(Event{
			Type:        EventItemStatusChanged,
			Item:        item,
			ItemFrom:    from,
			ItemTo:      to,
			QueueState:  m.state.Current(),
			QueueLength: m.lengthLocked(),
		})
	})
	m.state.OnTransition(func(from, to State) {
		zlog.Debug().Msgf("queue: state %s -> %s", from, to)
		m.events.Publish(Event{
			Type:        EventQueueStateChanged,
			QueueFrom:   from,
			QueueState:  to,
			QueueLength: m.lengthLocked(),
		})
	})
	return m
}

// Start launches the scheduling loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	go m.run()
}

// Close clears the queue, stops playback and waits for the scheduling
// loop to exit. The manager cannot be reused afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.clearLocked(ErrCleared)
	started := m.started
	m.mu.Unlock()

	m.cancel()
	if started {
		<-m.done
	}
}

// Events returns the queue's event registry.
func (m *Manager) Events() *Events {
	return m.events
}

// Enqueue accepts a unit of speech into the queue. With the immediate
// option it displaces everything already queued or playing; otherwise it
// is appended. The returned handles are nil unless requested.
func (m *Manager) Enqueue(req EnqueueRequest) (*Enqueued, error) {
	item, err := m.buildItem(req)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	if item.Options.Immediate {
		m.clearLocked(ErrSuperseded)
	}
	m.queue = append(m.queue, item)
	m.prefetch.AddPending(item.ID)
	if m.state.Current() == StateIdle {
		_ = m.state.Transition(StateActive)
	}

	zlog.Debug().Msgf("queue: enqueued item %s (immediate=%v queue_len=%d)",
		item.ID, item.Options.Immediate, m.lengthLocked())
	m.events.Publish(Event{
		Type:        EventItemEnqueued,
		Item:        item,
		ItemFrom:    item.Status,
		ItemTo:      item.Status,
		QueueState:  m.state.Current(),
		QueueLength: m.lengthLocked(),
	})
	m.wakeLoop()

	return &Enqueued{Item: item, Start: item.Start, End: item.End}, nil
}

// Clear drops every queued item, stops active playback and rejects all
// outstanding handles. Clearing an empty queue is a no-op.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(ErrCleared)
	m.wakeLoop()
}

// Length returns the number of items not yet in a terminal state.
func (m *Manager) Length() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lengthLocked()
}

// State returns the queue-level state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Current()
}

// Current returns the item being played, if any.
func (m *Manager) Current() (*speech.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing, m.playing != nil
}

// Queued returns a snapshot of the waiting items in queue order.
func (m *Manager) Queued() []*speech.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*speech.Item, len(m.queue))
	copy(out, m.queue)
	return out
}

// ItemSnapshot is a point-in-time copy of an item's public fields, safe
// to read outside the queue's lock.
type ItemSnapshot struct {
	ID        string
	Text      string
	Speaker   int
	Status    speech.Status
	CreatedAt time.Time
}

// Snapshot returns copies of the playing item (nil if none) and the
// waiting items in queue order.
func (m *Manager) Snapshot() (*ItemSnapshot, []ItemSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *ItemSnapshot
	if m.playing != nil {
		s := snapshotItem(m.playing)
		current = &s
	}
	queued := make([]ItemSnapshot, 0, len(m.queue))
	for _, item := range m.queue {
		queued = append(queued, snapshotItem(item))
	}
	return current, queued
}

func snapshotItem(item *speech.Item) ItemSnapshot {
	return ItemSnapshot{
		ID:        item.ID,
		Text:      item.Text,
		Speaker:   item.Speaker,
		Status:    item.Status,
		CreatedAt: item.CreatedAt,
	}
}

func (m *Manager) buildItem(req EnqueueRequest) (*speech.Item, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.Query == nil {
		return nil, ErrEmptyInput
	}

	opts := resolveOptions(req.Options)
	speaker := m.cfg.DefaultSpeaker
	if req.Speaker != nil {
		speaker = *req.Speaker
	}
	speed := req.SpeedScale
	if speed == 0 {
		speed = m.cfg.DefaultSpeedScale
	}

	item := &speech.Item{
		ID:         uuid.New().String(),
		Text:       text,
		Query:      req.Query,
		Speaker:    speaker,
		SpeedScale: speed,
		Status:     speech.StatusPending,
		Options:    opts,
		CreatedAt:  time.Now(),
	}
	if opts.WaitForStart {
		item.Start = speech.NewSignal()
	}
	if opts.WaitForEnd {
		item.End = speech.NewSignal()
	}
	return item, nil
}

// resolveOptions is the single place enqueue defaults are decided.
// Unset fields become immediate=true, waitForStart=false, waitForEnd=false.
func resolveOptions(o speech.Options) speech.ItemOptions {
	resolved := speech.ItemOptions{Immediate: true}
	if o.Immediate != nil {
		resolved.Immediate = *o.Immediate
	}
	if o.WaitForStart != nil {
		resolved.WaitForStart = *o.WaitForStart
	}
	if o.WaitForEnd != nil {
		resolved.WaitForEnd = *o.WaitForEnd
	}
	return resolved
}

func (m *Manager) run() {
	defer close(m.done)
	for {
		m.mu.Lock()
		m.admitLocked()
		m.playNextLocked()
		m.mu.Unlock()

		select {
		case <-m.ctx.Done():
			return
		case <-m.wake:
		}
	}
}

// wakeLoop nudges the scheduling loop without blocking.
func (m *Manager) wakeLoop() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// admitLocked moves pending items into generation up to the prefetch
// bound. Must be called with lock held.
func (m *Manager) admitLocked() {
	for _, id := range m.prefetch.ItemsToGenerate() {
		m.prefetch.Remove(id)
		item := m.findLocked(id)
		if item == nil {
			continue
		}
		if err := m.items.Transition(item, speech.StatusGenerating); err != nil {
			zlog.Error().Msgf("queue: admit %s: %v", id, err)
			continue
		}
		m.prefetch.IncrementGenerating()

		genCtx, cancel := context.WithCancel(m.ctx)
		m.genCancels[item.ID] = cancel
		go m.generate(genCtx, item)
	}
}

func (m *Manager) generate(ctx context.Context, item *speech.Item) {
	data, err := m.generator.Generate(ctx, item)
	m.onGenerated(item, data, err)
}

// onGenerated records a finished synthesis call. Items that left the
// queue while synthesizing are discarded; their handles were already
// rejected when they were removed.
func (m *Manager) onGenerated(item *speech.Item, data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.genCancels[item.ID]; ok {
		delete(m.genCancels, item.ID)
		cancel()
	}
	m.prefetch.DecrementGenerating()

	if m.findLocked(item.ID) == nil {
		zlog.Debug().Msgf("queue: discarding audio for removed item %s", item.ID)
		m.wakeLoop()
		return
	}

	if err != nil {
		zlog.Warn().Msgf("queue: generation failed for item %s: %v", item.ID, err)
		m.failLocked(item, err)
		m.wakeLoop()
		return
	}

	item.AudioData = data
	if terr := m.items.Transition(item, speech.StatusReady); terr != nil {
		zlog.Error().Msgf("queue: %v", terr)
	}
	m.wakeLoop()
}

// failLocked moves an item to the error state, rejects its handles and
// removes it from the queue so the head never blocks on a dead item.
// Must be called with lock held.
func (m *Manager) failLocked(item *speech.Item, cause error) {
	item.AudioData = nil
	if err := m.items.Transition(item, speech.StatusError); err != nil {
		zlog.Error().Msgf("queue: %v", err)
	}
	m.removeLocked(item.ID)
	if item.Start != nil {
		item.Start.Reject(cause)
	}
	if item.End != nil {
		item.End.Reject(cause)
	}
	m.syncStateLocked()
}

// playNextLocked starts playback of the queue head if it is ready and
// nothing else is playing. Playback never overtakes queue order: a head
// still synthesizing blocks items behind it even when their audio is
// already done. Must be called with lock held.
func (m *Manager) playNextLocked() {
	if m.playing != nil || m.state.Current() != StateActive {
		return
	}
	if len(m.queue) == 0 {
		m.syncStateLocked()
		return
	}

	head := m.queue[0]
	if head.Status != speech.StatusReady {
		return
	}

	m.queue = m.queue[1:]
	if err := m.items.Transition(head, speech.StatusPlaying); err != nil {
		zlog.Error().Msgf("queue: %v", err)
		return
	}
	m.playing = head

	playCtx, cancel := context.WithCancel(m.ctx)
	m.playCancel = cancel
	if head.Start != nil {
		head.Start.Resolve()
	}
	zlog.Debug().Msgf("queue: playing item %s (%d bytes)", head.ID, len(head.AudioData))
	go m.play(playCtx, head, head.AudioData)
}

func (m *Manager) play(ctx context.Context, item *speech.Item, wav []byte) {
	err := m.dispatchPlayback(ctx, wav)
	m.onPlaybackDone(item, err, ctx.Err() != nil)
}

// dispatchPlayback feeds audio to the strategy, staging it as a file for
// strategies that cannot stream. The staged file is released on every
// exit path.
func (m *Manager) dispatchPlayback(ctx context.Context, wav []byte) error {
	if m.strategy.SupportsStreaming() {
		if err := m.strategy.PlayFromBuffer(ctx, wav); err != nil {
			return errors.Mark(err, ErrPlayback)
		}
		return nil
	}

	path, err := m.files.Acquire(wav)
	if err != nil {
		return errors.Mark(err, ErrPlayback)
	}
	defer m.files.Release(path)

	if err := m.strategy.PlayFromFile(ctx, path); err != nil {
		return errors.Mark(err, ErrPlayback)
	}
	return nil
}

// onPlaybackDone settles the finished playback. Cancelled playbacks were
// already rejected and reported by the clear that cancelled them.
func (m *Manager) onPlaybackDone(item *speech.Item, err error, cancelled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playing == item {
		m.playing = nil
	}
	if m.playCancel != nil {
		m.playCancel()
		m.playCancel = nil
	}

	switch {
	case cancelled:
		item.AudioData = nil
		if terr := m.items.Transition(item, speech.StatusError); terr != nil {
			zlog.Error().Msgf("queue: %v", terr)
		}
	case err != nil:
		zlog.Warn().Msgf("queue: playback failed for item %s: %v", item.ID, err)
		item.AudioData = nil
		if terr := m.items.Transition(item, speech.StatusError); terr != nil {
			zlog.Error().Msgf("queue: %v", terr)
		}
		if item.End != nil {
			item.End.Reject(err)
		}
	default:
		if terr := m.items.Transition(item, speech.StatusCompleted); terr != nil {
			zlog.Error().Msgf("queue: %v", terr)
		}
		if item.End != nil {
			item.End.Resolve()
		}
	}

	// Leave DRAINING only once the playback goroutine has fully stopped.
	if m.state.Current() == StateDraining {
		if len(m.queue) > 0 {
			_ = m.state.Transition(StateActive)
		} else {
			_ = m.state.Transition(StateIdle)
		}
	} else {
		m.syncStateLocked()
	}

	m.wakeLoop()
}

// clearLocked drops all queued items, cancels in-flight synthesis and
// active playback, and rejects every outstanding handle with cause.
// Must be called with lock held.
func (m *Manager) clearLocked(cause error) {
	m.prefetch.Clear()
	for id, cancel := range m.genCancels {
		cancel()
		delete(m.genCancels, id)
	}

	dropped := m.queue
	m.queue = nil
	for _, item := range dropped {
		item.AudioData = nil
		if item.Start != nil {
			item.Start.Reject(cause)
		}
		if item.End != nil {
			item.End.Reject(cause)
		}
	}
	if len(dropped) > 0 {
		zlog.Debug().Msgf("queue: dropped %d items: %v", len(dropped), cause)
	}

	if m.playing != nil {
		if m.playing.Start != nil {
			m.playing.Start.Reject(cause)
		}
		if m.playing.End != nil {
			m.playing.End.Reject(cause)
		}
		if m.playCancel != nil {
			m.playCancel()
		}
		m.strategy.Stop()
		_ = m.state.Transition(StateDraining)
	} else {
		m.syncStateLocked()
	}
}

// syncStateLocked settles the queue state between idle and active based
// on remaining work. DRAINING is left only by onPlaybackDone.
// Must be called with lock held.
func (m *Manager) syncStateLocked() {
	if m.state.Current() == StateDraining {
		return
	}
	if m.playing == nil && len(m.queue) == 0 {
		_ = m.state.Transition(StateIdle)
		return
	}
	if m.state.Current() == StateIdle {
		_ = m.state.Transition(StateActive)
	}
}

// findLocked returns the tracked item with the given id, or nil.
// Must be called with lock held.
func (m *Manager) findLocked(id string) *speech.Item {
	if m.playing != nil && m.playing.ID == id {
		return m.playing
	}
	for _, item := range m.queue {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// removeLocked drops the item with the given id from the waiting queue.
// Must be called with lock held.
func (m *Manager) removeLocked(id string) {
	for i, item := range m.queue {
		if item.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// lengthLocked counts items not yet in a terminal state.
// Must be called with lock held.
func (m *Manager) lengthLocked() int {
	n := 0
	for _, item := range m.queue {
		if !item.Status.Terminal() {
			n++
		}
	}
	if m.playing != nil && !m.playing.Status.Terminal() {
		n++
	}
	return n
}
