package queue

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// Synthesizer is the narrow contract the queue needs from the speech engine.
type Synthesizer interface {
	// BuildQuery turns text into an engine audio query.
	BuildQuery(ctx context.Context, text string, speaker int) (*speech.AudioQuery, error)
	// Synthesize renders an audio query into WAV bytes.
	Synthesize(ctx context.Context, query *speech.AudioQuery, speaker int) ([]byte, error)
}

// Generator produces WAV audio for queue items. Text items go through
// query building first; query items are synthesized directly. Failures
// are marked ErrSynthesis so callers can tell them from playback errors.
type Generator struct {
	synth Synthesizer
}

// NewGenerator returns a generator backed by the given engine.
func NewGenerator(synth Synthesizer) *Generator {
	return &Generator{synth: synth}
}

// Generate synthesizes audio for the item. The item itself is not
// mutated; a speed override is applied to a copy of the query.
func (g *Generator) Generate(ctx context.Context, item *speech.Item) ([]byte, error) {
	query := item.Query
	if query == nil {
		built, err := g.synth.BuildQuery(ctx, item.Text, item.Speaker)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "build query"), ErrSynthesis)
		}
		query = built
	} else if item.SpeedScale > 0 {
		query = query.Clone()
	}
	if item.SpeedScale > 0 {
		query.SetSpeedScale(item.SpeedScale)
	}

	data, err := g.synth.Synthesize(ctx, query, item.Speaker)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "synthesize"), ErrSynthesis)
	}
	if len(data) == 0 {
		return nil, errors.Mark(errors.New("engine returned no audio"), ErrSynthesis)
	}
	return data, nil
}
