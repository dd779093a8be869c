package queue

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

type recordingSynth struct {
	buildCalls []string
	synthCalls []*speech.AudioQuery
	buildErr   error
	synthErr   error
	out        []byte
}

func newRecordingSynth() *recordingSynth {
	return &recordingSynth{out: []byte("wav")}
}

func (r *recordingSynth) BuildQuery(_ context.Context, text string, _ int) (*speech.AudioQuery, error) {
	r.buildCalls = append(r.buildCalls, text)
	if r.buildErr != nil {
		return nil, r.buildErr
	}
	return speech.ParseAudioQuery([]byte(`{"speedScale":1.0}`))
}

func (r *recordingSynth) Synthesize(_ context.Context, q *speech.AudioQuery, _ int) ([]byte, error) {
	r.synthCalls = append(r.synthCalls, q)
	if r.synthErr != nil {
		return nil, r.synthErr
	}
	return r.out, nil
}

func TestGenerator_TextItem(t *testing.T) {
	synth := newRecordingSynth()
	g := NewGenerator(synth)

	item := &speech.Item{ID: "1", Text: "こんにちは", Speaker: 1}
	data, err := g.Generate(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, []byte("wav"), data)
	assert.Equal(t, []string{"こんにちは"}, synth.buildCalls)
	require.Len(t, synth.synthCalls, 1)
}

func TestGenerator_QueryItemSkipsBuild(t *testing.T) {
	synth := newRecordingSynth()
	g := NewGenerator(synth)

	query, err := speech.ParseAudioQuery([]byte(`{"speedScale":1.0,"kana":"テスト"}`))
	require.NoError(t, err)

	item := &speech.Item{ID: "1", Query: query, Speaker: 1}
	_, err = g.Generate(context.Background(), item)
	require.NoError(t, err)

	assert.Empty(t, synth.buildCalls)
	require.Len(t, synth.synthCalls, 1)
	assert.Same(t, query, synth.synthCalls[0])
}

func TestGenerator_SpeedOverrideDoesNotMutateQuery(t *testing.T) {
	synth := newRecordingSynth()
	g := NewGenerator(synth)

	query, err := speech.ParseAudioQuery([]byte(`{"speedScale":1.0}`))
	require.NoError(t, err)

	item := &speech.Item{ID: "1", Query: query, SpeedScale: 1.5}
	_, err = g.Generate(context.Background(), item)
	require.NoError(t, err)

	require.Len(t, synth.synthCalls, 1)
	assert.NotSame(t, query, synth.synthCalls[0])

	sent, ok := synth.synthCalls[0].SpeedScale()
	assert.True(t, ok)
	assert.Equal(t, 1.5, sent)

	orig, ok := query.SpeedScale()
	assert.True(t, ok)
	assert.Equal(t, 1.0, orig)
}

func TestGenerator_TextItemSpeedOverride(t *testing.T) {
	synth := newRecordingSynth()
	g := NewGenerator(synth)

	item := &speech.Item{ID: "1", Text: "早口", SpeedScale: 2.0}
	_, err := g.Generate(context.Background(), item)
	require.NoError(t, err)

	require.Len(t, synth.synthCalls, 1)
	speed, ok := synth.synthCalls[0].SpeedScale()
	assert.True(t, ok)
	assert.Equal(t, 2.0, speed)
}

func TestGenerator_ErrorsAreMarked(t *testing.T) {
	t.Run("build failure", func(t *testing.T) {
		synth := newRecordingSynth()
		synth.buildErr = errors.New("engine down")
		g := NewGenerator(synth)

		_, err := g.Generate(context.Background(), &speech.Item{ID: "1", Text: "x"})
		assert.True(t, errors.Is(err, ErrSynthesis), "got %v", err)
		assert.Empty(t, synth.synthCalls)
	})

	t.Run("synthesis failure", func(t *testing.T) {
		synth := newRecordingSynth()
		synth.synthErr = errors.New("engine down")
		g := NewGenerator(synth)

		_, err := g.Generate(context.Background(), &speech.Item{ID: "1", Text: "x"})
		assert.True(t, errors.Is(err, ErrSynthesis), "got %v", err)
	})

	t.Run("empty audio", func(t *testing.T) {
		synth := newRecordingSynth()
		synth.out = nil
		g := NewGenerator(synth)

		_, err := g.Generate(context.Background(), &speech.Item{ID: "1", Text: "x"})
		assert.True(t, errors.Is(err, ErrSynthesis), "got %v", err)
	})
}
