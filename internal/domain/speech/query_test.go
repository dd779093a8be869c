package speech

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleQuery = `{
	"accent_phrases": [{"moras": [{"text": "テ", "vowel": "e"}], "accent": 1}],
	"speedScale": 1.0,
	"pitchScale": 0.0,
	"volumeScale": 1.0,
	"outputSamplingRate": 24000,
	"outputStereo": false,
	"kana": "テスト"
}`

func TestParseAudioQuery(t *testing.T) {
	q, err := ParseAudioQuery([]byte(sampleQuery))
	require.NoError(t, err)

	speed, ok := q.SpeedScale()
	assert.True(t, ok)
	assert.Equal(t, 1.0, speed)
}

func TestParseAudioQuery_Invalid(t *testing.T) {
	_, err := ParseAudioQuery([]byte("not json"))
	assert.Error(t, err)
}

func TestAudioQuery_RoundTripPreservesUnknownFields(t *testing.T) {
	q, err := ParseAudioQuery([]byte(sampleQuery))
	require.NoError(t, err)

	out, err := json.Marshal(q)
	require.NoError(t, err)

	var got, want map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	require.NoError(t, json.Unmarshal([]byte(sampleQuery), &want))
	assert.Equal(t, want, got)
}

func TestAudioQuery_SetSpeedScale(t *testing.T) {
	q, err := ParseAudioQuery([]byte(sampleQuery))
	require.NoError(t, err)

	q.SetSpeedScale(1.5)

	speed, ok := q.SpeedScale()
	assert.True(t, ok)
	assert.Equal(t, 1.5, speed)

	out, err := json.Marshal(q)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Equal(t, 1.5, fields["speedScale"])
	assert.Equal(t, "テスト", fields["kana"])
}

func TestAudioQuery_CloneIsolatesSpeedChange(t *testing.T) {
	q, err := ParseAudioQuery([]byte(sampleQuery))
	require.NoError(t, err)

	clone := q.Clone()
	clone.SetSpeedScale(2.0)

	orig, ok := q.SpeedScale()
	assert.True(t, ok)
	assert.Equal(t, 1.0, orig)
}

func TestAudioQuery_UnmarshalJSON(t *testing.T) {
	var q AudioQuery
	require.NoError(t, json.Unmarshal([]byte(sampleQuery), &q))

	speed, ok := q.SpeedScale()
	assert.True(t, ok)
	assert.Equal(t, 1.0, speed)
}
