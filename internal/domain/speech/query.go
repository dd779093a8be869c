package speech

import (
	"encoding/json"
	"maps"

	"github.com/cockroachdb/errors"
)

// AudioQuery holds a VOICEVOX audio query. The engine owns the schema;
// the queue treats the document as opaque and only touches the handful
// of fields it adjusts, so unknown fields survive a round trip intact.
type AudioQuery struct {
	fields map[string]any
}

// ParseAudioQuery decodes an audio query document returned by the engine.
func ParseAudioQuery(data []byte) (*AudioQuery, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "failed to parse audio query")
	}
	return &AudioQuery{fields: fields}, nil
}

// MarshalJSON encodes the query exactly as the engine expects it.
func (q *AudioQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.fields)
}

// UnmarshalJSON decodes an audio query document.
func (q *AudioQuery) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &q.fields)
}

// Clone returns a copy whose top-level fields can be adjusted without
// mutating the receiver. Nested structures are shared.
func (q *AudioQuery) Clone() *AudioQuery {
	return &AudioQuery{fields: maps.Clone(q.fields)}
}

// SpeedScale returns the playback speed factor, if present.
func (q *AudioQuery) SpeedScale() (float64, bool) {
	v, ok := q.fields["speedScale"].(float64)
	return v, ok
}

// SetSpeedScale overrides the playback speed factor.
func (q *AudioQuery) SetSpeedScale(v float64) {
	if q.fields == nil {
		q.fields = map[string]any{}
	}
	q.fields["speedScale"] = v
}
