package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// Mock QueueInspector for testing
type mockQueueInspector struct {
	queued  []*speech.Item
	current *speech.Item
}

func (m *mockQueueInspector) Queued() []*speech.Item {
	return m.queued
}

func (m *mockQueueInspector) Current() (*speech.Item, bool) {
	return m.current, m.current != nil
}

func TestDuplicateSegmentFilter_ExactMatch(t *testing.T) {
	qi := &mockQueueInspector{
		queued: []*speech.Item{
			{ID: "item1", Text: "こんにちは。"},
		},
	}

	filter := NewDuplicateSegmentFilter(qi)

	result := filter.Check(context.Background(), Segment{Text: "こんにちは。"})

	assert.False(t, result.Accepted)
	assert.Equal(t, "duplicate_segment", result.Code)
}

func TestDuplicateSegmentFilter_Variants(t *testing.T) {
	tests := []struct {
		name         string
		queuedText   string
		segmentText  string
		shouldReject bool
		description  string
	}{
		{
			name:         "different trailing punctuation",
			queuedText:   "こんにちは。",
			segmentText:  "こんにちは！",
			shouldReject: true,
			description:  "Should treat punctuation variants as duplicate",
		},
		{
			name:         "case difference",
			queuedText:   "Hello World.",
			segmentText:  "hello world.",
			shouldReject: true,
			description:  "Should compare case-insensitively",
		},
		{
			name:         "whitespace difference",
			queuedText:   "hello   world.",
			segmentText:  "hello world.",
			shouldReject: true,
			description:  "Should collapse whitespace runs",
		},
		{
			name:         "different text",
			queuedText:   "おはようございます。",
			segmentText:  "こんばんは。",
			shouldReject: false,
			description:  "Should allow distinct text",
		},
		{
			name:         "prefix is not a duplicate",
			queuedText:   "hello world.",
			segmentText:  "hello.",
			shouldReject: false,
			description:  "Should not match on prefix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qi := &mockQueueInspector{
				queued: []*speech.Item{
					{ID: "item1", Text: tt.queuedText},
				},
			}

			filter := NewDuplicateSegmentFilter(qi)
			result := filter.Check(context.Background(), Segment{Text: tt.segmentText})

			if tt.shouldReject {
				assert.False(t, result.Accepted, tt.description)
				assert.Equal(t, "duplicate_segment", result.Code)
			} else {
				assert.True(t, result.Accepted, tt.description)
			}
		})
	}
}

func TestDuplicateSegmentFilter_MatchesCurrent(t *testing.T) {
	qi := &mockQueueInspector{
		current: &speech.Item{ID: "playing", Text: "読み上げ中です。"},
	}

	filter := NewDuplicateSegmentFilter(qi)

	result := filter.Check(context.Background(), Segment{Text: "読み上げ中です。"})

	assert.False(t, result.Accepted)
	assert.Equal(t, "duplicate_segment", result.Code)
}

func TestDuplicateSegmentFilter_EmptyQueue(t *testing.T) {
	filter := NewDuplicateSegmentFilter(&mockQueueInspector{})

	result := filter.Check(context.Background(), Segment{Text: "なにか。"})

	assert.True(t, result.Accepted, "Should accept any text when queue is empty")
}

func TestDuplicateSegmentFilter_QueryOnlyItemsIgnored(t *testing.T) {
	// Items enqueued from a prebuilt query have no text to compare.
	qi := &mockQueueInspector{
		queued: []*speech.Item{
			{ID: "query-item", Text: ""},
		},
	}

	filter := NewDuplicateSegmentFilter(qi)

	result := filter.Check(context.Background(), Segment{Text: "テキストです。"})

	assert.True(t, result.Accepted)
}

func TestNormalizeSegmentText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"こんにちは。", "こんにちは"},
		{"こんにちは！！", "こんにちは"},
		{"Hello World?", "hello world"},
		{"  Extra   Spaces  .", "extra spaces"},
		{"句点なし", "句点なし"},
		{"。", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeSegmentText(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
