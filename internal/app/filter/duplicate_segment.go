package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// DuplicateSegmentFilterName is the config key for the duplicate
// segment filter.
const DuplicateSegmentFilterName = "duplicate_segment_filter"

// DuplicateSegmentFilter checks for duplicate text in the queue.
// Detects:
// - Exact text matches against queued and currently playing items
// - Trivial variants (same text up to case, whitespace and trailing punctuation)
// Query-only items carry no text and are never matched.
type DuplicateSegmentFilter struct {
	queue QueueInspector
}

// QueueInspector is the queue access the filter needs.
type QueueInspector interface {
	Queued() []*speech.Item
	Current() (*speech.Item, bool)
}

// NewDuplicateSegmentFilter creates a new duplicate segment filter.
// The filter needs a live queue, so it is not in the registry; the
// server adds it to the chain at assembly time.
func NewDuplicateSegmentFilter(queue QueueInspector) *DuplicateSegmentFilter {
	return &DuplicateSegmentFilter{
		queue: queue,
	}
}

// Name returns the filter name.
func (f *DuplicateSegmentFilter) Name() string {
	return DuplicateSegmentFilterName
}

// Description returns the filter description.
func (f *DuplicateSegmentFilter) Description() string {
	return "Rejects text that is already queued or being spoken"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateSegmentFilter) ReturnCodes() []string {
	return []string{"duplicate_segment"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateSegmentFilter) ValidateConfig(settings map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the segment text is already in the queue.
func (f *DuplicateSegmentFilter) Check(ctx context.Context, seg Segment) Result {
	want := normalizeSegmentText(seg.Text)
	if want == "" {
		return Accept()
	}

	if cur, ok := f.queue.Current(); ok {
		if normalizeSegmentText(cur.Text) == want {
			return Reject("duplicate_segment")
		}
	}

	for _, item := range f.queue.Queued() {
		if normalizeSegmentText(item.Text) == want {
			return Reject("duplicate_segment")
		}
	}

	return Accept()
}

var (
	segmentSpaceRe = regexp.MustCompile(`\s+`)
	segmentTailRe  = regexp.MustCompile(`[。．！？!?.]+$`)
)

// normalizeSegmentText reduces text to a comparison key. Two segments
// that differ only in case, whitespace or trailing sentence punctuation
// produce the same speech, so they compare equal here.
func normalizeSegmentText(text string) string {
	normalized := strings.ToLower(text)
	normalized = segmentSpaceRe.ReplaceAllString(normalized, " ")
	normalized = segmentTailRe.ReplaceAllString(normalized, "")
	return strings.TrimSpace(normalized)
}
