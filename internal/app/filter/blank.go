package filter

import (
	"context"
	"strings"
)

// BlankFilter checks if the segment contains any speakable text.
type BlankFilter struct{}

func (f *BlankFilter) Name() string {
	return "blank_filter"
}

func (f *BlankFilter) Description() string {
	return "Rejects segments with no speakable text"
}

func (f *BlankFilter) ReturnCodes() []string {
	return []string{"blank_segment"}
}

func (f *BlankFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *BlankFilter) Check(ctx context.Context, seg Segment) Result {
	if strings.TrimSpace(seg.Text) == "" {
		return Reject("blank_segment")
	}
	return Accept()
}

func init() {
	Register("blank_filter", func() Filter {
		return &BlankFilter{}
	})
}
