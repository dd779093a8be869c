package filter

import (
	"context"
	"regexp"
	"strings"
)

// bareURL matches segments that consist of nothing but a URL.
var bareURL = regexp.MustCompile(`^https?://\S+$`)

// URLFilter rejects segments that are only a URL. Reading a raw URL
// character by character is noise, not speech.
type URLFilter struct{}

func (f *URLFilter) Name() string {
	return "url_filter"
}

func (f *URLFilter) Description() string {
	return "Rejects segments that consist only of a URL"
}

func (f *URLFilter) ReturnCodes() []string {
	return []string{"url_segment"}
}

func (f *URLFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *URLFilter) Check(ctx context.Context, seg Segment) Result {
	if bareURL.MatchString(strings.TrimSpace(seg.Text)) {
		return Reject("url_segment")
	}
	return Accept()
}

func init() {
	Register("url_filter", func() Filter {
		return &URLFilter{}
	})
}
