package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		shouldReject bool
	}{
		{name: "Bare http URL", text: "http://example.com", shouldReject: true},
		{name: "Bare https URL", text: "https://example.com/path?q=1", shouldReject: true},
		{name: "URL with surrounding spaces", text: "  https://example.com  ", shouldReject: true},
		{name: "URL inside sentence", text: "詳しくは https://example.com をご覧ください", shouldReject: false},
		{name: "Plain text", text: "こんにちは", shouldReject: false},
		{name: "Scheme only mention", text: "httpsの話", shouldReject: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &URLFilter{}
			result := f.Check(context.Background(), Segment{Text: tt.text})

			if tt.shouldReject {
				assert.False(t, result.Accepted)
				assert.Equal(t, "url_segment", result.Code)
			} else {
				assert.True(t, result.Accepted)
			}
		})
	}
}
