package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "japanese sentences",
			text:     "こんにちは。今日はいい天気ですね。",
			expected: []string{"こんにちは。", "今日はいい天気ですね。"},
		},
		{
			name:     "newline separated",
			text:     "一行目\n二行目\n三行目",
			expected: []string{"一行目", "二行目", "三行目"},
		},
		{
			name:     "mixed punctuation",
			text:     "本当？すごい！やったね。",
			expected: []string{"本当？", "すごい！", "やったね。"},
		},
		{
			name:     "ascii punctuation",
			text:     "Really? Yes! Done.",
			expected: []string{"Really?", "Yes!", "Done."},
		},
		{
			name:     "no terminator",
			text:     "区切りのないテキスト",
			expected: []string{"区切りのないテキスト"},
		},
		{
			name:     "blank lines dropped",
			text:     "上\n\n\n下",
			expected: []string{"上", "下"},
		},
		{
			name:     "whitespace only",
			text:     "   \n\t\n",
			expected: nil,
		},
		{
			name:     "empty",
			text:     "",
			expected: nil,
		},
		{
			name:     "crlf line breaks",
			text:     "first\r\nsecond",
			expected: []string{"first", "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitText(tt.text))
		})
	}
}
