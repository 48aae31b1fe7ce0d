package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"trims", "  hello  ", "hello"},
		{"null bytes", "hel\x00lo", "hello"},
		{"keeps newlines", "line1\nline2", "line1\nline2"},
		{"drops carriage return", "line1\r\nline2", "line1\nline2"},
		{"unicode", "  Murakoze cyane 🙏 ", "Murakoze cyane 🙏"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{"empty string", "", 10, ""},
		{"shorter than max", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"longer than max", "hello world", 5, "hello"},
		{"zero max length", "hello", 0, ""},
		{"multibyte runes", "héllo wörld", 7, "héllo w"},
		{"very long string", strings.Repeat("a", 1000), 100, strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateString(tt.input, tt.maxLength))
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"multiple spaces", "hello    world", "hello world"},
		{"mixed whitespace", "hello  \t\n  world", "hello world"},
		{"only whitespace", "     ", ""},
		{"carriage return", "hello\r\nworld", "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeWhitespace(tt.input))
		})
	}
}

func TestSanitizeLine(t *testing.T) {
	assert.Equal(t, "MTN MoMo", SanitizeLine("  MTN\x07 \n MoMo ", 32))
	assert.Equal(t, "+2507", SanitizeLine("+250788123456", 5))
}

func TestRemoveControlCharacters(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no control chars", "hello world", "hello world"},
		{"with tab", "hello\tworld", "hello\tworld"},
		{"with bell", "hello\aworld", "helloworld"},
		{"with form feed", "hello\fworld", "helloworld"},
		{"multiple control chars", "\x00\x01\x02hello\x03\x04", "hello"},
		{"delete", "hel\x7flo", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, removeControlCharacters(tt.input))
		})
	}
}

func BenchmarkSanitizeString(b *testing.B) {
	input := "  You won\x00 500,000 RWF\x01 claim now  "
	for i := 0; i < b.N; i++ {
		SanitizeString(input)
	}
}
