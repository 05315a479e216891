package convert

import (
	"testing"
)

func TestExtractShareURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain url unchanged",
			input:    "https://v.douyin.com/d689EsOAlug/",
			expected: "https://v.douyin.com/d689EsOAlug/",
		},
		{
			name:     "share text with promo",
			input:    "7.97 check this out https://v.douyin.com/d689EsOAlug/ copy the link and open the app",
			expected: "https://v.douyin.com/d689EsOAlug",
		},
		{
			name:     "hashtags before url",
			input:    "amazing #tag1 #tag2 https://example.com/watch?v=123 watch now",
			expected: "https://example.com/watch?v=123",
		},
		{
			name:     "no url returns input",
			input:    "just some text",
			expected: "just some text",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := ExtractShareURL(test.input)
			if result != test.expected {
				t.Errorf("ExtractShareURL(%q) = %q, expected %q", test.input, result, test.expected)
			}
		})
	}
}

func TestParseShareURLs(t *testing.T) {
	text := `https://v.example.com/1
promo text https://v.example.com/2/ download now

no link on this line
https://v.example.com/3`

	urls := ParseShareURLs(text)
	expected := []string{
		"https://v.example.com/1",
		"https://v.example.com/2",
		"https://v.example.com/3",
	}

	if len(urls) != len(expected) {
		t.Fatalf("Expected %d URLs, got %v", len(expected), urls)
	}
	for i := range expected {
		if urls[i] != expected[i] {
			t.Errorf("Expected %s at %d, got %s", expected[i], i, urls[i])
		}
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"https://example.com/v", true},
		{"http://example.com", true},
		{"share text https://example.com/v watch", true},
		{"ftp://example.com/v", false},
		{"example.com/v", false},
		{"", false},
		{"random words", false},
	}

	for _, test := range tests {
		if got := IsValidURL(test.input); got != test.expected {
			t.Errorf("IsValidURL(%q) = %v, expected %v", test.input, got, test.expected)
		}
	}
}
