package sanitize

import (
	"strings"
	"testing"
	"time"
)

func TestSanitizeBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain title", "My Video Title", "My_Video_Title"},
		{"special chars replaced", "video: part#1", "video_part_1"},
		{"consecutive replacements collapse", "a###b", "a_b"},
		{"leading and trailing trimmed", "#title#", "title"},
		{"slash and backslash", "a/b\\c", "a_b_c"},
		{"empty input", "", "unnamed_file"},
		{"only special chars", "###", "unnamed"},
		{"whitespace only", "   ", "unnamed"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Sanitize(test.input)
			if result != test.expected {
				t.Errorf("Sanitize(%q) = %q, expected %q", test.input, result, test.expected)
			}
		})
	}
}

func TestSanitizePreservesExtension(t *testing.T) {
	result := Sanitize("my:video.mp4")
	if result != "my_video.mp4" {
		t.Errorf("Expected my_video.mp4, got %s", result)
	}

	// Hidden files have no extension to preserve
	result = Sanitize(".gitignore")
	if !strings.HasSuffix(result, "gitignore") {
		t.Errorf("Expected gitignore suffix, got %s", result)
	}
}

func TestSanitizeReservedNames(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"CON", "CON_file"},
		{"con", "con_file"},
		{"COM1", "COM1_file"},
		{"LPT9", "LPT9_file"},
		{"CONSOLE", "CONSOLE"},
	}

	for _, test := range tests {
		result := SanitizeWith(test.input, Options{Replacement: "_", MaxLength: 100})
		if result != test.expected {
			t.Errorf("Sanitize(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestSanitizeMaxLength(t *testing.T) {
	long := strings.Repeat("a", 200) + ".mp4"
	result := Sanitize(long)

	if len([]rune(result)) > 100 {
		t.Errorf("Expected result within 100 chars, got %d", len([]rune(result)))
	}

	if !strings.HasSuffix(result, ".mp4") {
		t.Errorf("Expected extension preserved after clamping, got %s", result)
	}
}

func TestSanitizeEmoji(t *testing.T) {
	result := Sanitize("fun video 🎉 part 2")
	if strings.Contains(result, "🎉") {
		t.Errorf("Expected emoji removed, got %s", result)
	}
	if result != "fun_video_part_2" {
		t.Errorf("Expected fun_video_part_2, got %s", result)
	}
}

func TestSanitizeTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 5, 7, 42_000_000, time.UTC)
	opts := Options{Replacement: "_", MaxLength: 100, KeepExtension: true, AddTimestamp: true, Now: now}

	result := SanitizeWith("title.mp4", opts)
	expected := "title_2024-03-15-09-05-07-042.mp4"
	if result != expected {
		t.Errorf("Expected %s, got %s", expected, result)
	}
}

func TestSanitizeBatchDeduplicates(t *testing.T) {
	names := []string{"video.mp4", "video.mp4", "video.mp4", "other.mp4"}
	result := SanitizeBatch(names, DefaultOptions())

	expected := []string{"video.mp4", "video_1.mp4", "video_2.mp4", "other.mp4"}
	if len(result) != len(expected) {
		t.Fatalf("Expected %d names, got %d", len(expected), len(result))
	}
	for i := range expected {
		if result[i] != expected[i] {
			t.Errorf("Expected %s at index %d, got %s", expected[i], i, result[i])
		}
	}
}

func TestSplitExtension(t *testing.T) {
	tests := []struct {
		input string
		base  string
		ext   string
	}{
		{"video.mp4", "video", ".mp4"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"noext", "noext", ""},
		{".hidden", ".hidden", ""},
		{"trailing.", "trailing.", ""},
	}

	for _, test := range tests {
		base, ext := SplitExtension(test.input)
		if base != test.base || ext != test.ext {
			t.Errorf("SplitExtension(%q) = (%q, %q), expected (%q, %q)",
				test.input, base, ext, test.base, test.ext)
		}
	}
}

func TestDetectSpecialChars(t *testing.T) {
	found := DetectSpecialChars("a#b:c#d")
	if len(found) != 2 {
		t.Fatalf("Expected 2 distinct special chars, got %v", found)
	}
	if found[0] != "#" || found[1] != ":" {
		t.Errorf("Expected [# :] in order of appearance, got %v", found)
	}

	if HasSpecialChars("clean_name") {
		t.Error("Expected no special chars in clean_name")
	}
	if !HasSpecialChars("bad?name") {
		t.Error("Expected special char detected in bad?name")
	}
}
