// Package sanitize normalizes free-text media titles into filenames that
// are safe for filesystems and WebDAV servers.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Options controls filename sanitization
type Options struct {
	// Replacement is the character substituted for unsafe characters.
	// Empty means underscore.
	Replacement string

	// MaxLength limits the total filename length including the
	// extension. Zero or negative means 100.
	MaxLength int

	// KeepExtension preserves a trailing ".ext" segment through
	// sanitization and length clamping
	KeepExtension bool

	// AddTimestamp appends a _YYYY-MM-DD-HH-MM-SS-mmm suffix
	AddTimestamp bool

	// Now overrides the timestamp clock in tests
	Now time.Time
}

// DefaultOptions returns the options used by Sanitize
func DefaultOptions() Options {
	return Options{
		Replacement:   "_",
		MaxLength:     100,
		KeepExtension: true,
	}
}

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

const specialChars = "#%&@!*()[]{}|\\:;\"'<>?/"

var whitespaceRE = regexp.MustCompile(`\s+`)

// unsafeRune reports whether a rune must be replaced: control characters,
// the punctuation set above, zero-width/format characters and emoji.
func unsafeRune(r rune) bool {
	switch {
	case r < 0x20 || r == 0x7F:
		return true
	case strings.ContainsRune(specialChars, r):
		return true
	case r >= 0x200B && r <= 0x200F:
		return true
	case r == 0x2028 || r == 0x2029 || r == 0xFEFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x1F000 && r <= 0x1FFFF:
		return true
	}
	return false
}

// Sanitize normalizes a filename with the default options
func Sanitize(name string) string {
	return SanitizeWith(name, DefaultOptions())
}

// SanitizeWith normalizes a filename: unsafe characters and whitespace
// are replaced, replacement runs collapsed, Windows reserved names
// suffixed, and the result clamped to the length limit with the
// extension preserved.
func SanitizeWith(name string, opts Options) string {
	replacement := opts.Replacement
	if replacement == "" {
		replacement = "_"
	}
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = 100
	}

	if name == "" {
		return "unnamed_file"
	}

	sanitized := strings.TrimSpace(name)
	extension := ""

	if opts.KeepExtension {
		sanitized, extension = SplitExtension(sanitized)
	}

	var b strings.Builder
	for _, r := range sanitized {
		if unsafeRune(r) {
			b.WriteString(replacement)
		} else {
			b.WriteRune(r)
		}
	}
	sanitized = b.String()

	sanitized = whitespaceRE.ReplaceAllString(sanitized, replacement)

	// Collapse runs of the replacement character, then strip it from
	// each end
	doubled := replacement + replacement
	for strings.Contains(sanitized, doubled) {
		sanitized = strings.ReplaceAll(sanitized, doubled, replacement)
	}
	sanitized = strings.TrimPrefix(sanitized, replacement)
	sanitized = strings.TrimSuffix(sanitized, replacement)

	if reservedNames[strings.ToUpper(sanitized)] {
		sanitized += "_file"
	}

	if sanitized == "" {
		sanitized = "unnamed"
	}

	maxNameLength := maxLength - len([]rune(extension))
	if runes := []rune(sanitized); len(runes) > maxNameLength {
		sanitized = string(runes[:maxNameLength])
	}

	if opts.AddTimestamp {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		stamp := fmt.Sprintf("_%s-%03d", now.Format("2006-01-02-15-04-05"), now.Nanosecond()/1e6)
		available := maxNameLength - len(stamp)
		if available > 0 {
			if runes := []rune(sanitized); len(runes) > available {
				sanitized = string(runes[:available])
			}
			sanitized += stamp
		}
	}

	return sanitized + extension
}

// SanitizeBatch normalizes a list of filenames, appending _1, _2, ...
// counters to keep the results unique within the batch
func SanitizeBatch(names []string, opts Options) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(names))

	for _, name := range names {
		sanitized := SanitizeWith(name, opts)

		unique := sanitized
		for counter := 1; seen[unique]; counter++ {
			base, ext := SplitExtension(sanitized)
			unique = fmt.Sprintf("%s_%d%s", base, counter, ext)
		}

		seen[unique] = true
		result = append(result, unique)
	}

	return result
}

// SplitExtension separates a filename into base name and ".ext" suffix.
// Leading dots and trailing dots do not count as extensions.
func SplitExtension(name string) (base, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx > 0 && idx < len(name)-1 {
		return name[:idx], name[idx:]
	}
	return name, ""
}

// DetectSpecialChars returns the distinct unsafe characters present in a
// filename, in order of first appearance
func DetectSpecialChars(name string) []string {
	var found []string
	seen := make(map[rune]bool)
	for _, r := range name {
		if unsafeRune(r) && !seen[r] {
			seen[r] = true
			found = append(found, string(r))
		}
	}
	return found
}

// HasSpecialChars reports whether a filename needs sanitization
func HasSpecialChars(name string) bool {
	for _, r := range name {
		if unsafeRune(r) {
			return true
		}
	}
	return false
}
