package convert

import (
	"net/url"
	"regexp"
	"strings"
)

// Share texts from short-video apps bury the link in promo text; this
// matches the first http(s) URL inside them.
var shareURLRegex = regexp.MustCompile(`https?://(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b[-a-zA-Z0-9()@:%_+.~#?&/=]*`)

// ExtractShareURL pulls the real media URL out of a share text. Inputs
// that already are URLs come back unchanged; texts without any URL come
// back verbatim so validation can reject them.
func ExtractShareURL(input string) string {
	if isParseableURL(input) {
		return input
	}

	if match := shareURLRegex.FindString(input); match != "" {
		return strings.TrimSuffix(match, "/")
	}

	return input
}

// ParseShareURLs extracts one URL per non-empty line of a multi-line
// input, dropping lines without a valid URL
func ParseShareURLs(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		extracted := ExtractShareURL(trimmed)
		if IsValidURL(extracted) {
			urls = append(urls, extracted)
		}
	}
	return urls
}

// IsValidURL reports whether the input contains an http(s) URL after
// share-text extraction
func IsValidURL(input string) bool {
	return isParseableURL(ExtractShareURL(input))
}

func isParseableURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
