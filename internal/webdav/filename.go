package webdav

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"media-saver/internal/sanitize"
)

// Container formats accepted for video filenames
var validVideoFormats = map[string]bool{
	"mp4": true, "avi": true, "mov": true, "wmv": true, "flv": true,
	"webm": true, "mkv": true, "m4v": true, "3gp": true, "f4v": true,
	"asf": true, "rm": true, "rmvb": true, "vob": true, "ogv": true,
	"m2ts": true, "mts": true,
}

// InferFormat picks the container format for a video file: the provided
// format when whitelisted, otherwise the extension of the media URL
// path, otherwise mp4
func InferFormat(provided, videoURL string) string {
	if provided != "" && validVideoFormats[strings.ToLower(provided)] {
		return strings.ToLower(provided)
	}

	if videoURL != "" {
		if ext := formatFromURL(videoURL); ext != "" && validVideoFormats[ext] {
			return ext
		}
	}

	return "mp4"
}

// formatFromURL extracts the extension from a URL path, ignoring the
// query string
func formatFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	idx := strings.LastIndex(u.Path, ".")
	if idx == -1 {
		return ""
	}
	return strings.ToLower(u.Path[idx+1:])
}

// VideoFileName builds the upload filename for a video: sanitized title
// with a timestamp suffix plus the container extension
func VideoFileName(title, format string, now time.Time) string {
	name := sanitize.SanitizeWith(title, sanitize.Options{
		Replacement:  "_",
		MaxLength:    100,
		AddTimestamp: true,
		Now:          now,
	})

	// Strip any extension the title carried so the format wins
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}

	return name + "." + format
}

// FolderName builds the upload folder name for an image album from the
// sanitized title
func FolderName(title string) string {
	return sanitize.SanitizeWith(title, sanitize.Options{
		Replacement: "_",
		MaxLength:   100,
	})
}

// randomImageName builds a date-based random filename for an album
// image: YYYYMMDD_HHMMSS_mmmRRRR.ext
func randomImageName(now time.Time, random int, extension string) string {
	return fmt.Sprintf("%s_%s_%03d%04d.%s",
		now.Format("20060102"),
		now.Format("150405"),
		now.Nanosecond()/1e6,
		random%10000,
		extension,
	)
}
