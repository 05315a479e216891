package convert

import (
	"fmt"
	"math"
)

// EstimateFileSize approximates a video file size from its duration in
// seconds, assuming an average bitrate of 1 Mbps
func EstimateFileSize(durationSeconds float64) int64 {
	if durationSeconds <= 0 {
		return 0
	}
	return int64(durationSeconds * 1024 * 1024 / 8)
}

// FormatFileSize renders a byte count as a human-readable string
func FormatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}

	const k = 1024
	sizes := []string{"B", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(k)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}

	value := float64(bytes) / math.Pow(k, float64(i))
	return fmt.Sprintf("%s %s", trimZeros(value), sizes[i])
}

func trimZeros(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// FormatDuration renders seconds as M:SS, or H:MM:SS past an hour
func FormatDuration(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
