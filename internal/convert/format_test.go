package convert

import "testing"

func TestEstimateFileSize(t *testing.T) {
	// 1 Mbps average bitrate: 8 seconds of video is one mebibyte
	if got := EstimateFileSize(8); got != 1024*1024 {
		t.Errorf("Expected 1048576, got %d", got)
	}
	if got := EstimateFileSize(0); got != 0 {
		t.Errorf("Expected 0 for zero duration, got %d", got)
	}
	if got := EstimateFileSize(-5); got != 0 {
		t.Errorf("Expected 0 for negative duration, got %d", got)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{1073741824, "1 GB"},
	}

	for _, test := range tests {
		if got := FormatFileSize(test.bytes); got != test.expected {
			t.Errorf("FormatFileSize(%d) = %s, expected %s", test.bytes, got, test.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{65, "1:05"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}

	for _, test := range tests {
		if got := FormatDuration(test.seconds); got != test.expected {
			t.Errorf("FormatDuration(%f) = %s, expected %s", test.seconds, got, test.expected)
		}
	}
}
