package normalize

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"media-saver/pkg/models"
)

func decode(t *testing.T, payload string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("Failed to decode test payload: %v", err)
	}
	return raw
}

func TestNormalizeGenericVideo(t *testing.T) {
	raw := decode(t, `{
		"success": true,
		"data": {
			"title": "Test Video",
			"video_url": "https://cdn.example.com/v.mp4",
			"duration": 12.5,
			"size": 1048576,
			"cover": "https://cdn.example.com/cover.jpg"
		}
	}`)

	info, err := Normalize(raw, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if info.MediaType != models.MediaTypeVideo {
		t.Errorf("Expected video, got %s", info.MediaType)
	}
	if info.URL != "https://cdn.example.com/v.mp4" {
		t.Errorf("Unexpected URL: %s", info.URL)
	}
	if info.Title != "Test Video" {
		t.Errorf("Unexpected title: %s", info.Title)
	}
	if info.Duration != 12.5 {
		t.Errorf("Expected duration 12.5, got %f", info.Duration)
	}
	if info.FileSize != 1048576 {
		t.Errorf("Expected size 1048576, got %d", info.FileSize)
	}
	if info.Thumbnail != "https://cdn.example.com/cover.jpg" {
		t.Errorf("Unexpected thumbnail: %s", info.Thumbnail)
	}
	if info.Format != "mp4" {
		t.Errorf("Expected default format mp4, got %s", info.Format)
	}
}

func TestNormalizeResultEnvelope(t *testing.T) {
	raw := decode(t, `{
		"code": 0,
		"result": {
			"title": "Nested",
			"playAddr": "https://cdn.example.com/play.mp4"
		}
	}`)

	info, err := Normalize(raw, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if info.URL != "https://cdn.example.com/play.mp4" {
		t.Errorf("Unexpected URL: %s", info.URL)
	}
}

func TestNormalizeImageAlbum(t *testing.T) {
	raw := decode(t, `{
		"success": true,
		"data": {
			"title": "Album",
			"images": [
				"https://cdn.example.com/1.webp",
				{"src": "https://cdn.example.com/2.webp"},
				"not-a-url"
			]
		}
	}`)

	info, err := Normalize(raw, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if info.MediaType != models.MediaTypeImageAlbum {
		t.Fatalf("Expected image album, got %s", info.MediaType)
	}
	if info.ImageCount != 2 {
		t.Fatalf("Expected 2 images, got %d", info.ImageCount)
	}
	if info.Images[0].Filename != "image_001.jpg" || info.Images[1].Filename != "image_002.jpg" {
		t.Errorf("Unexpected filenames: %s, %s", info.Images[0].Filename, info.Images[1].Filename)
	}
	if info.Thumbnail != info.Images[0].URL {
		t.Errorf("Expected first image as thumbnail, got %s", info.Thumbnail)
	}
}

func TestNormalizeAlbumWinsOverVideoField(t *testing.T) {
	// Album posts often carry a cover video URL; the album must win
	raw := decode(t, `{
		"success": true,
		"data": {
			"url": "https://cdn.example.com/cover.mp4",
			"pics": ["https://cdn.example.com/a.jpg"]
		}
	}`)

	info, err := Normalize(raw, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if info.MediaType != models.MediaTypeImageAlbum {
		t.Errorf("Expected image album, got %s", info.MediaType)
	}
}

func TestNormalizeNestedDetection(t *testing.T) {
	raw := decode(t, `{
		"success": true,
		"data": {
			"item": {
				"video": {
					"play_url": "https://cdn.example.com/nested.mp4"
				}
			}
		}
	}`)

	info, err := Normalize(raw, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if info.URL != "https://cdn.example.com/nested.mp4" {
		t.Errorf("Unexpected URL: %s", info.URL)
	}
}

func TestNormalizeFallbackURLScan(t *testing.T) {
	// "hd" is only in the fallback table, not in structured detection
	raw := decode(t, `{
		"success": true,
		"data": {
			"title": "Fallback",
			"hd": "https://cdn.example.com/hd.mp4"
		}
	}`)

	info, err := Normalize(raw, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if info.URL != "https://cdn.example.com/hd.mp4" {
		t.Errorf("Unexpected URL: %s", info.URL)
	}
}

func TestNormalizeNonHTTPRejected(t *testing.T) {
	raw := decode(t, `{
		"success": true,
		"data": {"url": "ftp://example.com/file.mp4"}
	}`)

	if _, err := Normalize(raw, Options{}); err == nil {
		t.Error("Expected error for non-http URL")
	}
}

func TestNormalizeEmptyPayload(t *testing.T) {
	_, err := Normalize(map[string]any{}, Options{})
	if err == nil {
		t.Fatal("Expected error for empty payload")
	}

	var normErr *models.NormalizationError
	if !errors.As(err, &normErr) {
		t.Errorf("Expected NormalizationError, got %T", err)
	}
}

func TestNormalizeFailureEnvelope(t *testing.T) {
	raw := decode(t, `{
		"success": false,
		"status": 500,
		"message": "backend exploded"
	}`)

	_, err := Normalize(raw, Options{})
	if err == nil {
		t.Fatal("Expected error for failure envelope")
	}
	if !strings.Contains(err.Error(), "backend exploded") {
		t.Errorf("Expected upstream message in error, got: %v", err)
	}
}

func TestNormalizeKnownAPIVideo(t *testing.T) {
	raw := decode(t, `{
		"code": 200,
		"data": {
			"title": "jx video",
			"url": "https://cdn.example.com/jx.mp4",
			"duration": 30,
			"size": 2048,
			"cover": "https://cdn.example.com/jx.jpg"
		}
	}`)

	info, err := Normalize(raw, Options{KnownAPI: true})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if info.MediaType != models.MediaTypeVideo {
		t.Errorf("Expected video, got %s", info.MediaType)
	}
	if info.URL != "https://cdn.example.com/jx.mp4" {
		t.Errorf("Unexpected URL: %s", info.URL)
	}
	if info.Format != "mp4" {
		t.Errorf("Expected format mp4, got %s", info.Format)
	}
}

func TestNormalizeKnownAPIAlbum(t *testing.T) {
	// jxcxin returns albums as a url array
	raw := decode(t, `{
		"code": 200,
		"data": {
			"title": "jx album",
			"url": [
				"https://cdn.example.com/1.jpg",
				"https://cdn.example.com/2.jpg",
				"https://cdn.example.com/3.jpg"
			]
		}
	}`)

	info, err := Normalize(raw, Options{KnownAPI: true})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if info.MediaType != models.MediaTypeImageAlbum {
		t.Fatalf("Expected image album, got %s", info.MediaType)
	}
	if info.ImageCount != 3 {
		t.Errorf("Expected 3 images, got %d", info.ImageCount)
	}
	for i, expected := range []string{"image_001.jpg", "image_002.jpg", "image_003.jpg"} {
		if info.Images[i].Filename != expected {
			t.Errorf("Expected %s, got %s", expected, info.Images[i].Filename)
		}
	}
}

func TestNormalizeKnownAPIError(t *testing.T) {
	tests := []struct {
		payload  string
		contains []string
	}{
		{`{"code": 404}`, []string{"404"}},
		{`{"code": 404, "msg": "not found"}`, []string{"404", "not found"}},
		{`{"code": 500, "msg": "boom"}`, []string{"500", "boom"}},
		{`{"code": 403}`, []string{"403"}},
	}

	for _, test := range tests {
		raw := decode(t, test.payload)

		_, err := Normalize(raw, Options{KnownAPI: true})
		if err == nil {
			t.Fatalf("Expected error for %s", test.payload)
		}
		for _, want := range test.contains {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("Expected %q in error for %s, got: %v", want, test.payload, err)
			}
		}
	}
}

func TestNormalizeKnownAPIAlbumSkipsNonStrings(t *testing.T) {
	raw := decode(t, `{"code": 200, "data": {"title": "T", "url": ["http://a/1.jpg", 5, "http://a/2.jpg"]}}`)

	info, err := Normalize(raw, Options{KnownAPI: true})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if info.ImageCount != 2 {
		t.Fatalf("Expected 2 images, got %d", info.ImageCount)
	}

	// Filenames stay contiguous when entries are skipped
	expected := []string{"image_001.jpg", "image_002.jpg"}
	for i, want := range expected {
		if info.Images[i].Filename != want {
			t.Errorf("Expected filename %s at %d, got %s", want, i, info.Images[i].Filename)
		}
	}
}

func TestKnownAPIFor(t *testing.T) {
	tests := []struct {
		cfg      models.ParserConfig
		expected bool
	}{
		{models.ParserConfig{APIURL: "https://api.jxcxin.com/parse"}, true},
		{models.ParserConfig{Name: "jxcxin backup"}, true},
		{models.ParserConfig{APIURL: "https://api.other.com", Name: "other"}, false},
	}

	for _, test := range tests {
		if got := KnownAPIFor(test.cfg); got != test.expected {
			t.Errorf("KnownAPIFor(%s %s) = %v, expected %v",
				test.cfg.Name, test.cfg.APIURL, got, test.expected)
		}
	}
}
