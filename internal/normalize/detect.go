package normalize

import (
	"fmt"
	"sort"
	"strings"

	"media-saver/internal/jsonval"
	"media-saver/pkg/models"
)

// Field tables driving media detection. Matches are exact and
// case-sensitive; APIs that rename fields fall through to the fallback
// URL scan.
var (
	imageArrayFields = []string{"images", "pics", "pictures", "photos", "image_list", "pic_list"}

	imageItemURLFields = []string{"url", "src", "image_url", "pic_url", "photo_url", "link", "href"}

	videoURLFields = []string{"url", "video_url", "videoUrl", "play_url", "playAddr", "download_url", "downloadUrl"}

	fallbackURLFields = []string{
		"url", "download_url", "play_url", "downloadUrl", "playUrl",
		"video_url", "videoUrl", "media_url", "mediaUrl", "mp4",
		"src", "source", "link", "content", "video", "hd", "sd", "playAddr",
	}
)

// Detection is the outcome of probing a payload for media content
type Detection struct {
	VideoURL string
	Images   []models.ImageInfo
}

// DetectMedia probes a payload for an image album first, then a video
// URL, then recurses into nested objects. Image albums win over videos
// so cover fields on album posts do not misclassify them.
func DetectMedia(source jsonval.Obj) Detection {
	for _, field := range imageArrayFields {
		arr, ok := source.Arr(field)
		if !ok || len(arr) == 0 {
			continue
		}

		images := collectImages(arr)
		if len(images) > 0 {
			return Detection{Images: images}
		}
	}

	for _, field := range videoURLFields {
		if s, ok := source.Str(field); ok && strings.HasPrefix(s, "http") {
			return Detection{VideoURL: s}
		}
	}

	// Nested descent in sorted key order so detection is deterministic
	for _, key := range sortedKeys(source) {
		nested, ok := source.Obj(key)
		if !ok {
			continue
		}
		if result := DetectMedia(nested); result.VideoURL != "" || len(result.Images) > 0 {
			return result
		}
	}

	return Detection{}
}

// collectImages maps an image array to ImageInfo records. Items are
// either URL strings or objects carrying one of the known URL fields;
// anything without an http URL is dropped.
func collectImages(arr []any) []models.ImageInfo {
	var images []models.ImageInfo
	for _, item := range arr {
		imageURL := ""

		if s, ok := jsonval.Str(item); ok {
			imageURL = s
		} else if obj, ok := jsonval.AsObj(item); ok {
			for _, field := range imageItemURLFields {
				if s, ok := obj.Str(field); ok && s != "" {
					imageURL = s
					break
				}
			}
		}

		if strings.HasPrefix(imageURL, "http") {
			images = append(images, models.ImageInfo{
				URL:      imageURL,
				Filename: fmt.Sprintf("image_%03d.jpg", len(images)+1),
			})
		}
	}
	return images
}

// fallbackURLScan is the last-resort probe when structured detection
// finds nothing: scan a wide set of URL-ish field names at the top
// level, then one level deep
func fallbackURLScan(source jsonval.Obj) string {
	for _, field := range fallbackURLFields {
		if s, ok := source.Str(field); ok && strings.HasPrefix(s, "http") {
			return s
		}
	}

	for _, key := range sortedKeys(source) {
		nested, ok := source.Obj(key)
		if !ok {
			continue
		}
		for _, field := range fallbackURLFields {
			if s, ok := nested.Str(field); ok && strings.HasPrefix(s, "http") {
				return s
			}
		}
	}

	return ""
}

func sortedKeys(o jsonval.Obj) []string {
	keys := make([]string, 0, len(o))
	for key := range o {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
