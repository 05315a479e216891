// Package normalize maps the arbitrary JSON payloads returned by
// third-party parser APIs onto the canonical media record. Every probe
// is a best-effort heuristic over known field names; unknown payload
// shapes produce a NormalizationError rather than a panic.
package normalize

import (
	"fmt"
	"strings"

	"media-saver/internal/jsonval"
	"media-saver/pkg/models"
)

const (
	defaultTitle      = "Untitled"
	defaultAlbumTitle = "Untitled Album"
)

// Options selects normalization behavior for a parser endpoint
type Options struct {
	// KnownAPI enables the dedicated envelope handling for the jxcxin
	// API family, detected from the endpoint URL or config name
	KnownAPI bool
}

// KnownAPIFor reports whether the jxcxin-family envelope applies to a
// parser configuration
func KnownAPIFor(cfg models.ParserConfig) bool {
	return strings.Contains(cfg.APIURL, "jxcxin") || strings.Contains(cfg.Name, "jxcxin")
}

// Normalize converts a decoded parser response into a media record.
// Recognition runs in order: known-API envelope, generic failure
// envelope, generic success envelope; anything else is an error.
func Normalize(raw map[string]any, opts Options) (*models.ParsedMediaInfo, error) {
	o := jsonval.Obj(raw)

	if opts.KnownAPI {
		return normalizeKnownAPI(o)
	}

	// Generic failure envelope: success=false with a status or message
	if success, ok := o.Bool("success"); ok && !success {
		_, hasStatus := o.Num("status")
		msg, hasMsg := o.Str("message")
		if hasStatus || hasMsg {
			return nil, failureError(o, msg)
		}
	}

	success, _ := o.Bool("success")
	if success || o.IsCode("code", 200, 0) {
		return normalizeSuccess(o)
	}

	if msg, ok := o.FirstStr("message", "error", "msg"); ok {
		return nil, models.NewNormalizationError("%s", msg)
	}
	return nil, models.NewNormalizationError("unrecognized parser response format")
}

// failureError builds the error for the generic failure envelope,
// attaching the upstream status code when one is present
func failureError(o jsonval.Obj, msg string) error {
	if msg == "" {
		msg = "parse failed"
	}
	if status, ok := o.Num("status"); ok {
		switch int(status) {
		case 500:
			return models.NewNormalizationError("parse failed: %s (server error)", msg)
		case 404:
			return models.NewNormalizationError("parse failed: %s (not found)", msg)
		default:
			return models.NewNormalizationError("parse failed: %s (status %d)", msg, int(status))
		}
	}
	return models.NewNormalizationError("parse failed: %s", msg)
}

// normalizeKnownAPI handles the jxcxin envelope: code 200/0 means
// success, data.url as an array means an image album, otherwise a video
func normalizeKnownAPI(o jsonval.Obj) (*models.ParsedMediaInfo, error) {
	if !o.IsCode("code", 200, 0) {
		code, _ := o.Num("code")
		// The numeric code stays in the message even when the API
		// supplies its own text
		detail := fmt.Sprintf("%d", int(code))
		if msg, ok := o.Str("msg"); ok && msg != "" {
			detail = fmt.Sprintf("%d: %s", int(code), msg)
		}
		switch int(code) {
		case 404:
			return nil, models.NewNormalizationError("parse failed: link invalid or expired (%s)", detail)
		case 500:
			return nil, models.NewNormalizationError("parse failed: server error (%s)", detail)
		default:
			return nil, models.NewNormalizationError("parse failed: error %s", detail)
		}
	}

	data, ok := o.Obj("data")
	if !ok {
		data = jsonval.Obj{}
	}
	author := ExtractAuthor(data)

	if urls, ok := data.Arr("url"); ok {
		images := make([]models.ImageInfo, 0, len(urls))
		for _, u := range urls {
			s, ok := jsonval.Str(u)
			if !ok {
				continue
			}
			// Number by kept entries so skipped non-strings leave no gaps
			images = append(images, models.ImageInfo{
				URL:      s,
				Filename: fmt.Sprintf("image_%03d.jpg", len(images)+1),
			})
		}

		title, _ := data.FirstStr("title", "desc")
		if title == "" {
			title = defaultAlbumTitle
		}

		info := &models.ParsedMediaInfo{
			Title:       title,
			Author:      author.Name,
			Avatar:      author.Avatar,
			Signature:   author.Signature,
			Time:        ExtractTime(data),
			Description: ExtractDescription(data, title),
			MediaType:   models.MediaTypeImageAlbum,
			Images:      images,
			ImageCount:  len(images),
		}
		if thumb, ok := data.FirstStr("cover", "thumbnail"); ok {
			info.Thumbnail = thumb
		} else if len(images) > 0 {
			info.Thumbnail = images[0].URL
		}
		return info, nil
	}

	title, _ := data.FirstStr("title", "desc")
	if title == "" {
		title = defaultTitle
	}

	videoURL, _ := data.FirstStr("url", "video_url", "playAddr")
	if videoURL == "" {
		return nil, models.NewNormalizationError("no video URL in parser response")
	}

	info := &models.ParsedMediaInfo{
		Title:       title,
		Author:      author.Name,
		Avatar:      author.Avatar,
		Signature:   author.Signature,
		Time:        ExtractTime(data),
		Description: ExtractDescription(data, title),
		MediaType:   models.MediaTypeVideo,
		URL:         videoURL,
		Format:      "mp4",
	}
	if d, ok := data.Num("duration"); ok {
		info.Duration = d
	}
	if size, ok := data.Num("size"); ok {
		info.FileSize = int64(size)
	}
	info.Thumbnail, _ = data.FirstStr("cover", "thumbnail")
	return info, nil
}

// normalizeSuccess handles the generic success envelope: unwrap the
// payload, detect the media shape, then fall back to a flat URL scan
func normalizeSuccess(o jsonval.Obj) (*models.ParsedMediaInfo, error) {
	source := unwrap(o)

	detected := DetectMedia(source)
	videoURL := detected.VideoURL
	images := detected.Images

	if videoURL == "" && len(images) == 0 {
		videoURL = fallbackURLScan(source)
	}

	author := ExtractAuthor(source)

	if videoURL != "" {
		title, _ := source.FirstStr("title", "name", "video_title")
		if title == "" {
			title = defaultTitle
		}

		info := &models.ParsedMediaInfo{
			Title:       title,
			Author:      author.Name,
			Avatar:      author.Avatar,
			Signature:   author.Signature,
			Time:        ExtractTime(source),
			Description: ExtractDescription(source, title),
			MediaType:   models.MediaTypeVideo,
			URL:         videoURL,
		}
		if d, ok := firstNum(source, "duration", "length", "video_duration"); ok {
			info.Duration = d
		}
		if size, ok := firstNum(source, "fileSize", "size", "file_size"); ok {
			info.FileSize = int64(size)
		}
		if format, ok := source.FirstStr("format", "file_format", "type"); ok {
			info.Format = format
		} else {
			info.Format = "mp4"
		}
		info.Thumbnail, _ = source.FirstStr("thumbnail", "cover", "poster", "image")
		return info, nil
	}

	if len(images) > 0 {
		title, _ := source.FirstStr("title", "name", "video_title")
		if title == "" {
			title = defaultAlbumTitle
		}

		info := &models.ParsedMediaInfo{
			Title:       title,
			Author:      author.Name,
			Avatar:      author.Avatar,
			Signature:   author.Signature,
			Time:        ExtractTime(source),
			Description: ExtractDescription(source, title),
			MediaType:   models.MediaTypeImageAlbum,
			Images:      images,
			ImageCount:  len(images),
		}
		info.Thumbnail = images[0].URL
		if info.Thumbnail == "" {
			info.Thumbnail, _ = source.FirstStr("thumbnail", "cover")
		}
		return info, nil
	}

	return nil, models.NewNormalizationError("no media content found: neither video URL nor images")
}

// unwrap descends into data or result envelopes when they are objects
func unwrap(o jsonval.Obj) jsonval.Obj {
	if data, ok := o.Obj("data"); ok {
		return data
	}
	if result, ok := o.Obj("result"); ok {
		return result
	}
	return o
}

func firstNum(o jsonval.Obj, keys ...string) (float64, bool) {
	for _, key := range keys {
		if n, ok := o.Num(key); ok {
			return n, true
		}
	}
	return 0, false
}
