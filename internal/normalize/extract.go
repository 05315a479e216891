package normalize

import (
	"time"

	"media-saver/internal/jsonval"
	"media-saver/pkg/models"
)

// Author holds the creator details extracted from a payload
type Author struct {
	Name      string
	Avatar    string
	Signature string
}

var (
	authorObjectFields = []string{"author", "creator", "user", "author_info", "user_info"}

	authorNameFields      = []string{"name", "nickname", "username", "title"}
	authorAvatarFields    = []string{"avatar", "avatar_url", "icon", "head_url"}
	authorSignatureFields = []string{"signature", "sign", "desc", "description"}

	flatNameFields      = []string{"author", "creator", "user", "username", "nickname", "name", "author_name", "user_name"}
	flatAvatarFields    = []string{"avatar", "author_avatar", "avatar_url", "icon", "head_url"}
	flatSignatureFields = []string{"signature", "sign", "desc", "description", "author_signature"}

	descriptionFields = []string{"description", "desc", "content", "text", "caption", "summary", "detail"}

	timeFields = []string{"time", "timestamp", "create_time", "created_at", "publish_time", "release_time", "date"}
)

// ExtractAuthor pulls creator details out of a payload. Nested author
// objects are preferred; flat string fields on the payload itself are
// the fallback.
func ExtractAuthor(source jsonval.Obj) Author {
	var result Author

	for _, field := range authorObjectFields {
		obj, ok := source.Obj(field)
		if !ok {
			continue
		}
		result.Name, _ = obj.FirstStr(authorNameFields...)
		result.Avatar, _ = obj.FirstStr(authorAvatarFields...)
		result.Signature, _ = obj.FirstStr(authorSignatureFields...)
		if result.Name != "" {
			return result
		}
	}

	if result.Name == "" {
		result.Name, _ = source.FirstStr(flatNameFields...)
	}
	if result.Avatar == "" {
		result.Avatar, _ = source.FirstStr(flatAvatarFields...)
	}
	if result.Signature == "" {
		result.Signature, _ = source.FirstStr(flatSignatureFields...)
	}

	return result
}

// ExtractDescription returns the first non-blank description field,
// trimmed, or the fallback title
func ExtractDescription(source jsonval.Obj, fallbackTitle string) string {
	if s, ok := source.FirstTrimmed(descriptionFields...); ok {
		return s
	}
	return fallbackTitle
}

// Date layouts attempted for string timestamps, in order
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ExtractTime pulls a publish timestamp out of a payload. Numbers below
// ten billion are treated as epoch seconds and scaled to milliseconds;
// parseable date strings become milliseconds, anything else is kept as
// raw text.
func ExtractTime(source jsonval.Obj) models.PublishTime {
	for _, field := range timeFields {
		v, ok := source.Get(field)
		if !ok {
			continue
		}

		if n, ok := jsonval.Num(v); ok {
			if n == 0 {
				continue
			}
			if n < 10_000_000_000 {
				return models.PublishTime{Millis: int64(n) * 1000}
			}
			return models.PublishTime{Millis: int64(n)}
		}

		if s, ok := jsonval.Str(v); ok && s != "" {
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return models.PublishTime{Millis: t.UnixMilli()}
				}
			}
			return models.PublishTime{Raw: s}
		}
	}

	return models.PublishTime{}
}
