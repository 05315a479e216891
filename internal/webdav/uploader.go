package webdav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"media-saver/internal/httpx"
	"media-saver/internal/sanitize"
	"media-saver/pkg/models"
)

// MetricsRecorder receives transfer telemetry. *monitor.Monitor
// satisfies it.
type MetricsRecorder interface {
	RecordUploadRetry(reason string)
	RecordUpload(mediaType string, duration time.Duration, size int64)
}

const (
	// MaxRetries bounds the download+upload attempts for a video
	MaxRetries = 5

	// DefaultDownloadTimeout bounds a single media download
	DefaultDownloadTimeout = 30 * time.Second

	maxBackoff = 10 * time.Second
)

// Substrings identifying transient network failures in error text
var networkErrorMarkers = []string{
	"network error", "fetch failed", "econnreset",
	"timeout", "econnrefused", "etimedout",
}

// Uploader transfers parsed media to WebDAV servers with the retry
// policy media CDNs require. It implements models.Uploader.
type Uploader struct {
	client          *Client
	http            *httpx.Client
	maxRetries      int
	downloadTimeout time.Duration
	metrics         MetricsRecorder
	logger          zerolog.Logger

	// Injected in tests
	sleep func(time.Duration)
	now   func() time.Time
	rand  func(int) int
}

// NewUploader creates an uploader using the given HTTP client
func NewUploader(httpClient *httpx.Client) *Uploader {
	return &Uploader{
		client:          NewClient(httpClient),
		http:            httpClient,
		maxRetries:      MaxRetries,
		downloadTimeout: DefaultDownloadTimeout,
		logger:          zerolog.New(os.Stdout).With().Timestamp().Str("component", "uploader").Logger(),
		sleep:           time.Sleep,
		now:             time.Now,
		rand:            rand.Intn,
	}
}

// SetDownloadTimeout overrides the per-download timeout
func (u *Uploader) SetDownloadTimeout(timeout time.Duration) {
	if timeout > 0 {
		u.downloadTimeout = timeout
	}
}

// SetMetrics attaches a telemetry recorder for retries and completed
// transfers
func (u *Uploader) SetMetrics(metrics MetricsRecorder) {
	u.metrics = metrics
}

// SetLogger sets the logger for the uploader
func (u *Uploader) SetLogger(logger zerolog.Logger) {
	u.logger = logger
	u.client.SetLogger(logger)
}

// Test verifies the WebDAV server is reachable with the given credentials
func (u *Uploader) Test(ctx context.Context, cfg models.WebDAVConfig) error {
	return u.client.Test(ctx, cfg)
}

// Upload transfers the parsed media to the WebDAV server under
// folderPath. Videos go through the retry state machine; albums create
// a folder and upload images one by one.
func (u *Uploader) Upload(ctx context.Context, info *models.ParsedMediaInfo, cfg models.WebDAVConfig, folderPath string) (*models.UploadResult, error) {
	switch {
	case info.MediaType == models.MediaTypeVideo && info.URL != "":
		return u.uploadVideo(ctx, info, cfg, folderPath)
	case info.MediaType == models.MediaTypeImageAlbum && len(info.Images) > 0:
		return u.uploadAlbum(ctx, info, cfg, folderPath)
	default:
		return nil, models.NewInputError("nothing to upload: media record has no video URL and no images")
	}
}

func (u *Uploader) uploadVideo(ctx context.Context, info *models.ParsedMediaInfo, cfg models.WebDAVConfig, folderPath string) (*models.UploadResult, error) {
	format := InferFormat(info.Format, info.URL)
	fileName := VideoFileName(info.Title, format, u.now())
	uploadPath := BuildPath(cfg, folderPath, fileName)

	var lastErr error
	attemptsUsed := 0
	start := u.now()

	for attempt := 1; attempt <= u.maxRetries; attempt++ {
		attemptsUsed = attempt
		u.logger.Info().
			Int("attempt", attempt).
			Int("max", u.maxRetries).
			Str("file", fileName).
			Msg("Video transfer attempt")

		size, err := u.transferVideo(ctx, info.URL, cfg, uploadPath, attempt)
		if err == nil {
			u.logger.Info().Int("attempt", attempt).Str("path", uploadPath).Msg("Upload succeeded")
			u.recordUpload(string(models.MediaTypeVideo), u.now().Sub(start), size)
			return &models.UploadResult{Success: true, FilePath: uploadPath}, nil
		}

		lastErr = err
		u.logger.Warn().Err(err).Int("attempt", attempt).Msg("Transfer attempt failed")

		if ctx.Err() != nil {
			break
		}

		wait, retry := u.retryDelay(err, attempt)
		if !retry {
			break
		}
		u.recordRetry(err)
		u.logger.Info().Dur("wait", wait).Msg("Waiting before retry")
		u.sleep(wait)
	}

	var ue *models.UploadError
	if errors.As(lastErr, &ue) {
		ue.Attempts = attemptsUsed
		return nil, withHint(ue)
	}
	return nil, &models.UploadError{
		Msg:      fmt.Sprintf("video upload failed after %d attempts: %v", attemptsUsed, lastErr),
		Attempts: attemptsUsed,
		Err:      lastErr,
	}
}

// transferVideo performs one download+PUT attempt and reports the bytes
// transferred
func (u *Uploader) transferVideo(ctx context.Context, videoURL string, cfg models.WebDAVConfig, uploadPath string, attempt int) (int64, error) {
	data, err := u.downloadMedia(ctx, videoURL, attempt)
	if err != nil {
		return 0, err
	}

	u.logger.Debug().Int("bytes", len(data)).Msg("Video downloaded")
	if err := u.client.Put(ctx, cfg, uploadPath, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// downloadMedia fetches a media URL. From the second attempt on, the
// mobile user agent and a Referer of the URL origin are sent because
// some CDNs refuse desktop requests without them.
func (u *Uploader) downloadMedia(ctx context.Context, mediaURL string, attempt int) ([]byte, error) {
	headers := map[string]string{
		"User-Agent":      httpx.UserAgentDesktop,
		"Accept":          "video/*,*/*;q=0.9",
		"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}
	if attempt > 1 {
		headers["User-Agent"] = httpx.UserAgentMobile
		if parsed, err := url.Parse(mediaURL); err == nil && parsed.Scheme != "" {
			headers["Referer"] = parsed.Scheme + "://" + parsed.Host
		}
	}

	ctx, cancel := context.WithTimeout(ctx, u.downloadTimeout)
	defer cancel()

	resp, err := u.http.Get(ctx, mediaURL, headers)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &models.UploadError{Msg: "media download timeout", Err: err}
		}
		return nil, &models.UploadError{Msg: fmt.Sprintf("media download failed: %v", err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.UploadError{
			Msg:    fmt.Sprintf("media download failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			Status: resp.StatusCode,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.UploadError{Msg: fmt.Sprintf("media download interrupted: %v", err), Err: err}
	}
	return data, nil
}

// retryDelay decides whether an attempt is retried and how long to
// wait first. Transient statuses and network errors back off
// exponentially; auth failures get one flat 1s retry on the first
// attempt only.
func (u *Uploader) retryDelay(err error, attempt int) (time.Duration, bool) {
	if attempt >= u.maxRetries {
		return 0, false
	}

	backoff := func() time.Duration {
		wait := time.Duration(1000*(1<<(attempt-1))) * time.Millisecond
		if wait > maxBackoff {
			wait = maxBackoff
		}
		return wait
	}

	var ue *models.UploadError
	if errors.As(err, &ue) && ue.Status != 0 {
		switch {
		case ue.Status == http.StatusForbidden || ue.Status == http.StatusUnauthorized:
			if attempt == 1 {
				return time.Second, true
			}
			return 0, false
		case ue.Status == http.StatusRequestTimeout || ue.Status == http.StatusTooManyRequests || ue.Status >= 500:
			return backoff(), true
		default:
			return 0, false
		}
	}

	text := strings.ToLower(err.Error())
	for _, marker := range networkErrorMarkers {
		if strings.Contains(text, marker) {
			return backoff(), true
		}
	}

	return 0, false
}

// retryReason classifies a retried failure for telemetry
func retryReason(err error) string {
	var ue *models.UploadError
	if errors.As(err, &ue) && ue.Status != 0 {
		switch {
		case ue.Status == http.StatusForbidden || ue.Status == http.StatusUnauthorized:
			return "auth"
		case ue.Status == http.StatusTooManyRequests:
			return "rate_limited"
		case ue.Status >= 500:
			return "server_error"
		default:
			return fmt.Sprintf("status_%d", ue.Status)
		}
	}
	return "network"
}

func (u *Uploader) recordRetry(err error) {
	if u.metrics != nil {
		u.metrics.RecordUploadRetry(retryReason(err))
	}
}

func (u *Uploader) recordUpload(mediaType string, duration time.Duration, size int64) {
	if u.metrics != nil {
		u.metrics.RecordUpload(mediaType, duration, size)
	}
}

// withHint attaches user-facing hints to auth and path errors
func withHint(err *models.UploadError) error {
	switch err.Status {
	case http.StatusForbidden:
		err.Msg += "; the media link may have expired or require login, try another link"
	case http.StatusUnauthorized:
		err.Msg += "; authentication failed, check the media link"
	}
	return err
}

func (u *Uploader) uploadAlbum(ctx context.Context, info *models.ParsedMediaInfo, cfg models.WebDAVConfig, folderPath string) (*models.UploadResult, error) {
	folderName := FolderName(info.Title)
	albumURL := BuildPath(cfg, folderPath, folderName)

	if err := u.client.MkCol(ctx, cfg, albumURL); err != nil {
		return nil, fmt.Errorf("failed to create album folder: %w", err)
	}

	u.logger.Info().
		Str("folder", albumURL).
		Int("images", len(info.Images)).
		Msg("Album folder created, uploading images")

	// Same-millisecond random names can collide within one album, so the
	// whole list is de-duplicated up front
	names := make([]string, len(info.Images))
	for i := range info.Images {
		names[i] = randomImageName(u.now(), u.rand(10000), "jpg")
	}
	names = sanitize.SanitizeBatch(names, sanitize.Options{KeepExtension: true})

	uploaded := 0
	var totalBytes int64
	start := u.now()
	for i, image := range info.Images {
		imageURL := albumURL + "/" + names[i]

		size, err := u.transferImage(ctx, image.URL, cfg, imageURL)
		if err != nil {
			u.logger.Warn().Err(err).Int("index", i+1).Str("url", image.URL).Msg("Image upload failed")
			continue
		}
		uploaded++
		totalBytes += size
	}

	result := &models.UploadResult{
		Success:        uploaded > 0,
		FilePath:       albumURL,
		ImagesUploaded: uploaded,
		ImagesFailed:   len(info.Images) - uploaded,
	}

	u.logger.Info().
		Int("uploaded", uploaded).
		Int("total", len(info.Images)).
		Msg("Album upload finished")

	if uploaded == 0 {
		return nil, &models.UploadError{Msg: "album upload failed: no image could be transferred"}
	}
	u.recordUpload(string(models.MediaTypeImageAlbum), u.now().Sub(start), totalBytes)
	return result, nil
}

// transferImage downloads one image and uploads it; single attempt,
// album flow tolerates individual failures
func (u *Uploader) transferImage(ctx context.Context, imageURL string, cfg models.WebDAVConfig, uploadURL string) (int64, error) {
	data, err := u.downloadMedia(ctx, imageURL, 1)
	if err != nil {
		return 0, err
	}
	if err := u.client.Put(ctx, cfg, uploadURL, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
