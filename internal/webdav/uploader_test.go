package webdav

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"media-saver/pkg/models"
)

// fakeDAV is a minimal WebDAV endpoint recording MKCOL and PUT calls
type fakeDAV struct {
	mu      sync.Mutex
	mkcols  []string
	puts    map[string][]byte
	putFail func(path string) int
}

func newFakeDAV() *fakeDAV {
	return &fakeDAV{puts: make(map[string][]byte)}
}

func (f *fakeDAV) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case "MKCOL":
			f.mkcols = append(f.mkcols, r.URL.Path)
			w.WriteHeader(http.StatusCreated)
		case http.MethodPut:
			if f.putFail != nil {
				if status := f.putFail(r.URL.Path); status != 0 {
					w.WriteHeader(status)
					return
				}
			}
			buf := make([]byte, r.ContentLength)
			r.Body.Read(buf)
			f.puts[r.URL.Path] = buf
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func newTestUploader(t *testing.T) (*Uploader, *[]time.Duration) {
	t.Helper()
	var waits []time.Duration
	var counter int
	u := NewUploader(newTestHTTP())
	u.sleep = func(d time.Duration) { waits = append(waits, d) }
	u.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.UTC) }
	u.rand = func(int) int { counter++; return counter }
	return u, &waits
}

type fakeMetrics struct {
	retries []string
	sizes   []int64
	types   []string
}

func (f *fakeMetrics) RecordUploadRetry(reason string) {
	f.retries = append(f.retries, reason)
}

func (f *fakeMetrics) RecordUpload(mediaType string, duration time.Duration, size int64) {
	f.types = append(f.types, mediaType)
	f.sizes = append(f.sizes, size)
}

func videoInfo(url string) *models.ParsedMediaInfo {
	return &models.ParsedMediaInfo{
		Title:     "test video",
		MediaType: models.MediaTypeVideo,
		URL:       url,
		Format:    "mp4",
	}
}

func TestUploadVideoFirstAttempt(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer media.Close()

	dav := newFakeDAV()
	davServer := httptest.NewServer(dav.handler())
	defer davServer.Close()

	uploader, waits := newTestUploader(t)
	cfg := models.WebDAVConfig{URL: davServer.URL, Username: "u", Password: "p", BasePath: "media"}

	result, err := uploader.Upload(context.Background(), videoInfo(media.URL+"/v.mp4"), cfg, "2024")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if !result.Success {
		t.Error("Expected success")
	}
	if !strings.HasPrefix(result.FilePath, davServer.URL+"/media/2024/") {
		t.Errorf("Unexpected file path: %s", result.FilePath)
	}
	if !strings.HasSuffix(result.FilePath, ".mp4") {
		t.Errorf("Expected .mp4 path, got %s", result.FilePath)
	}
	if len(*waits) != 0 {
		t.Errorf("Expected no retries, got waits %v", *waits)
	}

	for path, body := range dav.puts {
		if string(body) != "video-bytes" {
			t.Errorf("Uploaded body mismatch at %s: %q", path, body)
		}
	}
}

func TestUploadVideoRetriesServerErrors(t *testing.T) {
	var attempts int
	var agents []string
	var referers []string
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		agents = append(agents, r.Header.Get("User-Agent"))
		referers = append(referers, r.Header.Get("Referer"))
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer media.Close()

	dav := newFakeDAV()
	davServer := httptest.NewServer(dav.handler())
	defer davServer.Close()

	uploader, waits := newTestUploader(t)
	metrics := &fakeMetrics{}
	uploader.SetMetrics(metrics)
	cfg := models.WebDAVConfig{URL: davServer.URL, Username: "u", Password: "p"}

	result, err := uploader.Upload(context.Background(), videoInfo(media.URL+"/v.mp4"), cfg, "")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !result.Success {
		t.Error("Expected success after retries")
	}

	if attempts != 3 {
		t.Errorf("Expected 3 download attempts, got %d", attempts)
	}

	// Both retries reported with their reason, plus the completed
	// transfer with its size
	if len(metrics.retries) != 2 || metrics.retries[0] != "server_error" || metrics.retries[1] != "server_error" {
		t.Errorf("Expected two server_error retries recorded, got %v", metrics.retries)
	}
	if len(metrics.sizes) != 1 || metrics.sizes[0] != int64(len("ok")) {
		t.Fatalf("Expected one recorded upload of %d bytes, got %v", len("ok"), metrics.sizes)
	}
	if metrics.types[0] != string(models.MediaTypeVideo) {
		t.Errorf("Expected video media type recorded, got %s", metrics.types[0])
	}

	// Exponential backoff: 1s then 2s
	if len(*waits) != 2 || (*waits)[0] != time.Second || (*waits)[1] != 2*time.Second {
		t.Errorf("Expected waits [1s 2s], got %v", *waits)
	}

	// Desktop UA first, mobile UA with Referer afterwards
	if agents[0] != "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36" {
		t.Errorf("Expected desktop UA on first attempt, got %s", agents[0])
	}
	if !strings.Contains(agents[1], "iPhone") {
		t.Errorf("Expected mobile UA on retry, got %s", agents[1])
	}
	if referers[0] != "" {
		t.Errorf("Expected no Referer on first attempt, got %s", referers[0])
	}
	if referers[1] != media.URL {
		t.Errorf("Expected Referer %s on retry, got %s", media.URL, referers[1])
	}
}

func TestUploadVideoAuthErrorFlatRetry(t *testing.T) {
	var attempts int
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer media.Close()

	dav := newFakeDAV()
	davServer := httptest.NewServer(dav.handler())
	defer davServer.Close()

	uploader, waits := newTestUploader(t)
	cfg := models.WebDAVConfig{URL: davServer.URL, Username: "u", Password: "p"}

	_, err := uploader.Upload(context.Background(), videoInfo(media.URL+"/v.mp4"), cfg, "")
	if err == nil {
		t.Fatal("Expected error")
	}

	// One flat 1s retry for the auth error, then give up
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if len(*waits) != 1 || (*waits)[0] != time.Second {
		t.Errorf("Expected single flat 1s wait, got %v", *waits)
	}

	var ue *models.UploadError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UploadError, got %T", err)
	}
	if ue.Status != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", ue.Status)
	}
	if !strings.Contains(ue.Msg, "expired") {
		t.Errorf("Expected expiry hint, got %s", ue.Msg)
	}
	if ue.Attempts != 2 {
		t.Errorf("Expected 2 attempts recorded, got %d", ue.Attempts)
	}
}

func TestUploadVideoNotFoundNoRetry(t *testing.T) {
	var attempts int
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer media.Close()

	dav := newFakeDAV()
	davServer := httptest.NewServer(dav.handler())
	defer davServer.Close()

	uploader, waits := newTestUploader(t)
	cfg := models.WebDAVConfig{URL: davServer.URL, Username: "u", Password: "p"}

	_, err := uploader.Upload(context.Background(), videoInfo(media.URL+"/v.mp4"), cfg, "")
	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected single attempt for 404, got %d", attempts)
	}
	if len(*waits) != 0 {
		t.Errorf("Expected no waits, got %v", *waits)
	}
}

func TestUploadVideoBackoffCap(t *testing.T) {
	uploader, _ := newTestUploader(t)
	uploader.maxRetries = 10

	err := &models.UploadError{Msg: "x", Status: 503}
	wait, retry := uploader.retryDelay(err, 6)
	if !retry {
		t.Fatal("Expected retry for 503")
	}
	if wait != 10*time.Second {
		t.Errorf("Expected backoff capped at 10s, got %v", wait)
	}
}

func TestUploadAlbum(t *testing.T) {
	var imageRequests int
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		imageRequests++
		if strings.Contains(r.URL.Path, "bad") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer media.Close()

	dav := newFakeDAV()
	davServer := httptest.NewServer(dav.handler())
	defer davServer.Close()

	uploader, _ := newTestUploader(t)
	cfg := models.WebDAVConfig{URL: davServer.URL, Username: "u", Password: "p"}

	info := &models.ParsedMediaInfo{
		Title:     "my album",
		MediaType: models.MediaTypeImageAlbum,
		Images: []models.ImageInfo{
			{URL: media.URL + "/1.jpg"},
			{URL: media.URL + "/bad.jpg"},
			{URL: media.URL + "/3.jpg"},
		},
	}

	result, err := uploader.Upload(context.Background(), info, cfg, "")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	// Partial image failure still counts as success
	if !result.Success {
		t.Error("Expected success with one failed image")
	}
	if result.ImagesUploaded != 2 || result.ImagesFailed != 1 {
		t.Errorf("Expected 2 uploaded / 1 failed, got %d / %d",
			result.ImagesUploaded, result.ImagesFailed)
	}
	if !strings.HasSuffix(result.FilePath, "/my_album") {
		t.Errorf("Expected album folder path, got %s", result.FilePath)
	}

	if len(dav.mkcols) != 1 || dav.mkcols[0] != "/my_album" {
		t.Errorf("Expected MKCOL for /my_album, got %v", dav.mkcols)
	}
	if len(dav.puts) != 2 {
		t.Errorf("Expected 2 image PUTs, got %d", len(dav.puts))
	}
	for path := range dav.puts {
		if !strings.HasPrefix(path, "/my_album/20240506_070809_") {
			t.Errorf("Unexpected image path: %s", path)
		}
		if !strings.HasSuffix(path, ".jpg") {
			t.Errorf("Expected .jpg image path: %s", path)
		}
	}
}

func TestUploadAlbumDeduplicatesImageNames(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer media.Close()

	dav := newFakeDAV()
	davServer := httptest.NewServer(dav.handler())
	defer davServer.Close()

	uploader, _ := newTestUploader(t)
	metrics := &fakeMetrics{}
	uploader.SetMetrics(metrics)
	// Fixed clock plus fixed random value produces identical raw names
	uploader.rand = func(int) int { return 7 }
	cfg := models.WebDAVConfig{URL: davServer.URL, Username: "u", Password: "p"}

	info := &models.ParsedMediaInfo{
		Title:     "album",
		MediaType: models.MediaTypeImageAlbum,
		Images: []models.ImageInfo{
			{URL: media.URL + "/1.jpg"},
			{URL: media.URL + "/2.jpg"},
		},
	}

	result, err := uploader.Upload(context.Background(), info, cfg, "")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.ImagesUploaded != 2 {
		t.Fatalf("Expected 2 uploaded, got %d", result.ImagesUploaded)
	}

	if len(dav.puts) != 2 {
		t.Errorf("Expected 2 distinct image paths, got %d: %v", len(dav.puts), dav.puts)
	}

	if len(metrics.sizes) != 1 || metrics.sizes[0] != int64(2*len("image-bytes")) {
		t.Fatalf("Expected recorded album size %d, got %v", 2*len("image-bytes"), metrics.sizes)
	}
	if metrics.types[0] != string(models.MediaTypeImageAlbum) {
		t.Errorf("Expected image_album media type recorded, got %s", metrics.types[0])
	}
}

func TestUploadAlbumAllImagesFail(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer media.Close()

	dav := newFakeDAV()
	davServer := httptest.NewServer(dav.handler())
	defer davServer.Close()

	uploader, _ := newTestUploader(t)
	cfg := models.WebDAVConfig{URL: davServer.URL, Username: "u", Password: "p"}

	info := &models.ParsedMediaInfo{
		Title:     "album",
		MediaType: models.MediaTypeImageAlbum,
		Images:    []models.ImageInfo{{URL: media.URL + "/1.jpg"}},
	}

	if _, err := uploader.Upload(context.Background(), info, cfg, ""); err == nil {
		t.Error("Expected error when no image uploads")
	}
}

func TestUploadNothing(t *testing.T) {
	uploader, _ := newTestUploader(t)
	info := &models.ParsedMediaInfo{MediaType: models.MediaTypeVideo}

	_, err := uploader.Upload(context.Background(), info, models.WebDAVConfig{URL: "https://dav.example.com"}, "")

	var ie *models.InputError
	if !errors.As(err, &ie) {
		t.Errorf("Expected InputError, got %T: %v", err, err)
	}
}
