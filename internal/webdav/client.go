// Package webdav implements the upload gateway: a minimal WebDAV client
// (PROPFIND, MKCOL, PUT with Basic auth) and the media transfer flows
// with their retry policy.
package webdav

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"media-saver/internal/httpx"
	"media-saver/pkg/models"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:">
  <D:prop>
    <D:resourcetype/>
  </D:prop>
</D:propfind>`

// Client performs raw WebDAV operations against a configured server
type Client struct {
	http   *httpx.Client
	logger zerolog.Logger
}

// NewClient creates a WebDAV client using the given HTTP client
func NewClient(httpClient *httpx.Client) *Client {
	return &Client{
		http:   httpClient,
		logger: zerolog.New(os.Stdout).With().Timestamp().Str("component", "webdav").Logger(),
	}
}

// SetLogger sets the logger for the client
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

func basicAuth(cfg models.WebDAVConfig) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Username+":"+cfg.Password))
}

// Test verifies connectivity with a PROPFIND of the server root at
// Depth 0. Any 2xx status or 207 Multi-Status passes.
func (c *Client) Test(ctx context.Context, cfg models.WebDAVConfig) error {
	if cfg.URL == "" || cfg.Username == "" {
		return models.NewInputError("WebDAV connection parameters are missing")
	}

	req, err := http.NewRequestWithContext(ctx, "PROPFIND", cfg.URL, strings.NewReader(propfindBody))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	headers := map[string]string{
		"Authorization": basicAuth(cfg),
		"Depth":         "0",
		"Content-Type":  "application/xml",
	}

	resp, err := c.http.Do(req, headers)
	if err != nil {
		return &models.UploadError{Msg: fmt.Sprintf("WebDAV connection failed: %v", err), Err: err}
	}
	defer resp.Body.Close()

	if (resp.StatusCode >= 200 && resp.StatusCode < 300) || resp.StatusCode == http.StatusMultiStatus {
		c.logger.Info().Str("server", cfg.Name).Msg("WebDAV connection test succeeded")
		return nil
	}

	return &models.UploadError{
		Msg:    fmt.Sprintf("WebDAV connection failed: %d", resp.StatusCode),
		Status: resp.StatusCode,
	}
}

// MkCol creates a collection. 201 Created and 405 Method Not Allowed
// (collection already exists) both count as success.
func (c *Client) MkCol(ctx context.Context, cfg models.WebDAVConfig, collectionURL string) error {
	req, err := http.NewRequestWithContext(ctx, "MKCOL", collectionURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	headers := map[string]string{
		"Authorization": basicAuth(cfg),
		"Content-Type":  "application/xml",
	}

	resp, err := c.http.Do(req, headers)
	if err != nil {
		return &models.UploadError{Msg: fmt.Sprintf("failed to create folder: %v", err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusMethodNotAllowed {
		return nil
	}

	return &models.UploadError{
		Msg:    fmt.Sprintf("failed to create folder: %d", resp.StatusCode),
		Status: resp.StatusCode,
	}
}

// Put uploads a file body. A 404 response gets a path-configuration
// hint since it usually means the base path does not exist.
func (c *Client) Put(ctx context.Context, cfg models.WebDAVConfig, fileURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fileURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	headers := map[string]string{
		"Authorization":  basicAuth(cfg),
		"Content-Type":   "application/octet-stream",
		"Content-Length": strconv.Itoa(len(data)),
	}

	resp, err := c.http.Do(req, headers)
	if err != nil {
		return &models.UploadError{Msg: fmt.Sprintf("upload failed: %v", err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return &models.UploadError{
			Msg:    fmt.Sprintf("upload path not found (404): %s, check the WebDAV server address and path configuration", fileURL),
			Status: resp.StatusCode,
		}
	}

	return &models.UploadError{
		Msg:    fmt.Sprintf("upload failed: %d", resp.StatusCode),
		Status: resp.StatusCode,
	}
}

// BuildPath joins the server URL, configured base path, folder path and
// file name into a full upload URL. Each segment has surrounding
// slashes trimmed; empty segments are skipped.
func BuildPath(cfg models.WebDAVConfig, folderPath, fileName string) string {
	fullPath := strings.TrimRight(cfg.URL, "/")

	if cfg.BasePath != "" {
		if normalized := strings.Trim(cfg.BasePath, "/"); normalized != "" {
			fullPath += "/" + normalized
		}
	}

	if folderPath != "" {
		if normalized := strings.Trim(folderPath, "/"); normalized != "" {
			fullPath += "/" + normalized
		}
	}

	return fullPath + "/" + fileName
}
