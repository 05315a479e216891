// Package parser implements the gateway to user-configured third-party
// parser APIs: request construction per parser config, response
// decoding with JSON recovery, and normalization of the result.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"media-saver/internal/httpx"
	"media-saver/internal/normalize"
	"media-saver/pkg/models"
)

// DefaultTimeout bounds a single parser API request
const DefaultTimeout = 15 * time.Second

// Client is the parser API gateway
type Client struct {
	http    *httpx.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates a parser gateway using the given HTTP client
func New(httpClient *httpx.Client) *Client {
	return &Client{
		http:    httpClient,
		timeout: DefaultTimeout,
		logger:  zerolog.New(os.Stdout).With().Timestamp().Str("component", "parser").Logger(),
	}
}

// SetTimeout overrides the per-request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// SetLogger sets the logger for the gateway
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// Parse sends the source URL to the parser endpoint and normalizes the
// response into a media record
func (c *Client) Parse(ctx context.Context, sourceURL string, cfg models.ParserConfig) (*models.ParsedMediaInfo, error) {
	raw, err := c.ParseRaw(ctx, sourceURL, cfg)
	if err != nil {
		return nil, err
	}

	info, err := normalize.Normalize(raw, normalize.Options{KnownAPI: normalize.KnownAPIFor(cfg)})
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("parser", cfg.Name).
		Str("title", info.Title).
		Str("media_type", string(info.MediaType)).
		Msg("Parse succeeded")

	return info, nil
}

// ParseRaw sends the source URL to the parser endpoint and returns the
// decoded payload without normalization
func (c *Client) ParseRaw(ctx context.Context, sourceURL string, cfg models.ParserConfig) (map[string]any, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, models.NewInputError("video URL is empty")
	}
	if cfg.APIURL == "" {
		return nil, models.NewInputError("parser API configuration is invalid")
	}

	req, err := c.buildRequest(ctx, sourceURL, cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req = req.WithContext(ctx)

	c.logger.Debug().
		Str("parser", cfg.Name).
		Str("method", req.Method).
		Msg("Sending parser API request")

	resp, err := c.http.Do(req, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &models.GatewayError{Msg: "parser API request timed out", Timeout: true, Err: err}
		}
		return nil, &models.GatewayError{Msg: fmt.Sprintf("parser API request failed: %v", err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.GatewayError{Msg: "failed to read parser API response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &models.GatewayError{
			Msg:    fmt.Sprintf("parser API returned error: %s", snippet),
			Status: resp.StatusCode,
		}
	}

	if strings.TrimSpace(string(body)) == "" {
		return nil, &models.GatewayError{Msg: "parser API returned empty response", Status: resp.StatusCode}
	}

	return decodeBody(body), nil
}

// buildRequest constructs the upstream request per the parser config.
// GET carries the source URL as a query parameter with set semantics;
// POST sends it in a JSON body. Custom headers, query and body
// parameters from the config are merged in.
func (c *Client) buildRequest(ctx context.Context, sourceURL string, cfg models.ParserConfig) (*http.Request, error) {
	headers := map[string]string{
		"User-Agent": httpx.UserAgentDesktop,
	}
	for key, value := range cfg.CustomHeaders {
		headers[key] = value
	}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
		headers["X-API-Key"] = cfg.APIKey
	}

	var req *http.Request
	var err error

	if cfg.Method() == "GET" {
		u, parseErr := url.Parse(cfg.APIURL)
		if parseErr != nil {
			return nil, models.NewInputError("parser API URL is invalid: %v", parseErr)
		}

		q := u.Query()
		q.Set(cfg.ParamName(), sourceURL)
		for key, value := range cfg.CustomQueryParams {
			q.Add(key, value)
		}
		u.RawQuery = q.Encode()

		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	} else {
		payload := map[string]any{
			cfg.ParamName(): sourceURL,
		}
		for key, value := range cfg.CustomBodyParams {
			payload[key] = value
		}

		body, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return nil, fmt.Errorf("error encoding request body: %w", marshalErr)
		}

		headers["Content-Type"] = "application/json"
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, bytes.NewReader(body))
	}
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// decodeBody decodes a response body as a JSON object. Bodies with
// junk around the JSON are recovered by cutting from the first '{' to
// the last '}'; anything else is wrapped as {"text": body} so the
// normalizer can still report a useful error.
func decodeBody(body []byte) map[string]any {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err == nil {
		return raw
	}

	text := string(body)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err == nil {
			return raw
		}
	}

	return map[string]any{"text": text}
}
