// Package upload forwards admin image uploads to the ImgBB image host.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/httphdr"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured errors.Error = "image upload is not configured"

	// ErrTooLarge is returned for images over the size limit.
	ErrTooLarge errors.Error = "image too large"

	// ErrUploadFailed is returned when the image host rejects the upload.
	ErrUploadFailed errors.Error = "image upload failed"
)

// DefaultEndpoint is the ImgBB upload API.
const DefaultEndpoint = "https://api.imgbb.com/1/upload"

// DefaultMaxBytes is the largest image accepted by default.
const DefaultMaxBytes = 2 << 20

type Config struct {
	APIKey   string
	Endpoint string
	MaxBytes int64

	// HTTPClient is used for requests to the image host.  Nil means a client
	// with a 30 second timeout and a traced transport.
	HTTPClient *http.Client
}

type Client struct {
	apiKey   string
	endpoint string
	maxBytes int64
	http     *http.Client
}

func NewClient(c Config) *Client {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		apiKey:   c.APIKey,
		endpoint: c.Endpoint,
		maxBytes: c.MaxBytes,
		http:     c.HTTPClient,
	}
}

// MaxBytes returns the size limit for a single image.
func (c *Client) MaxBytes() int64 {
	return c.maxBytes
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends the image read from r and returns its public URL.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return "", ErrTooLarge
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("building form: %w", err)
	}
	if _, err = part.Write(data); err != nil {
		return "", fmt.Errorf("building form: %w", err)
	}
	if err = mw.Close(); err != nil {
		return "", fmt.Errorf("building form: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(httphdr.ContentType, mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out imgbbResponse
	if err = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: status %d: decoding response: %w", ErrUploadFailed, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success || out.Data.URL == "" {
		return "", fmt.Errorf("%w: status %d: %q", ErrUploadFailed, resp.StatusCode, out.Error.Message)
	}

	return out.Data.URL, nil
}
