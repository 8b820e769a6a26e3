// Package backend is the HTTP client for the demo backends' /upload and /search contract.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/domain/form"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/domain/upload"
	"github.com/kailas-cloud/vecdemo/internal/metrics"
)

const (
	// EndpointUpload is the upload endpoint shared by both pages.
	EndpointUpload = "/upload"
	// EndpointSearch is the search endpoint; its body format depends on the page.
	EndpointSearch = "/search"

	maxResponseBytes = 16 << 20
	maxDetailLen     = 512
)

// Client talks to one demo backend.
type Client struct {
	name    string
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

// Config holds the backend client settings.
type Config struct {
	Name       string // metrics label, e.g. "images" or "knowledge"
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; Timeout is ignored when set
	Logger     *zap.Logger
}

// New creates a backend client.
func New(cfg *Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Name
	if name == "" {
		name = u.Host
	}

	return &Client{name: name, baseURL: u, http: hc, logger: logger}, nil
}

// Name returns the backend label.
func (c *Client) Name() string { return c.name }

// BaseURL returns a copy of the backend base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Upload posts the form as multipart data to /upload and validates {message}.
func (c *Client) Upload(ctx context.Context, p *form.Payload) (upload.Response, error) {
	body, contentType, err := encodeMultipart(p)
	if err != nil {
		return upload.Response{}, err
	}

	raw, err := c.post(ctx, EndpointUpload, contentType, body)
	if err != nil {
		return upload.Response{}, err
	}

	obj, err := decodeObject(EndpointUpload, raw)
	if err != nil {
		c.observeMalformed(EndpointUpload)
		return upload.Response{}, err
	}
	msgRaw, ok := obj["message"]
	if !ok || isNull(msgRaw) {
		c.observeMalformed(EndpointUpload)
		return upload.Response{}, domain.NewMalformed(EndpointUpload, "message", "is missing")
	}
	var msg string
	if err := json.Unmarshal(msgRaw, &msg); err != nil {
		c.observeMalformed(EndpointUpload)
		return upload.Response{}, domain.NewMalformed(EndpointUpload, "message", "is not a string")
	}

	c.observeOK(EndpointUpload)
	return upload.NewResponse(msg), nil
}

// SearchImages posts the form as multipart data to /search and validates {image_urls}.
func (c *Client) SearchImages(ctx context.Context, p *form.Payload) (result.Images, error) {
	body, contentType, err := encodeMultipart(p)
	if err != nil {
		return result.Images{}, err
	}

	raw, err := c.post(ctx, EndpointSearch, contentType, body)
	if err != nil {
		return result.Images{}, err
	}

	obj, err := decodeObject(EndpointSearch, raw)
	if err != nil {
		c.observeMalformed(EndpointSearch)
		return result.Images{}, err
	}
	urlsRaw, ok := obj["image_urls"]
	if !ok || isNull(urlsRaw) {
		c.observeMalformed(EndpointSearch)
		return result.Images{}, domain.NewMalformed(EndpointSearch, "image_urls", "is missing")
	}
	var urls []string
	if err := json.Unmarshal(urlsRaw, &urls); err != nil {
		c.observeMalformed(EndpointSearch)
		return result.Images{}, domain.NewMalformed(EndpointSearch, "image_urls", "is not a list of strings")
	}

	c.observeOK(EndpointSearch)
	return result.NewImages(urls), nil
}

// SearchKnowledge posts {"search": query} as JSON to /search. Any valid JSON answer is accepted.
func (c *Client) SearchKnowledge(ctx context.Context, query string) (result.Knowledge, error) {
	body, err := encodeSearchQuery(query)
	if err != nil {
		return result.Knowledge{}, err
	}

	raw, err := c.post(ctx, EndpointSearch, "application/json", body)
	if err != nil {
		return result.Knowledge{}, err
	}

	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		c.observeMalformed(EndpointSearch)
		return result.Knowledge{}, domain.NewMalformed(EndpointSearch, "", "body is not JSON")
	}

	c.observeOK(EndpointSearch)
	return result.NewKnowledge(json.RawMessage(trimmed)), nil
}

// HealthCheck verifies that the backend answers on its index route.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL("/"), http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health %s: %w: %w", c.name, domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode >= http.StatusInternalServerError {
		return domain.NewStatusError("/", resp.StatusCode, "")
	}
	return nil
}

// post sends the body and returns the raw response body of a 2xx answer.
func (c *Client) post(ctx context.Context, endpoint, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(c.name, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(c.name, endpoint, "transport_error").Inc()
		return nil, fmt.Errorf("post %s: %w: %w", endpoint, domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(c.name, endpoint, "transport_error").Inc()
		return nil, fmt.Errorf("read %s response: %w: %w", endpoint, domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.BackendRequestsTotal.WithLabelValues(c.name, endpoint, "status_error").Inc()
		c.logger.Debug("backend error status",
			zap.String("backend", c.name),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return nil, domain.NewStatusError(endpoint, resp.StatusCode, extractDetail(raw))
	}
	return raw, nil
}

func (c *Client) endpointURL(endpoint string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + endpoint
	return u.String()
}

func (c *Client) observeOK(endpoint string) {
	metrics.BackendRequestsTotal.WithLabelValues(c.name, endpoint, "ok").Inc()
}

func (c *Client) observeMalformed(endpoint string) {
	metrics.BackendRequestsTotal.WithLabelValues(c.name, endpoint, "malformed").Inc()
}

// encodeSearchQuery produces exactly {"search":"..."} without HTML escaping.
func encodeSearchQuery(query string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Search string `json:"search"`
	}{Search: query}); err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes every field and file of p as multipart/form-data.
func encodeMultipart(p *form.Payload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if p != nil {
		for _, f := range p.Fields() {
			if err := w.WriteField(f.Name, f.Value); err != nil {
				return nil, "", fmt.Errorf("write field %q: %w", f.Name, err)
			}
		}
		for _, f := range p.Files() {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.Name)))
			ct := f.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			h.Set("Content-Type", ct)

			part, err := w.CreatePart(h)
			if err != nil {
				return nil, "", fmt.Errorf("create part %q: %w", f.Field, err)
			}
			if _, err := part.Write(f.Data); err != nil {
				return nil, "", fmt.Errorf("write part %q: %w", f.Field, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func decodeObject(endpoint string, raw []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || len(bytes.TrimSpace(raw)) == 0 {
			return nil, domain.NewMalformed(endpoint, "", "body is not JSON")
		}
		return nil, domain.NewMalformed(endpoint, "", "body is not a JSON object")
	}
	if obj == nil {
		return nil, domain.NewMalformed(endpoint, "", "body is not a JSON object")
	}
	return obj, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// extractDetail extracts the "detail" field of a FastAPI error body, falling back to the raw text.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Detail) > 0 {
		var s string
		if json.Unmarshal(parsed.Detail, &s) == nil {
			return truncate(s)
		}
		return truncate(string(parsed.Detail))
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	n := maxDetailLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
