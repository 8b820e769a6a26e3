package vecdemo

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	imagesURL    string
	knowledgeURL string

	timeout    time.Duration
	httpClient *http.Client

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithImagesBackend sets the base URL of the image-search backend.
func WithImagesBackend(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.imagesURL = baseURL
	})
}

// WithKnowledgeBackend sets the base URL of the knowledge-base backend.
func WithKnowledgeBackend(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.knowledgeURL = baseURL
	})
}

// WithTimeout bounds every backend request. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithHTTPClient replaces the HTTP client used for backend requests.
// The client's own timeout applies; WithTimeout is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
