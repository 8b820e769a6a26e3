package vecdemo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecdemo/internal/domain/form"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/domain/upload"
	"github.com/kailas-cloud/vecdemo/internal/transport/backend"
	healthuc "github.com/kailas-cloud/vecdemo/internal/usecase/health"
	"github.com/kailas-cloud/vecdemo/internal/usecase/preview"
)

const (
	defaultTimeout = 30 * time.Second

	fieldImage   = "image"
	fieldImageID = "image_id"
	fieldFile    = "file"
)

// Internal interfaces, replaced by mocks in tests.
type imageBackend interface {
	Upload(ctx context.Context, p *form.Payload) (upload.Response, error)
	SearchImages(ctx context.Context, p *form.Payload) (result.Images, error)
}

type knowledgeBackend interface {
	Upload(ctx context.Context, p *form.Payload) (upload.Response, error)
	SearchKnowledge(ctx context.Context, query string) (result.Knowledge, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the vecdemo SDK entry point.
type Client struct {
	images    imageBackend
	knowledge knowledgeBackend
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. At least one backend must be configured.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.imagesURL == "" && cfg.knowledgeURL == "" {
		return nil, errors.New("vecdemo: backend url required (use WithImagesBackend or WithKnowledgeBackend)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	var checkers []healthuc.BackendChecker

	if cfg.imagesURL != "" {
		b, err := newBackend(cfg, "images", cfg.imagesURL)
		if err != nil {
			return nil, err
		}
		c.images = b
		checkers = append(checkers, b)
	}
	if cfg.knowledgeURL != "" {
		b, err := newBackend(cfg, "knowledge", cfg.knowledgeURL)
		if err != nil {
			return nil, err
		}
		c.knowledge = b
		checkers = append(checkers, b)
	}
	c.healthSvc = healthuc.New(checkers...)

	return c, nil
}

func newBackend(cfg *clientConfig, name, baseURL string) (*backend.Client, error) {
	b, err := backend.New(&backend.Config{
		Name:       name,
		BaseURL:    baseURL,
		Timeout:    cfg.timeout,
		HTTPClient: cfg.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("vecdemo: %s backend: %w", name, err)
	}
	return b, nil
}

// Images returns the image-search backend service.
func (c *Client) Images() *ImageService {
	return &ImageService{backend: c.images, obs: c.obs}
}

// Knowledge returns the knowledge-base backend service.
func (c *Client) Knowledge() *KnowledgeService {
	return &KnowledgeService{backend: c.knowledge, obs: c.obs}
}

// Health checks every configured backend.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// Preview returns f as a data URL suitable for an <img> src.
// An empty File yields ErrNoFile.
func Preview(ctx context.Context, f File) (string, error) {
	return preview.FromPayload(ctx, form.New().AddFile(toFormFile(fieldImage, f)), fieldImage)
}

// ImageService talks to the image-search backend.
type ImageService struct {
	backend imageBackend
	obs     *observer
}

// Upload indexes an image under id and returns the backend's message.
func (s *ImageService) Upload(ctx context.Context, id string, img File) (msg string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("images.upload", start, err) }()

	if s.backend == nil {
		return "", ErrBackendNotConfigured
	}
	p := form.New().Add(fieldImageID, id).AddFile(toFormFile(fieldImage, img))
	resp, err := s.backend.Upload(ctx, p)
	if err != nil {
		return "", fmt.Errorf("images upload: %w", err)
	}
	return resp.Message(), nil
}

// Search finds images similar to img, best match first.
func (s *ImageService) Search(ctx context.Context, img File) (ranked []RankedImage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("images.search", start, err) }()

	if s.backend == nil {
		return nil, ErrBackendNotConfigured
	}
	res, err := s.backend.SearchImages(ctx, form.New().AddFile(toFormFile(fieldImage, img)))
	if err != nil {
		return nil, fmt.Errorf("images search: %w", err)
	}

	hits := res.Ranked()
	ranked = make([]RankedImage, len(hits))
	for i, h := range hits {
		ranked[i] = RankedImage{Rank: h.Rank(), URL: h.URL()}
	}
	return ranked, nil
}

// KnowledgeService talks to the knowledge-base backend.
type KnowledgeService struct {
	backend knowledgeBackend
	obs     *observer
}

// Upload adds a document to the knowledge base and returns the backend's message.
func (s *KnowledgeService) Upload(ctx context.Context, doc File) (msg string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("knowledge.upload", start, err) }()

	if s.backend == nil {
		return "", ErrBackendNotConfigured
	}
	resp, err := s.backend.Upload(ctx, form.New().AddFile(toFormFile(fieldFile, doc)))
	if err != nil {
		return "", fmt.Errorf("knowledge upload: %w", err)
	}
	return resp.Message(), nil
}

// Search asks the knowledge base and returns its raw JSON answer.
func (s *KnowledgeService) Search(ctx context.Context, query string) (answer json.RawMessage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("knowledge.search", start, err) }()

	if s.backend == nil {
		return nil, ErrBackendNotConfigured
	}
	res, err := s.backend.SearchKnowledge(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}
	return res.Raw(), nil
}

func toFormFile(field string, f File) form.File {
	return form.File{
		Field:       field,
		Name:        f.Name,
		ContentType: f.ContentType,
		Data:        f.Data,
	}
}
