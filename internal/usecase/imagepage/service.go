// Package imagepage is the controller of the image-search page.
package imagepage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/domain/feedback"
	"github.com/kailas-cloud/vecdemo/internal/domain/form"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/domain/upload"
	"github.com/kailas-cloud/vecdemo/internal/metrics"
	"github.com/kailas-cloud/vecdemo/internal/page"
	"github.com/kailas-cloud/vecdemo/internal/render"
	"github.com/kailas-cloud/vecdemo/internal/usecase/inflight"
	"github.com/kailas-cloud/vecdemo/internal/usecase/preview"
)

// FieldImage is the file field of the preview, upload and search forms.
const FieldImage = "image"

const pageLabel = "images"

// Service handles the image page's preview, upload and search forms.
// Each operation kind cancels its own previous in-flight request.
type Service struct {
	page      *page.Images
	backend   Backend
	presenter render.Presenter
	logger    *zap.Logger

	previews inflight.Guard
	uploads  inflight.Guard
	searches inflight.Guard
}

// New creates the controller for p.
func New(p *page.Images, backend Backend, mode feedback.Mode, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		page:      p,
		backend:   backend,
		presenter: render.NewPresenter(mode, p.Feedback, p.Message),
		logger:    logger.With(zap.String("page", pageLabel)),
	}
}

// Page returns the controlled page.
func (s *Service) Page() *page.Images { return s.page }

// Preview shows the file selected in the image field as a data URL.
func (s *Service) Preview(ctx context.Context, p *form.Payload) error {
	err := inflight.Do(ctx, &s.previews,
		func(ctx context.Context) (string, error) {
			return preview.FromPayload(ctx, p, FieldImage)
		},
		func(src string) error {
			s.page.Mutate(func() { render.Preview(s.page.Preview, src) })
			return nil
		},
	)
	return s.finish("preview", err)
}

// Upload sends the upload form to the backend and surfaces its message.
func (s *Service) Upload(ctx context.Context, p *form.Payload) error {
	err := inflight.Do(ctx, &s.uploads,
		func(ctx context.Context) (upload.Response, error) {
			return s.backend.Upload(ctx, p)
		},
		func(resp upload.Response) error {
			s.page.Mutate(func() { s.presenter.Present(resp.Message()) })
			return nil
		},
	)
	return s.finish("upload", err)
}

// Search sends the search form to the backend and renders the ranked images.
func (s *Service) Search(ctx context.Context, p *form.Payload) error {
	err := inflight.Do(ctx, &s.searches,
		func(ctx context.Context) (result.Images, error) {
			return s.backend.SearchImages(ctx, p)
		},
		func(res result.Images) error {
			s.page.Mutate(func() { render.ImageResults(s.page.Results, res) })
			s.logger.Debug("search rendered", zap.Int("results", len(res.URLs())))
			return nil
		},
	)
	return s.finish("search", err)
}

// finish logs a failed operation. The page is never touched on failure.
func (s *Service) finish(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrSuperseded) {
		metrics.SupersededTotal.WithLabelValues(pageLabel, op).Inc()
		s.logger.Debug("response dropped", zap.String("op", op), zap.Error(err))
	} else {
		s.logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
