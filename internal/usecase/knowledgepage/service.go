// Package knowledgepage is the controller of the knowledge-base page.
package knowledgepage

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
)

// FieldFile is the file field of the document upload form.
const FieldFile = "file"

const pageLabel = "knowledge"

// Service handles the knowledge page's upload and search forms.
type Service struct {
	page      *page.Knowledge
	backend   Backend
	presenter render.Presenter
	logger    *zap.Logger

	uploads  inflight.Guard
	searches inflight.Guard
}

// New creates the controller for p.
func New(p *page.Knowledge, backend Backend, mode feedback.Mode, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		page:      p,
		backend:   backend,
		presenter: render.NewPresenter(mode, p.Feedback, p.Results),
		logger:    logger.With(zap.String("page", pageLabel)),
	}
}

// Page returns the controlled page.
func (s *Service) Page() *page.Knowledge { return s.page }

// Upload sends the document form to the backend and surfaces its message.
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

// Search reads the search field of the submitted form and asks the backend.
// An absent field is sent as an empty query.
func (s *Service) Search(ctx context.Context, p *form.Payload) error {
	query := ""
	if p != nil {
		query, _ = p.Value(page.FieldSearch)
	}
	return s.Ask(ctx, query)
}

// Ask sends query to the backend and renders the answer as indented JSON.
func (s *Service) Ask(ctx context.Context, query string) error {
	err := inflight.Do(ctx, &s.searches,
		func(ctx context.Context) (result.Knowledge, error) {
			return s.backend.SearchKnowledge(ctx, query)
		},
		func(res result.Knowledge) error {
			var renderErr error
			s.page.Mutate(func() { renderErr = render.KnowledgeResults(s.page.SearchResults, res) })
			return renderErr
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
