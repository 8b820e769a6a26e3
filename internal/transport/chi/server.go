package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecdemo/internal/domain/form"
	logpkg "github.com/kailas-cloud/vecdemo/internal/logger"
	"github.com/kailas-cloud/vecdemo/internal/session"
	healthuc "github.com/kailas-cloud/vecdemo/internal/usecase/health"
)

const (
	pathImages    = "/images"
	pathKnowledge = "/kb"

	defaultMaxUploadBytes = 32 << 20
)

// Error codes of JSON error responses.
const (
	codeBadRequest      = "bad_request"
	codePayloadTooLarge = "payload_too_large"
	codeBadGateway      = "bad_gateway"
	codeInternalError   = "internal_error"
)

// operation is a page controller action on a submitted form.
type operation func(ctx context.Context, p *form.Payload) error

// renderer is a page document that can be served.
type renderer interface {
	Render() (string, error)
}

// Options holds the frontend server settings.
type Options struct {
	CookieName     string
	MaxUploadBytes int64
	// Static serves /static/*; nil leaves the route unmounted.
	Static http.Handler
}

// Server serves the two demo pages and routes their forms to the page controllers.
type Server struct {
	sessions *session.Store
	health   *healthuc.Service
	opts     Options
	logger   *zap.Logger
}

// NewServer creates the frontend server.
func NewServer(sessions *session.Store, health *healthuc.Service, opts Options, logger *zap.Logger) *Server {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{sessions: sessions, health: health, opts: opts, logger: logger}
}

// Routes registers every frontend route on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	if s.opts.Static != nil {
		r.Handle("/static/*", s.opts.Static)
	}

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(s.sessions, s.opts.CookieName))

		r.Get("/", s.ImagesPage)
		r.Get(pathImages, s.ImagesPage)
		r.Post(pathImages+"/preview", s.ImagesPreview)
		r.Post(pathImages+"/upload", s.ImagesUpload)
		r.Post(pathImages+"/search", s.ImagesSearch)

		r.Get(pathKnowledge, s.KnowledgePage)
		r.Post(pathKnowledge+"/upload", s.KnowledgeUpload)
		r.Post(pathKnowledge+"/search", s.KnowledgeSearch)
	})
}

// ImagesPage handles GET / and GET /images.
func (s *Server) ImagesPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, SessionFromContext(r.Context()).Images.Page())
}

// ImagesPreview handles POST /images/preview.
func (s *Server) ImagesPreview(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, pathImages, SessionFromContext(r.Context()).Images.Preview)
}

// ImagesUpload handles POST /images/upload.
func (s *Server) ImagesUpload(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, pathImages, SessionFromContext(r.Context()).Images.Upload)
}

// ImagesSearch handles POST /images/search.
func (s *Server) ImagesSearch(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, pathImages, SessionFromContext(r.Context()).Images.Search)
}

// KnowledgePage handles GET /kb.
func (s *Server) KnowledgePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, SessionFromContext(r.Context()).Knowledge.Page())
}

// KnowledgeUpload handles POST /kb/upload.
func (s *Server) KnowledgeUpload(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, pathKnowledge, SessionFromContext(r.Context()).Knowledge.Upload)
}

// KnowledgeSearch handles POST /kb/search.
func (s *Server) KnowledgeSearch(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, pathKnowledge, SessionFromContext(r.Context()).Knowledge.Search)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// submit runs op on the submitted form and redirects back to the page.
// Controller failures leave the page as it was, so the redirect happens either way.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, pagePath string, op operation) {
	p, err := s.readForm(w, r)
	if err != nil {
		s.handleFormError(w, r, err)
		return
	}

	if err := op(r.Context(), p); err != nil {
		logpkg.FromContext(r.Context()).Debug("form not applied", zap.Error(err))
	}

	http.Redirect(w, r, pagePath, http.StatusSeeOther)
}

// readForm reads a multipart or urlencoded body into a payload, keeping submission order.
func (s *Server) readForm(w http.ResponseWriter, r *http.Request) (*form.Payload, error) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		return nil, &http.MaxBytesError{Limit: s.opts.MaxUploadBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		mr, err := r.MultipartReader()
		if err != nil {
			return nil, err
		}
		return form.ReadMultipart(mr)
	}
	if mediaType != "application/x-www-form-urlencoded" {
		return form.New(), nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read form body: %w", err)
	}
	return form.ParseQuery(string(body))
}

func (s *Server) handleFormError(w http.ResponseWriter, r *http.Request, err error) {
	logpkg.FromContext(r.Context()).Warn("unreadable form", zap.Error(err))

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "form exceeds the upload limit")
		return
	}
	writeError(w, http.StatusBadRequest, codeBadRequest, "invalid form body")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, p renderer) {
	html, err := p.Render()
	if err != nil {
		s.logger.Error("render page", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
