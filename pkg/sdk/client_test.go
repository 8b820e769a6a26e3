package vecdemo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/vecdemo/internal/domain/form"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/domain/upload"
)

// --- Mocks ---

type mockImages struct {
	uploadFn func(ctx context.Context, p *form.Payload) (upload.Response, error)
	searchFn func(ctx context.Context, p *form.Payload) (result.Images, error)
}

func (m *mockImages) Upload(ctx context.Context, p *form.Payload) (upload.Response, error) {
	return m.uploadFn(ctx, p)
}

func (m *mockImages) SearchImages(ctx context.Context, p *form.Payload) (result.Images, error) {
	return m.searchFn(ctx, p)
}

// --- Tests ---

func TestNew_NoBackend(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error when no backend configured")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New(WithImagesBackend("localhost:5000")); err == nil {
		t.Fatal("expected error for relative backend url")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithImagesBackend("http://img").apply(cfg)
	WithKnowledgeBackend("http://kb").apply(cfg)
	WithTimeout(3 * time.Second).apply(cfg)
	if cfg.imagesURL != "http://img" || cfg.knowledgeURL != "http://kb" {
		t.Errorf("urls = %q, %q", cfg.imagesURL, cfg.knowledgeURL)
	}
	if cfg.timeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.timeout)
	}

	hc := &http.Client{}
	WithHTTPClient(hc).apply(cfg)
	if cfg.httpClient != hc {
		t.Error("expected http client to be set")
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestImages_UploadSendsIDAndFile(t *testing.T) {
	var got *form.Payload
	svc := &ImageService{backend: &mockImages{
		uploadFn: func(_ context.Context, p *form.Payload) (upload.Response, error) {
			got = p
			return upload.NewResponse("Image uploaded"), nil
		},
	}}

	msg, err := svc.Upload(context.Background(), "42", File{Name: "cat.png", Data: []byte("png")})
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Image uploaded" {
		t.Errorf("msg = %q", msg)
	}
	if id, _ := got.Value("image_id"); id != "42" {
		t.Errorf("image_id = %q", id)
	}
	if f, ok := got.File("image"); !ok || f.Name != "cat.png" {
		t.Errorf("image file = %+v", f)
	}
}

func TestImages_SearchRanks(t *testing.T) {
	svc := &ImageService{backend: &mockImages{
		searchFn: func(context.Context, *form.Payload) (result.Images, error) {
			return result.NewImages([]string{"a.png", "b.png"}), nil
		},
	}}

	ranked, err := svc.Search(context.Background(), File{Name: "q.png"})
	if err != nil {
		t.Fatal(err)
	}
	want := []RankedImage{{1, "a.png"}, {2, "b.png"}}
	if len(ranked) != len(want) {
		t.Fatalf("ranked = %v", ranked)
	}
	for i := range want {
		if ranked[i] != want[i] {
			t.Errorf("ranked[%d] = %v, want %v", i, ranked[i], want[i])
		}
	}
}

func TestServices_NotConfigured(t *testing.T) {
	c := &Client{}
	if _, err := c.Images().Search(context.Background(), File{}); !errors.Is(err, ErrBackendNotConfigured) {
		t.Errorf("images: got %v", err)
	}
	if _, err := c.Knowledge().Search(context.Background(), "q"); !errors.Is(err, ErrBackendNotConfigured) {
		t.Errorf("knowledge: got %v", err)
	}
}

func TestKnowledge_SearchOverHTTP(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"bar"}`))
	}))
	defer srv.Close()

	c, err := New(WithKnowledgeBackend(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	answer, err := c.Knowledge().Search(context.Background(), "foo")
	if err != nil {
		t.Fatal(err)
	}
	if body != `{"search":"foo"}` {
		t.Errorf("request body = %s", body)
	}
	if string(answer) != `{"answer":"bar"}` {
		t.Errorf("answer = %s", answer)
	}
}

func TestKnowledge_StatusErrorOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"no documents"}`))
	}))
	defer srv.Close()

	c, err := New(WithKnowledgeBackend(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Knowledge().Upload(context.Background(), File{Name: "a.md", Data: []byte("# a")})
	if !errors.Is(err, ErrBackendStatus) {
		t.Fatalf("expected ErrBackendStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "no documents") {
		t.Errorf("detail missing from %q", err)
	}
}

func TestHealth_OnlyConfiguredBackends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(WithImagesBackend(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	h := c.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("status = %q", h.Status)
	}
	if len(h.Checks) != 1 || h.Checks["images"] != "ok" {
		t.Errorf("checks = %v", h.Checks)
	}
}

func TestPreview(t *testing.T) {
	url, err := Preview(context.Background(), File{Name: "cat.png", Data: []byte("png")})
	if err != nil {
		t.Fatal(err)
	}
	if url != "data:image/png;base64,cG5n" {
		t.Errorf("url = %q", url)
	}

	if _, err := Preview(context.Background(), File{}); !errors.Is(err, ErrNoFile) {
		t.Errorf("empty file: got %v", err)
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("images.search", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("images.search", time.Now(), errors.New("fail"))

	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("images.search", "ok")); got != 1 {
		t.Errorf("ok count = %v", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("images.search", "error")); got != 1 {
		t.Errorf("error count = %v", got)
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second observer: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("expected the registered counter to be reused")
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil)
	obs.observe("test.op", time.Now(), errors.New("test error"))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrTransport, "transport_error"},
		{ErrBackendStatus, "status_error"},
		{ErrMalformedResponse, "malformed"},
		{ErrBackendNotConfigured, "not_configured"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
