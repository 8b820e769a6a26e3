package chi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/vecdemo/internal/domain/feedback"
	"github.com/kailas-cloud/vecdemo/internal/session"
	"github.com/kailas-cloud/vecdemo/internal/transport/backend"
	healthuc "github.com/kailas-cloud/vecdemo/internal/usecase/health"
)

// --- Fake backend ---

type fakeBackend struct {
	mu          sync.Mutex
	uploadCode  int
	uploadBody  string
	searchBody  string
	lastSearch  []byte
	lastCT      string
	uploadNames []string
	healthCode  int
	staticPaths []string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		code := f.healthCode
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/static/"):
		f.staticPaths = append(f.staticPaths, r.URL.Path)
		if r.Header.Get("Cookie") != "" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	case r.URL.Path == "/upload":
		f.uploadNames = partNames(r)
		code := f.uploadCode
		if code == 0 {
			code = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, f.uploadBody)
	case r.URL.Path == "/search":
		f.lastCT = r.Header.Get("Content-Type")
		f.lastSearch, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, f.searchBody)
	default:
		http.NotFound(w, r)
	}
}

// partNames lists the form names of a multipart request in wire order.
func partNames(r *http.Request) []string {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil
	}
	var names []string
	for {
		part, err := mr.NextPart()
		if err != nil {
			return names
		}
		names = append(names, part.FormName())
		_ = part.Close()
	}
}

// --- Helpers ---

type testEnv struct {
	frontend *httptest.Server
	images   *fakeBackend
	kb       *fakeBackend
	client   *http.Client
}

func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()

	env := &testEnv{
		images: &fakeBackend{uploadBody: `{"message":"ok"}`, searchBody: `{"image_urls":[]}`},
		kb:     &fakeBackend{uploadBody: `{"message":"ok"}`, searchBody: `{}`},
	}
	imagesSrv := httptest.NewServer(env.images)
	t.Cleanup(imagesSrv.Close)
	kbSrv := httptest.NewServer(env.kb)
	t.Cleanup(kbSrv.Close)

	imagesClient, err := backend.New(&backend.Config{Name: "images", BaseURL: imagesSrv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	kbClient, err := backend.New(&backend.Config{Name: "knowledge", BaseURL: kbSrv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	store := session.NewStore(time.Hour,
		session.NewFactory(imagesClient, kbClient, feedback.Alert, feedback.Inline, nil), nil)
	srv := NewServer(store, healthuc.New(imagesClient, kbClient), Options{
		MaxUploadBytes: maxUpload,
		Static:         NewStaticProxy(imagesClient.BaseURL(), nil),
	}, nil)

	r := chi.NewRouter()
	srv.Routes(r)
	env.frontend = httptest.NewServer(r)
	t.Cleanup(env.frontend.Close)

	jar, _ := cookiejar.New(nil)
	env.client = &http.Client{Jar: jar}
	return env
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.frontend.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) postMultipart(t *testing.T, path string, fields map[string]string, fileField, fileName string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if fileField != "" {
		fw, _ := mw.CreateFormFile(fileField, fileName)
		_, _ = fw.Write(data)
	}
	_ = mw.Close()

	resp, err := e.client.Post(e.frontend.URL+path, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) postForm(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.frontend.URL+path, values)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func parsePage(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

// --- Tests ---

func TestImagesPage_SetsSessionCookie(t *testing.T) {
	env := newTestEnv(t, 0)

	resp := env.get(t, "/images")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == DefaultCookieName && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("session cookie not set")
	}
	doc := parsePage(t, resp)
	if doc.Find("#searchForm").Length() != 1 {
		t.Error("image page not served")
	}
}

func TestImagesSearch_RendersRankedResults(t *testing.T) {
	env := newTestEnv(t, 0)
	env.images.searchBody = `{"image_urls":["/static/a.png","/static/b.png"]}`

	resp := env.postMultipart(t, "/images/search", nil, "image", "cat.png", []byte("\x89PNG"))
	if resp.Request.URL.Path != "/images" {
		t.Fatalf("not redirected to the page, ended at %s", resp.Request.URL.Path)
	}

	doc := parsePage(t, resp)
	containers := doc.Find("#searchResults .image-container")
	if containers.Length() != 2 {
		t.Fatalf("expected 2 containers, got %d", containers.Length())
	}
	containers.Each(func(i int, c *goquery.Selection) {
		wantRank := []string{"Rank 1", "Rank 2"}[i]
		wantSrc := []string{"/static/a.png", "/static/b.png"}[i]
		if got := c.Find("p").Text(); got != wantRank {
			t.Errorf("container %d text = %q", i, got)
		}
		if src, _ := c.Find("img").Attr("src"); src != wantSrc {
			t.Errorf("container %d src = %q", i, src)
		}
	})
}

func TestSubmit_AnswersSeeOther(t *testing.T) {
	env := newTestEnv(t, 0)
	env.client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp := env.postForm(t, "/kb/search", url.Values{"search": {"foo"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/kb" {
		t.Errorf("location = %q", loc)
	}
}

func TestKnowledgeSearch_SendsExactBody(t *testing.T) {
	env := newTestEnv(t, 0)
	env.kb.searchBody = `{"answer":"bar","sources":[1]}`

	doc := parsePage(t, env.postForm(t, "/kb/search", url.Values{"search": {"foo"}}))

	if got := string(env.kb.lastSearch); got != `{"search":"foo"}` {
		t.Errorf("body = %s", got)
	}
	if env.kb.lastCT != "application/json" {
		t.Errorf("content type = %q", env.kb.lastCT)
	}
	want := "{\n  \"answer\": \"bar\",\n  \"sources\": [\n    1\n  ]\n}"
	if got := doc.Find("#search-results").Text(); got != want {
		t.Errorf("search-results:\n%s", got)
	}
}

func TestImagesUpload_AlertIsOneShot(t *testing.T) {
	env := newTestEnv(t, 0)

	doc := parsePage(t, env.postMultipart(t, "/images/upload",
		map[string]string{"image_id": "7"}, "image", "cat.png", []byte("\x89PNG")))

	dialog := doc.Find("#feedback")
	if _, open := dialog.Attr("open"); !open {
		t.Error("alert not shown after upload")
	}
	if got := dialog.Find(".message").Text(); got != "ok" {
		t.Errorf("alert message = %q", got)
	}

	again := parsePage(t, env.get(t, "/images"))
	if _, open := again.Find("#feedback").Attr("open"); open {
		t.Error("alert shown twice")
	}
}

func TestImagesUpload_KeepsFieldOrder(t *testing.T) {
	env := newTestEnv(t, 0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("zeta", "z")
	_ = mw.WriteField("alpha", "a")
	_ = mw.WriteField("image_id", "7")
	fw, _ := mw.CreateFormFile("image", "cat.png")
	_, _ = fw.Write([]byte("\x89PNG"))
	_ = mw.Close()

	resp, err := env.client.Post(env.frontend.URL+"/images/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	_ = parsePage(t, resp)

	env.images.mu.Lock()
	defer env.images.mu.Unlock()
	want := []string{"zeta", "alpha", "image_id", "image"}
	if strings.Join(env.images.uploadNames, ",") != strings.Join(want, ",") {
		t.Errorf("backend saw parts %v, want %v", env.images.uploadNames, want)
	}
}

func TestKnowledgeUpload_FailureLeavesPage(t *testing.T) {
	env := newTestEnv(t, 0)
	env.kb.uploadCode = http.StatusInternalServerError
	env.kb.uploadBody = `{"detail":"disk full"}`

	doc := parsePage(t, env.postMultipart(t, "/kb/upload", nil, "file", "notes.md", []byte("# notes")))

	if got := doc.Find("#results").Text(); got != "" {
		t.Errorf("results = %q, want empty", got)
	}
	if _, open := doc.Find("#feedback").Attr("open"); open {
		t.Error("feedback shown for a failed upload")
	}
}

func TestImagesPreview_SetsDataURL(t *testing.T) {
	env := newTestEnv(t, 0)

	doc := parsePage(t, env.postMultipart(t, "/images/preview", nil, "image", "cat.png", []byte("\x89PNG\r\n\x1a\n")))

	src, _ := doc.Find("#imagePreview").Attr("src")
	if !strings.HasPrefix(src, "data:image/png;base64,") {
		t.Errorf("preview src = %q", src)
	}
}

func TestSessions_AreIsolated(t *testing.T) {
	env := newTestEnv(t, 0)
	env.kb.searchBody = `"mine"`
	_ = parsePage(t, env.postForm(t, "/kb/search", url.Values{"search": {"foo"}}))

	other := &http.Client{}
	resp, err := other.Get(env.frontend.URL + "/kb")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := parsePage(t, resp).Find("#search-results").Text(); got != "" {
		t.Errorf("other session sees %q", got)
	}
}

func TestSubmit_TooLarge(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp := env.postMultipart(t, "/images/search", nil, "image", "big.png", bytes.Repeat([]byte("x"), 4096))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != codePayloadTooLarge {
		t.Errorf("code = %q", body.Code)
	}
}

func TestStatic_ProxiedWithoutCookies(t *testing.T) {
	env := newTestEnv(t, 0)
	_ = env.get(t, "/images") // obtain a session cookie

	resp := env.get(t, "/static/images/a.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "PNGDATA" {
		t.Errorf("body = %q", data)
	}
	if len(env.images.staticPaths) != 1 || env.images.staticPaths[0] != "/static/images/a.png" {
		t.Errorf("backend saw %v", env.images.staticPaths)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		kbCode     int
		wantStatus int
		wantBody   string
	}{
		{"all healthy", http.StatusOK, http.StatusOK, "ok"},
		{"knowledge failing", http.StatusInternalServerError, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 0)
			env.kb.healthCode = tt.kbCode

			resp := env.get(t, "/health")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var body healthResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("status field = %q", body.Status)
			}
			if body.Checks["images"] != "ok" {
				t.Errorf("images check = %q", body.Checks["images"])
			}
		})
	}
}

func TestHealth_NoSessionCookie(t *testing.T) {
	env := newTestEnv(t, 0)
	resp := env.get(t, "/health")
	if len(resp.Cookies()) != 0 {
		t.Error("health endpoint must not create sessions")
	}
}
