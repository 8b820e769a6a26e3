package chi

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
)

// NewStaticProxy forwards /static/* to the image backend, which serves the
// files referenced by search results.
func NewStaticProxy(target *url.URL, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Header.Del("Cookie")
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("static proxy failed", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusBadGateway, codeBadGateway, "image backend unavailable")
		},
	}
}
