package chi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/vecdemo/internal/logger"
	"github.com/kailas-cloud/vecdemo/internal/session"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "vecdemo_session"

type sessionKey struct{}

// SessionMiddleware attaches the browser's session to the request context,
// creating one and setting the cookie when the browser has none or it expired.
func SessionMiddleware(store *session.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cookieName); err == nil {
				id = c.Value
			}

			sess, created, err := store.Acquire(id)
			if err != nil {
				logpkg.FromContext(r.Context()).Error("acquire session", zap.Error(err))
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			ctx = logpkg.ContextWithLogger(ctx, logpkg.FromContext(ctx).With(zap.String("session", sess.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session attached by SessionMiddleware.
func SessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}
