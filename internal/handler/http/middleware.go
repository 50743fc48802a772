package http

import (
	"context"
	"net/http"
	"time"

	"github.com/as10896/saga-demo/internal/domain"
	"github.com/as10896/saga-demo/internal/service"
	"github.com/as10896/saga-demo/pkg/httputil"
	"github.com/as10896/saga-demo/pkg/logger"
)

type sessionContextKey struct{}

// SessionFromContext returns the session resolved by SessionMiddleware.
func SessionFromContext(ctx context.Context) *domain.Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*domain.Session)
	return sess
}

func withSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionMiddleware resolves the visitor's session from the session cookie,
// creating a fresh one when the cookie is absent or points at an expired
// session. The cookie is set or refreshed on every response so the sliding
// expiration window stays aligned with the store's.
func SessionMiddleware(store *service.SessionStore, cookieName string, timeout time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookieID string
			if c, err := r.Cookie(cookieName); err == nil {
				cookieID = c.Value
			}

			sess, err := store.GetOrCreate(r.Context(), cookieID)
			if err != nil {
				httputil.WriteError(w, r, err, logger.FromContext(r.Context()))
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    sess.ID,
				Path:     "/",
				MaxAge:   int(timeout / time.Second),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := withSession(r.Context(), sess)
			ctx = logger.WithSessionID(ctx, sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORS allows browser clients on other origins to drive the demo API.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ContentTypeJSON rejects non-JSON bodies on mutating requests.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if ct != "" && ct != "application/json" && ct != "application/json; charset=utf-8" {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
