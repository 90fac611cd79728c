package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
)

// sessionMiddleware loads the Redis session, stores it in the request
// context, and commits it before the handler writes the response body.
func sessionMiddleware(logger *slog.Logger, sessions *shared.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			if err != nil {
				logger.Error("session load failed", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			ctx := shared.ContextWithSession(r.Context(), sess)
			cw := &commitWriter{
				ResponseWriter: w,
				commit: func() {
					if err := sessions.Commit(ctx, w, r, sess); err != nil {
						logger.Error("session commit failed", slog.Any("error", err))
					}
				},
			}
			next.ServeHTTP(cw, r.WithContext(ctx))
			cw.ensureCommitted()
		})
	}
}

// commitWriter defers the session cookie write until just before the first
// byte of the response.
type commitWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *commitWriter) WriteHeader(code int) {
	w.ensureCommitted()
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.ensureCommitted()
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) ensureCommitted() {
	if !w.committed {
		w.committed = true
		w.commit()
	}
}

func secureMiddleware(cfg Config) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		IsDevelopment:         !cfg.IsProduction(),
	}).Handler
}

func rateLimiter(cfg Config) func(http.Handler) http.Handler {
	return httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}
