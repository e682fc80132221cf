package chi

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	logpkg "github.com/kailas-cloud/venuerank/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// JSONRecoverer turns handler panics into a JSON 500. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
func JSONRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				log := logger
				if l, ok := logpkg.Lookup(r.Context()); ok {
					log = l
				}
				log.Error("Handler panicked",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rvr),
					zap.Stack("stacktrace"),
				)
				writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WideEventMiddleware attaches a request-scoped logger and token usage collector
// to the context, echoes the request id and writes one "http_request" line per
// request including the model tokens it consumed.
func WideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chiMiddleware.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set(requestIDHeader, reqID)
			}

			log := logger.With(zap.String("request_id", reqID))
			ctx, usage := domain.NewContextWithUsage(logpkg.ContextWithLogger(r.Context(), log))
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			embeddingTokens, judgeTokens := usage.Snapshot()
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.Int("embedding_tokens", embeddingTokens),
				zap.Int("judge_tokens", judgeTokens),
			)
		})
	}
}

// usageContext returns the collector installed by WideEventMiddleware, or a
// fresh one when the handler is served without it.
func usageContext(r *http.Request) (*http.Request, *domain.Usage) {
	if u := domain.UsageFromContext(r.Context()); u != nil {
		return r, u
	}
	ctx, u := domain.NewContextWithUsage(r.Context())
	return r.WithContext(ctx), u
}
