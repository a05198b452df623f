package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KotFed0t/paper_trade_service/utils"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logger assigns a request ID to every request (honoring an incoming
// X-Request-ID) and logs start/finish with duration and status.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		ctx := utils.CtxWithRqID(r.Context(), r.Header.Get("X-Request-ID"))
		rqID := utils.GetRequestIDFromCtx(ctx)
		w.Header().Set("X-Request-ID", rqID)

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.Int("status", rec.status),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

// Recover turns handler panics into 500 responses instead of killing the
// connection goroutine silently.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error(
					"panic recovered in handler",
					slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())),
					slog.Any("panic", rec),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal error"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
