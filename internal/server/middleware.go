package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/flowmesh/mincostflow/pkg/apperror"
	"github.com/flowmesh/mincostflow/pkg/logger"
	"github.com/flowmesh/mincostflow/pkg/metrics"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID возвращает идентификатор запроса из контекста
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// statusRecorder перехватывает код ответа
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestIDMiddleware присваивает каждому запросу идентификатор.
// Входящий заголовок X-Request-Id сохраняется.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set("X-Request-Id", id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverMiddleware превращает панику обработчика в ответ 500
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Log.Error("Handler panic",
					"panic", rec,
					"path", r.URL.Path,
					"request_id", RequestID(r.Context()),
				)
				http.Error(w, `{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`,
					http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware записывает метрики HTTP запросов
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := metrics.Get()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
	})
}

// rateLimitMiddleware отклоняет запросы сверх лимита клиента с кодом 429
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		allowed, err := s.limiter.Allow(r.Context(), key)
		if err != nil {
			// Лимитер недоступен, пропускаем запрос
			logger.Log.Warn("Rate limiter failed, allowing request",
				"error", err,
				"request_id", RequestID(r.Context()),
			)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			if info, err := s.limiter.GetInfo(r.Context(), key); err == nil {
				w.Header().Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds())+1))
			}
			writeError(w, apperror.New(apperror.CodeRateLimited, "rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey определяет клиента для rate limiting.
// Учитывает заголовки прокси перед RemoteAddr.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// loggingMiddleware логирует завершённые запросы
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		logger.Log.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
			"request_id", RequestID(r.Context()),
		)
	})
}
