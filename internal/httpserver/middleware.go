package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	domain "accounts/backend/internal/domain/auth"
	"accounts/backend/internal/logctx"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	headerRequestID   = "X-Request-ID"
	maxRequestIDLen   = 128
	unmatchedRouteTag = "unmatched"
)

type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// withRequestID tags the request with an id and stores a logger carrying it
// in the request context.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		log := s.log.With(slog.String("request_id", id))
		next.ServeHTTP(w, r.WithContext(logctx.Into(r.Context(), log)))
	})
}

// withAccessLog logs every request and feeds the HTTP metrics.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		route := unmatchedRouteTag
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		s.metrics.ObserveRequest(r.Method, route, status, elapsed)
		logctx.From(r.Context()).Info("http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int("bytes", recorder.size),
			slog.Duration("duration", elapsed),
		)
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logctx.From(r.Context()).Error("panic_recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			writeAPIError(w, errInternal)
		}()
		next.ServeHTTP(w, r)
	})
}

func withCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && isOriginAllowed(origin, allowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			} else if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		if candidate == "*" {
			return true
		}
		if strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}

// authMiddleware resolves the bearer token into an AuthContext. The wrapped
// handler never runs for a missing, invalid or expired token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))

		ac, err := s.authService.Authenticate(r.Context(), token)
		if err != nil {
			e, _ := classify(err)
			s.metrics.TokenValidation(e.code)
			writeError(w, r, err)
			return
		}
		s.metrics.TokenValidation("ok")

		ctx := context.WithValue(r.Context(), ctxKeyAuth{}, ac)
		ctx = logctx.Into(ctx, logctx.From(ctx).With(slog.Int64("user_id", ac.UserID())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKeyAuth struct{}

// AuthContextFrom returns the identity resolved by the auth middleware.
func AuthContextFrom(ctx context.Context) (domain.AuthContext, bool) {
	ac, ok := ctx.Value(ctxKeyAuth{}).(domain.AuthContext)
	if !ok || ac.User == nil {
		return domain.AuthContext{}, false
	}
	return ac, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
