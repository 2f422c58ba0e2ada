package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driving"
	"github.com/veridian-labs/ttpmap-core/internal/observability/metrics"
)

// Context keys
type contextKey string

const authContextKey contextKey = "auth_context"

// AuthMiddleware handles authentication and authorization
type AuthMiddleware struct {
	authService driving.AuthService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authService driving.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate validates the request token and adds auth context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		authCtx, err := m.authService.ValidateToken(r.Context(), token)
		if err != nil {
			switch err {
			case domain.ErrTokenExpired:
				writeError(w, http.StatusUnauthorized, "token expired")
			default:
				writeError(w, http.StatusUnauthorized, "invalid token")
			}
			return
		}

		// Add auth context to request context
		ctx := context.WithValue(r.Context(), authContextKey, authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin ensures the authenticated user is an admin
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r.Context())
		if authCtx == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if !authCtx.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireSubmitter ensures the authenticated user may upload documents and
// edit dispositions (admin or analyst)
func (m *AuthMiddleware) RequireSubmitter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r.Context())
		if authCtx == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if !authCtx.CanSubmit() {
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetAuthContext retrieves the auth context from request context
func GetAuthContext(ctx context.Context) *domain.AuthContext {
	if ctx == nil {
		return nil
	}
	authCtx, ok := ctx.Value(authContextKey).(*domain.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// Observability middleware

// ObservabilityMiddleware logs requests and records request metrics.
type ObservabilityMiddleware struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewObservabilityMiddleware creates a new ObservabilityMiddleware.
// metrics may be nil, in which case only logging happens.
func NewObservabilityMiddleware(logger *slog.Logger, m *metrics.Metrics) *ObservabilityMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObservabilityMiddleware{logger: logger, metrics: m}
}

// Handler wraps an http.Handler with request logging and metrics
func (m *ObservabilityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var done func()
		if m.metrics != nil {
			done = m.metrics.RequestStarted()
		}

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", duration,
		)

		if m.metrics != nil {
			done()
			m.metrics.ObserveRequest("api", r.Method, pathLabel(r.URL.Path), strconv.Itoa(rw.statusCode), duration)
		}
	})
}

// pathLabel collapses resource IDs so the metrics path label stays bounded.
func pathLabel(path string) string {
	for _, prefix := range []string{
		"/api/v1/jobs/",
		"/api/v1/reports/",
		"/api/v1/sentences/",
		"/api/v1/documents/",
	} {
		if strings.HasPrefix(path, prefix) {
			return prefix + "{id}"
		}
	}
	return path
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Recovery middleware

// RecoveryMiddleware recovers from panics
type RecoveryMiddleware struct {
	logger *slog.Logger
}

// NewRecoveryMiddleware creates a new RecoveryMiddleware
func NewRecoveryMiddleware(logger *slog.Logger) *RecoveryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryMiddleware{logger: logger}
}

// Handler wraps an http.Handler with panic recovery
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
