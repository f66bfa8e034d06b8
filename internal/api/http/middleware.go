package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/security"

	"golang.org/x/crypto/bcrypt"
)

type contextKey int

const actorContextKey contextKey = iota

// ActorFromContext returns the authenticated actor injected by the auth
// middleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(domain.Actor)
	return actor, ok
}

type AuthMiddleware struct {
	tokens security.TokenManager
}

func NewAuthMiddleware(tokens security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Middleware validates the bearer token and injects the actor identity.
// It establishes who is calling; whether the actor may perform the action
// is decided upstream of this subsystem and is not re-checked here.
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeMessage(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}
		claims, err := m.tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}
		actor := domain.Actor{ID: claims.UserID, Username: claims.Username}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorContextKey, actor)))
	})
}

type OperatorMiddleware struct {
	apiKeyHash string
}

func NewOperatorMiddleware(apiKeyHash string) *OperatorMiddleware {
	return &OperatorMiddleware{apiKeyHash: apiKeyHash}
}

// Require guards operator-only endpoints with the shared operator key.
func (m *OperatorMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Api-Key")
		if m.apiKeyHash == "" || key == "" {
			writeMessage(w, http.StatusForbidden, "Operator access required")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(m.apiKeyHash), []byte(key)); err != nil {
			writeMessage(w, http.StatusForbidden, "Operator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one structured line per handled request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("request handled",
			"status", rec.status,
			"method", r.Method,
			"path", r.URL.Path,
			"latency", time.Since(start),
		)
	})
}
