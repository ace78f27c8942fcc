// Package middleware resolves request identity: it extracts the bearer
// credential, consults the token cache before the user store, and attaches
// the resolved identity to the request context.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"portalx/internal/auth/cache"
	"portalx/internal/auth/metrics"
	"portalx/internal/auth/models"
	"portalx/internal/auth/token"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/httputil"
	"portalx/pkg/platform/middleware/metadata"
	"portalx/pkg/platform/sentinel"
)

const bearerPrefix = "Bearer "

// TokenValidator verifies a bearer token and returns its payload.
type TokenValidator interface {
	Validate(tokenString string) (*token.Payload, error)
}

// IdentityStore is the slice of the user store the gate needs.
type IdentityStore interface {
	FindActiveByID(ctx context.Context, id int64) (*models.User, error)
}

type contextKeyIdentity struct{}

// GetIdentity retrieves the authenticated identity from the context.
func GetIdentity(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(contextKeyIdentity{}).(models.Identity)
	return id, ok
}

// WithIdentity attaches an identity to a context. Exported for handler tests
// that bypass the middleware chain.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity{}, identity)
}

// Authenticator is the authentication gate.
type Authenticator struct {
	tokens  TokenValidator
	store   IdentityStore
	cache   *cache.TokenCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Authenticator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

func New(tokens TokenValidator, store IdentityStore, tokenCache *cache.TokenCache, logger *slog.Logger, opts ...Option) *Authenticator {
	a := &Authenticator{
		tokens: tokens,
		store:  store,
		cache:  tokenCache,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RequireAuth rejects requests without a resolvable active identity.
// Expired and malformed tokens fail with distinct codes; a token whose user
// no longer exists or is no longer active is a plain 401.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer, ok := extractBearer(r)
		if !ok {
			a.logger.WarnContext(r.Context(), "unauthorized access, missing bearer token",
				"request_id", metadata.GetRequestID(r.Context()),
			)
			a.recordFailure("missing_credential")
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid authorization header"))
			return
		}

		identity, err := a.resolve(r.Context(), bearer)
		if err != nil {
			a.logger.WarnContext(r.Context(), "unauthorized access, token rejected",
				"error", err,
				"request_id", metadata.GetRequestID(r.Context()),
			)
			a.recordFailure(string(dErrors.CodeOf(err)))
			httputil.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// OptionalAuth resolves identity when a valid credential is present and
// proceeds anonymously otherwise. It never rejects.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearer, ok := extractBearer(r); ok {
			if identity, err := a.resolve(r.Context(), bearer); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// resolve turns a bearer token into an identity: cache hit, or verify the
// token and look the user up, memoizing the result. The cache is an
// optimization, never a trust boundary: a miss always re-verifies.
func (a *Authenticator) resolve(ctx context.Context, bearer string) (models.Identity, error) {
	if identity, ok := a.cache.Get(bearer); ok {
		if a.metrics != nil {
			a.metrics.RecordCacheHit()
		}
		return identity, nil
	}
	if a.metrics != nil {
		a.metrics.RecordCacheMiss()
	}

	payload, err := a.tokens.Validate(bearer)
	if err != nil {
		return models.Identity{}, err
	}

	user, err := a.store.FindActiveByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "user not found or inactive")
		}
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not verify user")
	}

	identity := models.IdentityFromUser(user)
	a.cache.Set(bearer, identity)
	return identity, nil
}

func (a *Authenticator) recordFailure(reason string) {
	if a.metrics != nil {
		a.metrics.RecordFailure(reason)
	}
}

func extractBearer(r *http.Request) (string, bool) {
	after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok || after == "" {
		return "", false
	}
	return after, true
}
