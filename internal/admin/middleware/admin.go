// Package middleware gates admin-only routes: role check, cached permission
// grant, per-action rate limiting and audit logging, layered on top of an
// already-authenticated request.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"portalx/internal/admin/cache"
	"portalx/internal/admin/metrics"
	adminmodels "portalx/internal/admin/models"
	auditmodels "portalx/internal/audit/models"
	authmiddleware "portalx/internal/auth/middleware"
	authmodels "portalx/internal/auth/models"
	ratelimitmodels "portalx/internal/ratelimit/models"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/httputil"
	"portalx/pkg/platform/middleware/metadata"
	"portalx/pkg/platform/sentinel"
)

// AdminVerifier re-checks role and status against the persistent store.
type AdminVerifier interface {
	FindActiveByID(ctx context.Context, id int64) (*authmodels.User, error)
}

// Auditor records every terminal gate decision.
type Auditor interface {
	Record(ctx context.Context, record auditmodels.Record)
}

// ActionLimiter bounds per-admin action rates.
type ActionLimiter interface {
	CheckAdminAction(ctx context.Context, adminID int64, action ratelimitmodels.AdminAction) *ratelimitmodels.Result
}

type contextKeyPermissions struct{}

// GetPermissions retrieves the admin permission set from the context.
func GetPermissions(ctx context.Context) (adminmodels.PermissionSet, bool) {
	perms, ok := ctx.Value(contextKeyPermissions{}).(adminmodels.PermissionSet)
	return perms, ok
}

// Gate is the admin access gate.
type Gate struct {
	verifier AdminVerifier
	grants   *cache.GrantCache
	auditor  Auditor
	limiter  ActionLimiter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Gate)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

func New(verifier AdminVerifier, grants *cache.GrantCache, auditor Auditor, limiter ActionLimiter, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		verifier: verifier,
		grants:   grants,
		auditor:  auditor,
		limiter:  limiter,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireAdmin admits only authenticated users whose admin role and active
// status hold right now, or held within the grant cache TTL. Every terminal
// decision is audited.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identity, ok := authmiddleware.GetIdentity(ctx)
		if !ok {
			g.audit(ctx, r, nil, false)
			g.recordDenial("unauthenticated")
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}

		if identity.Role != authmodels.RoleAdmin {
			g.audit(ctx, r, &identity.ID, false)
			g.recordDenial("not_admin")
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin access required"))
			return
		}

		perms, err := g.resolveGrant(ctx, identity.ID)
		if err != nil {
			g.audit(ctx, r, &identity.ID, false)
			g.recordDenial("revoked")
			httputil.WriteError(w, err)
			return
		}

		g.audit(ctx, r, &identity.ID, true)
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, contextKeyPermissions{}, perms)))
	})
}

// RequirePermission checks the permission set RequireAdmin left on the
// context; it must run inside RequireAdmin and never repeats the role check,
// so a permission-scoped route audits its access attempt exactly once.
// A missing permission is a 403 distinct from role failure.
func (g *Gate) RequirePermission(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, ok := authmiddleware.GetIdentity(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			perms, ok := GetPermissions(ctx)
			if !ok || !perms.Has(name) {
				g.auditAction(ctx, r, &identity.ID, auditmodels.ActionPermissionDenied, false)
				g.recordDenial("missing_permission")
				httputil.WriteError(w, dErrors.Newf(dErrors.CodeForbidden, "permission %q required", name))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LimitAction applies the per-admin action quota. It must run inside
// RequireAdmin so an identity is present.
func (g *Gate) LimitAction(action ratelimitmodels.AdminAction) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, ok := authmiddleware.GetIdentity(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			result := g.limiter.CheckAdminAction(ctx, identity.ID, action)
			if !result.Allowed {
				g.logger.Warn("admin action rate limit exceeded",
					"admin_id", identity.ID,
					"action", action,
					"request_id", metadata.GetRequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				msg := result.Message
				if msg == "" {
					msg = "too many " + string(action) + " actions"
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, msg))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveGrant checks the grant cache and re-verifies against the store on a
// miss. The re-verification defends against a cached bearer token whose
// privileges were revoked mid-TTL.
func (g *Gate) resolveGrant(ctx context.Context, userID int64) (adminmodels.PermissionSet, error) {
	if grant, ok := g.grants.Get(userID); ok {
		return grant.Permissions, nil
	}

	user, err := g.verifier.FindActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return adminmodels.PermissionSet{}, dErrors.New(dErrors.CodeForbidden, "admin privileges revoked")
		}
		return adminmodels.PermissionSet{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not verify admin status")
	}
	if user.Role != authmodels.RoleAdmin {
		return adminmodels.PermissionSet{}, dErrors.New(dErrors.CodeForbidden, "admin privileges revoked")
	}

	perms := adminmodels.FullPermissions()
	g.grants.Set(userID, perms)
	return perms, nil
}

func (g *Gate) recordDenial(reason string) {
	if g.metrics != nil {
		g.metrics.RecordDenial(reason)
	}
}

func (g *Gate) audit(ctx context.Context, r *http.Request, actorID *int64, success bool) {
	g.auditAction(ctx, r, actorID, auditmodels.ActionAccessAttempt, success)
}

func (g *Gate) auditAction(ctx context.Context, r *http.Request, actorID *int64, action string, success bool) {
	if g.auditor == nil {
		return
	}
	g.auditor.Record(ctx, auditmodels.Record{
		ActorID:   actorID,
		Action:    action,
		IPAddress: metadata.GetClientIP(ctx),
		UserAgent: metadata.GetUserAgent(ctx),
		Path:      r.URL.Path,
		Method:    r.Method,
		Success:   success,
	})
}
