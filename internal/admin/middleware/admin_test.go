package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"portalx/internal/admin/cache"
	adminmodels "portalx/internal/admin/models"
	auditmodels "portalx/internal/audit/models"
	authmiddleware "portalx/internal/auth/middleware"
	authmodels "portalx/internal/auth/models"
	authstore "portalx/internal/auth/store"
	ratelimitmodels "portalx/internal/ratelimit/models"
	ratelimitservice "portalx/internal/ratelimit/service"
	"portalx/internal/ratelimit/store/window"
)

type GateSuite struct {
	suite.Suite
	gate    *Gate
	store   *authstore.InMemoryStore
	grants  *cache.GrantCache
	auditor *capturingAuditor
	admin   *authmodels.User
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = authstore.NewInMemoryStore()
	s.grants = cache.New()
	s.auditor = &capturingAuditor{}
	limiter := ratelimitservice.New(window.NewInMemoryStore(), logger)
	s.gate = New(s.store, s.grants, s.auditor, limiter, logger)

	var err error
	s.admin, err = s.store.Create(context.Background(), &authmodels.User{
		Name:   "Admin",
		Email:  "admin@example.com",
		Role:   authmodels.RoleAdmin,
		Status: authmodels.StatusActive,
	})
	s.Require().NoError(err)
}

func (s *GateSuite) serveAs(handler http.Handler, identity *authmodels.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	if identity != nil {
		req = req.WithContext(authmiddleware.WithIdentity(req.Context(), *identity))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (s *GateSuite) adminIdentity() *authmodels.Identity {
	id := authmodels.IdentityFromUser(s.admin)
	return &id
}

func (s *GateSuite) TestRequireAdmin() {
	handler := s.gate.RequireAdmin(ok())

	s.Run("admits an active admin and audits it", func() {
		rec := s.serveAs(handler, s.adminIdentity())
		s.Equal(http.StatusOK, rec.Code)

		s.Require().NotEmpty(s.auditor.records)
		last := s.auditor.records[len(s.auditor.records)-1]
		s.True(last.Success)
		s.Equal(auditmodels.ActionAccessAttempt, last.Action)
		s.Require().NotNil(last.ActorID)
		s.Equal(s.admin.ID, *last.ActorID)
	})

	s.Run("rejects an unauthenticated request with a nil actor in the audit", func() {
		rec := s.serveAs(handler, nil)
		s.Equal(http.StatusUnauthorized, rec.Code)

		last := s.auditor.records[len(s.auditor.records)-1]
		s.False(last.Success)
		s.Nil(last.ActorID)
	})

	s.Run("rejects a non-admin role and audits the attempt", func() {
		user, err := s.store.Create(context.Background(), &authmodels.User{
			Name: "User", Email: "user@example.com",
			Role: authmodels.RoleUser, Status: authmodels.StatusActive,
		})
		s.Require().NoError(err)
		identity := authmodels.IdentityFromUser(user)

		rec := s.serveAs(handler, &identity)
		s.Equal(http.StatusForbidden, rec.Code)

		last := s.auditor.records[len(s.auditor.records)-1]
		s.False(last.Success)
	})
}

func (s *GateSuite) TestRevocationTakesEffectImmediately() {
	handler := s.gate.RequireAdmin(ok())

	// Prime the grant cache.
	rec := s.serveAs(handler, s.adminIdentity())
	s.Require().Equal(http.StatusOK, rec.Code)
	_, cached := s.grants.Get(s.admin.ID)
	s.Require().True(cached)

	// Block the admin and drop the grant, as the moderation flow does.
	s.Require().NoError(s.store.UpdateStatus(context.Background(), s.admin.ID, authmodels.StatusBlocked))
	s.grants.Invalidate(s.admin.ID)

	// The very next gated request re-verifies against the store and denies,
	// even though the bearer-token identity still says admin.
	rec = s.serveAs(handler, s.adminIdentity())
	s.Equal(http.StatusForbidden, rec.Code)
	s.Contains(rec.Body.String(), "revoked")
}

func (s *GateSuite) TestDemotedAdminDenied() {
	handler := s.gate.RequireAdmin(ok())

	demoted, err := s.store.Create(context.Background(), &authmodels.User{
		Name: "Former Admin", Email: "former@example.com",
		Role: authmodels.RoleUser, Status: authmodels.StatusActive,
	})
	s.Require().NoError(err)

	// Identity snapshot still claims the admin role; the store says otherwise.
	staleIdentity := authmodels.Identity{
		ID: demoted.ID, Email: demoted.Email,
		Role: authmodels.RoleAdmin, IsAdmin: true,
	}

	rec := s.serveAs(handler, &staleIdentity)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *GateSuite) TestRequirePermission() {
	s.Run("admits a granted permission", func() {
		handler := s.gate.RequireAdmin(s.gate.RequirePermission(adminmodels.PermManageUsers)(ok()))
		rec := s.serveAs(handler, s.adminIdentity())
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("denies an unknown permission distinctly from role failure", func() {
		handler := s.gate.RequireAdmin(s.gate.RequirePermission("unknownPermission")(ok()))
		rec := s.serveAs(handler, s.adminIdentity())
		s.Equal(http.StatusForbidden, rec.Code)
		s.Contains(rec.Body.String(), "unknownPermission")
	})
}

func (s *GateSuite) TestPermissionScopedRouteAuditsOnce() {
	// The router mounts RequireAdmin on the whole admin group and
	// RequirePermission per route; the chain must not audit the access
	// attempt once per layer.
	handler := s.gate.RequireAdmin(s.gate.RequirePermission(adminmodels.PermViewStats)(ok()))

	rec := s.serveAs(handler, s.adminIdentity())
	s.Require().Equal(http.StatusOK, rec.Code)

	attempts := 0
	for _, record := range s.auditor.records {
		if record.Action == auditmodels.ActionAccessAttempt {
			attempts++
		}
	}
	s.Equal(1, attempts, "one request, one access attempt record")
}

func (s *GateSuite) TestLimitAction() {
	handler := s.gate.LimitAction(ratelimitmodels.ActionBulk)(ok())

	for i := range 10 {
		rec := s.serveAs(handler, s.adminIdentity())
		s.Require().Equal(http.StatusOK, rec.Code, "bulk action %d", i+1)
	}

	rec := s.serveAs(handler, s.adminIdentity())
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))
	s.Contains(rec.Body.String(), "bulk")
}

type capturingAuditor struct {
	records []auditmodels.Record
}

func (c *capturingAuditor) Record(_ context.Context, record auditmodels.Record) {
	c.records = append(c.records, record)
}
