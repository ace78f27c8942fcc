package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"portalx/internal/admin/cache"
	adminmodels "portalx/internal/admin/models"
	authcache "portalx/internal/auth/cache"
	authmodels "portalx/internal/auth/models"
	authstore "portalx/internal/auth/store"
	dErrors "portalx/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	service *Service
	store   *authstore.InMemoryStore
	tokens  *authcache.TokenCache
	grants  *cache.GrantCache
	admin   *authmodels.User
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = authstore.NewInMemoryStore()
	s.tokens = authcache.New()
	s.grants = cache.New()
	s.service = New(s.store, s.tokens, s.grants, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var err error
	s.admin, err = s.store.Create(s.ctx, &authmodels.User{
		Name: "Admin", Email: "admin@example.com",
		Role: authmodels.RoleAdmin, Status: authmodels.StatusActive,
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) createUser(email, status string) *authmodels.User {
	user, err := s.store.Create(s.ctx, &authmodels.User{
		Name: "User", Email: email,
		Role: authmodels.RoleUser, Status: status,
	})
	s.Require().NoError(err)
	return user
}

func (s *ServiceSuite) TestApproveUser() {
	user := s.createUser("pending@example.com", authmodels.StatusPending)

	s.Require().NoError(s.service.ApproveUser(s.ctx, s.admin.ID, user.ID))

	stored, err := s.store.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(authmodels.StatusActive, stored.Status)
}

func (s *ServiceSuite) TestRejectUserDropsCaches() {
	user := s.createUser("active@example.com", authmodels.StatusActive)
	s.tokens.Set("user-token", authmodels.IdentityFromUser(user))
	s.grants.Set(user.ID, adminmodels.FullPermissions())

	s.Require().NoError(s.service.RejectUser(s.ctx, s.admin.ID, user.ID))

	stored, err := s.store.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(authmodels.StatusBlocked, stored.Status)

	_, ok := s.tokens.Get("user-token")
	s.False(ok, "cached identity must not survive a block")
	_, ok = s.grants.Get(user.ID)
	s.False(ok, "cached grant must not survive a block")
}

func (s *ServiceSuite) TestSelfModerationRejected() {
	err := s.service.RejectUser(s.ctx, s.admin.ID, s.admin.ID)
	s.Require().Error(err)
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))

	err = s.service.DeleteUser(s.ctx, s.admin.ID, s.admin.ID)
	s.Require().Error(err)
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestDeleteUser() {
	user := s.createUser("doomed@example.com", authmodels.StatusActive)
	s.tokens.Set("doomed-token", authmodels.IdentityFromUser(user))

	s.Require().NoError(s.service.DeleteUser(s.ctx, s.admin.ID, user.ID))

	_, err := s.store.FindByID(s.ctx, user.ID)
	s.Error(err)
	_, ok := s.tokens.Get("doomed-token")
	s.False(ok)

	s.Run("deleting a missing user is NOT_FOUND", func() {
		err := s.service.DeleteUser(s.ctx, s.admin.ID, 9999)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestBulkSetStatus() {
	a := s.createUser("a@example.com", authmodels.StatusPending)
	b := s.createUser("b@example.com", authmodels.StatusPending)

	s.Run("updates every listed user", func() {
		updated, err := s.service.BulkSetStatus(s.ctx, s.admin.ID, []int64{a.ID, b.ID}, authmodels.StatusActive)
		s.Require().NoError(err)
		s.Equal(2, updated)
	})

	s.Run("skips unknown ids and the admin's own account", func() {
		updated, err := s.service.BulkSetStatus(s.ctx, s.admin.ID, []int64{a.ID, s.admin.ID, 9999}, authmodels.StatusBlocked)
		s.Require().NoError(err)
		s.Equal(1, updated)

		stored, err := s.store.FindByID(s.ctx, s.admin.ID)
		s.Require().NoError(err)
		s.Equal(authmodels.StatusActive, stored.Status)
	})

	s.Run("validates input", func() {
		_, err := s.service.BulkSetStatus(s.ctx, s.admin.ID, nil, authmodels.StatusActive)
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))

		_, err = s.service.BulkSetStatus(s.ctx, s.admin.ID, []int64{a.ID}, "pending")
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))

		tooMany := make([]int64, maxBulkSize+1)
		_, err = s.service.BulkSetStatus(s.ctx, s.admin.ID, tooMany, authmodels.StatusActive)
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestPlatformStats() {
	s.createUser("p1@example.com", authmodels.StatusPending)
	s.createUser("p2@example.com", authmodels.StatusPending)
	s.createUser("blocked@example.com", authmodels.StatusBlocked)

	stats, err := s.service.PlatformStats(s.ctx)
	s.Require().NoError(err)

	s.Equal(int64(2), stats["users_pending"])
	s.Equal(int64(1), stats["users_active"], "the admin account")
	s.Equal(int64(1), stats["users_blocked"])
}
