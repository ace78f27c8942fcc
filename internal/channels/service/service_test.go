package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	authmodels "portalx/internal/auth/models"
	"portalx/internal/channels/models"
	"portalx/internal/channels/store"
	dErrors "portalx/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	service *Service
	store   *store.InMemoryStore
	owner   authmodels.Identity
	admin   authmodels.Identity
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemoryStore()
	s.service = New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.owner = authmodels.Identity{ID: 1, Role: authmodels.RoleUser}
	s.admin = authmodels.Identity{ID: 2, Role: authmodels.RoleAdmin, IsAdmin: true}
}

func (s *ServiceSuite) submit(name, link string) *models.Channel {
	channel, err := s.service.Submit(s.ctx, s.owner, SubmitInput{
		Name: name, Link: link, Category: "tech",
	})
	s.Require().NoError(err)
	return channel
}

func (s *ServiceSuite) activate(id int64) {
	s.Require().NoError(s.store.UpdateStatus(s.ctx, id, models.StatusActive))
}

func (s *ServiceSuite) TestSubmit() {
	channel := s.submit("Go News", "https://t.me/gonews")

	s.Equal(models.StatusPending, channel.Status, "submissions start pending")
	s.Equal("gonews", channel.TelegramID)
	s.Equal(s.owner.ID, channel.UserID)
}

func (s *ServiceSuite) TestSubmitValidation() {
	cases := []struct {
		name  string
		input SubmitInput
	}{
		{"short name", SubmitInput{Name: "ab", Link: "https://t.me/x1", Category: "tech"}},
		{"bad link", SubmitInput{Name: "Good Name", Link: "https://example.com/ch", Category: "tech"}},
		{"missing category", SubmitInput{Name: "Good Name", Link: "https://t.me/x1"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Submit(s.ctx, s.owner, tc.input)
			s.Require().Error(err)
			s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
		})
	}
}

func (s *ServiceSuite) TestSubmitPerUserLimit() {
	for i := range userChannelLimit {
		s.submit(fmt.Sprintf("Channel %d", i), fmt.Sprintf("https://t.me/chan%d", i))
	}

	_, err := s.service.Submit(s.ctx, s.owner, SubmitInput{
		Name: "One Too Many", Link: "https://t.me/toomany", Category: "tech",
	})
	s.Require().Error(err)
	s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))

	s.Run("admins have a higher cap", func() {
		_, err := s.service.Submit(s.ctx, s.admin, SubmitInput{
			Name: "Admin Channel", Link: "https://t.me/adminchan", Category: "tech",
		})
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestListShowsOnlyRequestedStatus() {
	live := s.submit("Live", "https://t.me/live")
	s.activate(live.ID)
	s.submit("Still Pending", "https://t.me/stillpending")

	channels, err := s.service.List(s.ctx, models.ListFilter{Status: models.StatusActive})
	s.Require().NoError(err)
	s.Require().Len(channels, 1)
	s.Equal("Live", channels[0].Name)
}

func (s *ServiceSuite) TestListNormalizesPaging() {
	channels, err := s.service.List(s.ctx, models.ListFilter{Sort: "bogus", Order: "sideways", Page: -3})
	s.Require().NoError(err)
	s.Empty(channels)
}

func (s *ServiceSuite) TestGetCountsClick() {
	channel := s.submit("Live", "https://t.me/live")
	s.activate(channel.ID)

	anonymous := authmodels.Identity{}
	got, err := s.service.Get(s.ctx, anonymous, channel.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), got.Clicks)

	got, err = s.service.Get(s.ctx, anonymous, channel.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), got.Clicks)
}

func (s *ServiceSuite) TestGetHidesPendingChannels() {
	channel := s.submit("Hidden", "https://t.me/hidden")

	_, err := s.service.Get(s.ctx, authmodels.Identity{}, channel.ID)
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))

	s.Run("owner sees own pending channel", func() {
		got, err := s.service.Get(s.ctx, s.owner, channel.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, got.Status)
		s.Zero(got.Clicks, "pending lookups do not count as clicks")
	})

	s.Run("admin sees any pending channel", func() {
		_, err := s.service.Get(s.ctx, s.admin, channel.ID)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestRecordView() {
	channel := s.submit("Live", "https://t.me/live")
	s.activate(channel.ID)

	s.Require().NoError(s.service.RecordView(s.ctx, channel.ID))

	stored, err := s.store.FindByID(s.ctx, channel.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.Views)

	s.Run("pending channels are invisible", func() {
		pending := s.submit("Pending", "https://t.me/pending")
		err := s.service.RecordView(s.ctx, pending.ID)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestDelete() {
	channel := s.submit("Mine", "https://t.me/mine")

	s.Run("a stranger may not delete it", func() {
		stranger := authmodels.Identity{ID: 99, Role: authmodels.RoleUser}
		err := s.service.Delete(s.ctx, stranger, channel.ID)
		s.Require().Error(err)
		s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))
	})

	s.Run("an admin may", func() {
		s.Require().NoError(s.service.Delete(s.ctx, s.admin, channel.ID))
	})

	s.Run("deleting a missing channel is NOT_FOUND", func() {
		err := s.service.Delete(s.ctx, s.owner, channel.ID)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestSetStatus() {
	channel := s.submit("Reviewed", "https://t.me/reviewed")

	s.Require().NoError(s.service.SetStatus(s.ctx, channel.ID, models.StatusActive))

	stored, err := s.store.FindByID(s.ctx, channel.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, stored.Status)

	s.Run("rejects unknown statuses", func() {
		err := s.service.SetStatus(s.ctx, channel.ID, "published")
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestBulkSetStatus() {
	a := s.submit("Bulk A", "https://t.me/bulka")
	b := s.submit("Bulk B", "https://t.me/bulkb")

	updated, err := s.service.BulkSetStatus(s.ctx, []int64{a.ID, b.ID, 999}, models.StatusActive)
	s.Require().NoError(err)
	s.Equal(2, updated, "missing ids are skipped")

	for _, id := range []int64{a.ID, b.ID} {
		stored, err := s.store.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, stored.Status)
	}

	s.Run("rejects empty id list", func() {
		_, err := s.service.BulkSetStatus(s.ctx, nil, models.StatusActive)
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})

	s.Run("rejects unknown statuses", func() {
		_, err := s.service.BulkSetStatus(s.ctx, []int64{a.ID}, "published")
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestMine() {
	s.submit("First", "https://t.me/first")
	s.submit("Second", "https://t.me/second")

	channels, err := s.service.Mine(s.ctx, s.owner.ID)
	s.Require().NoError(err)
	s.Len(channels, 2, "own listing includes pending channels")
}

func (s *ServiceSuite) TestUserTotals() {
	live := s.submit("Live", "https://t.me/live")
	s.activate(live.ID)
	s.submit("Pending", "https://t.me/pending")
	s.Require().NoError(s.service.RecordView(s.ctx, live.ID))

	channels, members, views, err := s.service.UserTotals(s.ctx, s.owner.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), channels, "only live channels count")
	s.Equal(int64(0), members)
	s.Equal(int64(1), views)
}

func (s *ServiceSuite) TestPlatformStats() {
	live := s.submit("Live", "https://t.me/live")
	s.activate(live.ID)
	s.submit("Pending A", "https://t.me/penda")
	s.submit("Pending B", "https://t.me/pendb")

	stats, err := s.service.PlatformStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), stats["channels_active"])
	s.Equal(int64(2), stats["channels_pending"])
}

func TestExtractTelegramID(t *testing.T) {
	if got := models.ExtractTelegramID("https://t.me/some_channel"); got != "some_channel" {
		t.Fatalf("got %q", got)
	}
	if got := models.ExtractTelegramID("https://example.com"); got != "" {
		t.Fatalf("expected empty handle, got %q", got)
	}
}
