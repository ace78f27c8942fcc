package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalx/internal/audit/models"
	"portalx/internal/audit/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecord(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := New(st, discardLogger())

	actorID := int64(7)
	svc.Record(context.Background(), models.Record{
		ActorID:   &actorID,
		Action:    models.ActionAccessAttempt,
		IPAddress: "1.2.3.4",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Path:      "/api/admin/users",
		Method:    "GET",
		Success:   true,
	})

	records, err := st.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, models.ActionAccessAttempt, rec.Action)
	require.NotNil(t, rec.ActorID)
	assert.Equal(t, int64(7), *rec.ActorID)
	assert.Contains(t, rec.UserAgent, "Chrome")
	assert.NotContains(t, rec.UserAgent, "AppleWebKit", "raw UA must be summarized")
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	svc := New(&failingStore{}, discardLogger())

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), models.Record{Action: models.ActionAccessAttempt})
	})
}

func TestRecordPublishes(t *testing.T) {
	st := store.NewInMemoryStore()
	pub := &capturingPublisher{}
	svc := New(st, discardLogger(), WithPublisher(pub))

	svc.Record(context.Background(), models.Record{Action: models.ActionAccessCodeAttempt})

	require.Len(t, pub.published, 1)
	assert.Equal(t, models.ActionAccessCodeAttempt, pub.published[0].Action)
}

func TestRedactCode(t *testing.T) {
	assert.Equal(t, "SEC***", models.RedactCode("SECRET2024"))
	assert.Equal(t, "***", models.RedactCode("ab"))
	assert.Equal(t, "***", models.RedactCode(""))
}

type failingStore struct{}

func (f *failingStore) Insert(context.Context, *models.Record) error {
	return errors.New("store unavailable")
}

func (f *failingStore) ListRecent(context.Context, int) ([]*models.Record, error) {
	return nil, errors.New("store unavailable")
}

type capturingPublisher struct {
	published []*models.Record
}

func (c *capturingPublisher) Publish(_ context.Context, record *models.Record) {
	c.published = append(c.published, record)
}
