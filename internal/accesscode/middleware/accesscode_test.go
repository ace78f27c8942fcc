package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"portalx/internal/accesscode/models"
	"portalx/internal/accesscode/service"
	"portalx/internal/accesscode/store"
)

type GateSuite struct {
	suite.Suite
	gate *Gate
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemoryStore(), logger,
		service.WithUserCode("USER2024"),
		service.WithAdminCode("ADMIN2024"),
	)
	s.gate = New(svc, logger)
}

// bodyEcho proves the body survives the gate's peek intact.
func bodyEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}

func (s *GateSuite) serve(body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.gate.VerifyAccessCode(models.TypeUser)(bodyEcho()).ServeHTTP(rec, req)
	return rec
}

func (s *GateSuite) TestCorrectCodeIssuesSession() {
	body := `{"code":"USER2024","email":"a@example.com","password":"secret123"}`
	rec := s.serve(body, nil)

	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get("X-Session-Token"))
	s.Equal(body, rec.Body.String(), "downstream handler must see the full body")
}

func (s *GateSuite) TestSessionTokenSkipsCodeCheck() {
	first := s.serve(`{"code":"USER2024"}`, nil)
	s.Require().Equal(http.StatusOK, first.Code)
	token := first.Header().Get("X-Session-Token")
	s.Require().NotEmpty(token)

	// Second request carries no code, only the session token.
	rec := s.serve(`{"email":"a@example.com"}`, map[string]string{"X-Session-Token": token})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *GateSuite) TestSessionCookieAccepted() {
	first := s.serve(`{"code":"USER2024"}`, nil)
	token := first.Header().Get("X-Session-Token")
	s.Require().NotEmpty(token)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{}`))
	req.AddCookie(&http.Cookie{Name: "sessionToken", Value: token})
	rec := httptest.NewRecorder()
	s.gate.VerifyAccessCode(models.TypeUser)(bodyEcho()).ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
}

func (s *GateSuite) TestWrongCodeRejected() {
	rec := s.serve(`{"code":"WRONG"}`, nil)

	s.Equal(http.StatusForbidden, rec.Code)
	s.Contains(rec.Body.String(), "FORBIDDEN")
	s.Empty(rec.Header().Get("X-Session-Token"))
}

func (s *GateSuite) TestMissingCodeRejected() {
	rec := s.serve(`{"email":"a@example.com"}`, nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *GateSuite) TestStaleSessionFallsBackToCode() {
	// An invalid session token alone is rejected, but a valid code in the
	// body still admits the request.
	rec := s.serve(`{"code":"USER2024"}`, map[string]string{"X-Session-Token": "stale"})
	s.Equal(http.StatusOK, rec.Code)

	rec = s.serve(`{}`, map[string]string{"X-Session-Token": "stale"})
	s.Equal(http.StatusForbidden, rec.Code)
}
