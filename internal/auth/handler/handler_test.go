package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"portalx/internal/auth/cache"
	"portalx/internal/auth/middleware"
	"portalx/internal/auth/models"
	"portalx/internal/auth/service"
	"portalx/internal/auth/store"
	"portalx/internal/auth/token"
)

type HandlerSuite struct {
	suite.Suite
	router *chi.Mux
	store  *store.InMemoryStore
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = store.NewInMemoryStore()
	tokens := token.New("test-secret", time.Hour)
	tokenCache := cache.New()

	svc := service.New(s.store, tokens, tokenCache, logger,
		service.WithBcryptCost(bcrypt.MinCost),
		service.WithAccessCode("CODE123"),
	)
	h := New(svc, logger)
	auth := middleware.New(tokens, s.store, tokenCache, logger)

	s.router = chi.NewRouter()
	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.Post("/forgot-password", h.HandleForgotPassword)
		r.Post("/reset-password", h.HandleResetPassword)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			h.RegisterProtected(r)
		})
	})
}

func (s *HandlerSuite) post(path string, body any, header http.Header) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func (s *HandlerSuite) TestRegister() {
	rec := s.post("/api/auth/register", map[string]string{
		"name":     "New User",
		"email":    "new@example.com",
		"password": "password123",
	}, nil)

	s.Require().Equal(http.StatusCreated, rec.Code)
	body := s.decode(rec)
	s.Equal(true, body["success"])
	user := body["user"].(map[string]any)
	s.Equal("pending", user["status"])
	s.NotEmpty(user["referralCode"])
}

func (s *HandlerSuite) TestRegisterValidationError() {
	rec := s.post("/api/auth/register", map[string]string{
		"name":     "X",
		"email":    "new@example.com",
		"password": "password123",
	}, nil)

	s.Require().Equal(http.StatusBadRequest, rec.Code)
	body := s.decode(rec)
	s.Equal(false, body["success"])
	s.Equal("BAD_REQUEST", body["error"].(map[string]any)["code"])
}

func (s *HandlerSuite) TestLoginAndMe() {
	rec := s.post("/api/auth/register", map[string]string{
		"name":     "Login User",
		"email":    "login@example.com",
		"password": "password123",
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code)

	userID := int64(s.decode(rec)["user"].(map[string]any)["id"].(float64))
	s.Require().NoError(s.store.UpdateStatus(context.Background(), userID, models.StatusActive))

	rec = s.post("/api/auth/login", map[string]string{
		"email":    "login@example.com",
		"password": "password123",
	}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	body := s.decode(rec)
	bearer := body["token"].(string)
	s.NotEmpty(bearer)
	s.Equal(false, body["user"].(map[string]any)["isAdmin"])

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	meRec := httptest.NewRecorder()
	s.router.ServeHTTP(meRec, req)

	s.Require().Equal(http.StatusOK, meRec.Code)
	me := s.decode(meRec)["user"].(map[string]any)
	s.Equal("login@example.com", me["email"])
}

func (s *HandlerSuite) TestMeRequiresAuth() {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestForgotAndResetPassword() {
	rec := s.post("/api/auth/register", map[string]string{
		"name":     "Reset User",
		"email":    "reset@example.com",
		"password": "password123",
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code)

	userID := int64(s.decode(rec)["user"].(map[string]any)["id"].(float64))
	s.Require().NoError(s.store.UpdateStatus(context.Background(), userID, models.StatusActive))

	rec = s.post("/api/auth/forgot-password", map[string]string{
		"email": "reset@example.com",
		"code":  "CODE123",
	}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	resetToken := s.decode(rec)["resetToken"].(string)
	s.Require().NotEmpty(resetToken)

	rec = s.post("/api/auth/reset-password", map[string]string{
		"token":       resetToken,
		"newPassword": "brand-new-pass",
	}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.post("/api/auth/login", map[string]string{
		"email":    "reset@example.com",
		"password": "brand-new-pass",
	}, nil)
	s.Equal(http.StatusOK, rec.Code)
}
