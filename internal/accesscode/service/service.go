// Package service verifies the shared site access codes and manages the
// sessions they issue. This is a coarse pre-authentication gate: it sits in
// front of registration and login, not in place of them.
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"portalx/internal/accesscode/models"
	"portalx/internal/accesscode/store"
	auditmodels "portalx/internal/audit/models"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/sentinel"
)

// DefaultSessionTTL is how long a verified session lasts.
const DefaultSessionTTL = 24 * time.Hour

// Auditor records failed code attempts.
type Auditor interface {
	Record(ctx context.Context, record auditmodels.Record)
}

type Service struct {
	store      store.Store
	userCode   string
	adminCode  string
	sessionTTL time.Duration
	auditor    Auditor
	logger     *slog.Logger
}

type Option func(*Service)

func WithUserCode(code string) Option {
	return func(s *Service) { s.userCode = code }
}

func WithAdminCode(code string) Option {
	return func(s *Service) { s.adminCode = code }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

// WithAuditor enables auditing of failed code attempts.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      st,
		sessionTTL: DefaultSessionTTL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyCode checks a submitted code against the configured secret for the
// access type and issues a session on success. Failed attempts are audited
// with the submitted code redacted.
func (s *Service) VerifyCode(ctx context.Context, code, accessType, ip, userAgent string) (*models.Session, error) {
	if !models.ValidType(accessType) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown access type")
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeForbidden, "access code required")
	}

	expected := s.userCode
	if accessType == models.TypeAdmin {
		expected = s.adminCode
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(code), []byte(expected)) != 1 {
		s.auditFailure(ctx, code, ip, userAgent)
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid access code")
	}

	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	session := &models.Session{
		Token:      token,
		AccessType: accessType,
		IPAddress:  ip,
		UserAgent:  userAgent,
		ExpiresAt:  time.Now().Add(s.sessionTTL),
	}
	if err := s.store.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("insert access session: %w", err)
	}

	s.logger.Info("access code verified", "access_type", accessType, "ip", ip)
	return session, nil
}

// CheckSession reports whether a session token is valid for the access type.
func (s *Service) CheckSession(ctx context.Context, token, accessType string) error {
	if token == "" {
		return dErrors.New(dErrors.CodeForbidden, "access session required")
	}
	if _, err := s.store.Find(ctx, token, accessType); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return dErrors.New(dErrors.CodeForbidden, "access session invalid or expired")
		}
		return fmt.Errorf("find access session: %w", err)
	}
	return nil
}

// SessionTTL exposes the configured lifetime for response payloads.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *Service) auditFailure(ctx context.Context, code, ip, userAgent string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, auditmodels.Record{
		Action:        auditmodels.ActionAccessCodeAttempt,
		IPAddress:     ip,
		UserAgent:     userAgent,
		AttemptedCode: auditmodels.RedactCode(code),
		Success:       false,
	})
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
