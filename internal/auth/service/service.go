// Package service implements account registration, login and password
// recovery on top of the user store, the bearer-token signer and the
// identity cache.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"portalx/internal/auth/cache"
	"portalx/internal/auth/models"
	"portalx/internal/auth/store"
	"portalx/internal/auth/token"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/sentinel"
)

const (
	passwordMinLength = 8
	minNameLength     = 3

	referralCodeLength   = 8
	referralCodeAttempts = 10

	resetTokenTTL = time.Hour
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service handles account lifecycle operations.
type Service struct {
	store      store.Store
	tokens     *token.Service
	cache      *cache.TokenCache
	logger     *slog.Logger
	bcryptCost int
	accessCode string
}

type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithAccessCode sets the shared site access code required for password
// recovery requests.
func WithAccessCode(code string) Option {
	return func(s *Service) { s.accessCode = code }
}

func New(st store.Store, tokens *token.Service, tokenCache *cache.TokenCache, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      st,
		tokens:     tokens,
		cache:      tokenCache,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a pending account. The account cannot log in until an
// admin approves it.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(name) < minNameLength {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "name must be at least %d characters", minNameLength)
	}
	if !emailRegex.MatchString(email) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid email address")
	}
	if len(password) < passwordMinLength {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "password must be at least %d characters", passwordMinLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	referralCode, err := s.generateReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Create(ctx, &models.User{
		Name:               name,
		Email:              email,
		PasswordHash:       string(hash),
		Role:               models.RoleUser,
		Status:             models.StatusPending,
		ReferralCode:       referralCode,
		AccessCodeVerified: true,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a bearer token. Pending and blocked
// accounts are rejected with distinct messages; a wrong password and an
// unknown email are deliberately indistinguishable.
func (s *Service) Login(ctx context.Context, email, password string) (string, models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", models.Identity{}, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", models.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", models.Identity{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	switch user.Status {
	case models.StatusPending:
		return "", models.Identity{}, dErrors.New(dErrors.CodeForbidden, "account pending approval")
	case models.StatusBlocked:
		return "", models.Identity{}, dErrors.New(dErrors.CodeForbidden, "account blocked")
	}

	signed, err := s.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return "", models.Identity{}, fmt.Errorf("sign token: %w", err)
	}

	if err := s.store.TouchLogin(ctx, user.ID); err != nil {
		// Login bookkeeping only; the credential check already passed.
		s.logger.Warn("failed to record login time", "user_id", user.ID, "error", err)
	}

	// Prime the token cache so the first request after login skips the
	// verify-and-lookup path.
	identity := models.IdentityFromUser(user)
	s.cache.Set(signed, identity)

	return signed, identity, nil
}

// Logout drops every cached identity for the user so stale tokens stop
// resolving without a database check.
func (s *Service) Logout(_ context.Context, userID int64) {
	s.cache.Invalidate(userID)
	s.logger.Info("user logged out", "user_id", userID)
}

// Me returns the current account row.
func (s *Service) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// ForgotPassword issues a one-hour reset token. The shared access code must
// match, and an unknown email returns an empty token with no error so the
// endpoint does not reveal which addresses have accounts.
func (s *Service) ForgotPassword(ctx context.Context, email, accessCode string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid email address")
	}
	if s.accessCode == "" || accessCode != s.accessCode {
		return "", dErrors.New(dErrors.CodeForbidden, "invalid access code")
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	resetToken, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := s.store.SaveResetToken(ctx, user.ID, resetToken, time.Now().Add(resetTokenTTL)); err != nil {
		return "", fmt.Errorf("save reset token: %w", err)
	}

	s.logger.Info("password reset requested", "user_id", user.ID)
	return resetToken, nil
}

// ResetPassword consumes a reset token and replaces the password. All cached
// identities for the user are invalidated so outstanding bearer tokens must
// re-resolve.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return dErrors.New(dErrors.CodeBadRequest, "reset token is required")
	}
	if len(newPassword) < passwordMinLength {
		return dErrors.Newf(dErrors.CodeBadRequest, "password must be at least %d characters", passwordMinLength)
	}

	userID, err := s.store.ConsumeResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeBadRequest, "invalid or expired reset token")
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.cache.Invalidate(userID)
	s.logger.Info("password reset completed", "user_id", userID)
	return nil
}

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateReferralCode draws random codes until one is unused.
func (s *Service) generateReferralCode(ctx context.Context) (string, error) {
	for range referralCodeAttempts {
		buf := make([]byte, referralCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		for i, b := range buf {
			buf[i] = referralAlphabet[int(b)%len(referralAlphabet)]
		}
		code := string(buf)

		_, err := s.store.FindByReferralCode(ctx, code)
		if errors.Is(err, sentinel.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
	}
	return "", fmt.Errorf("could not generate a unique referral code after %d attempts", referralCodeAttempts)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
