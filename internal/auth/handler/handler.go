// Package handler wires the account endpoints to the auth service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portalx/internal/auth/middleware"
	"portalx/internal/auth/models"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/httputil"
	"portalx/pkg/platform/middleware/metadata"
)

// Service defines the account operations the handler needs.
type Service interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, models.Identity, error)
	Logout(ctx context.Context, userID int64)
	Me(ctx context.Context, userID int64) (*models.User, error)
	ForgotPassword(ctx context.Context, email, accessCode string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// StatsProvider supplies per-user channel statistics for the /me response.
type StatsProvider interface {
	UserStats(ctx context.Context, userID int64) (*UserStats, error)
}

// UserStats aggregates a user's channel activity.
type UserStats struct {
	TotalChannels int64 `json:"totalChannels"`
	TotalMembers  int64 `json:"totalMembers"`
	TotalViews    int64 `json:"totalViews"`
}

// Handler serves the /api/auth endpoints.
type Handler struct {
	service Service
	stats   StatsProvider
	logger  *slog.Logger
}

type Option func(*Handler)

// WithStatsProvider enriches the /me response with channel statistics.
func WithStatsProvider(p StatsProvider) Option {
	return func(h *Handler) { h.stats = p }
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterProtected mounts the endpoints that require an authenticated
// identity. The caller applies the authentication middleware.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/me", h.HandleMe)
	r.Post("/logout", h.HandleLogout)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[registerRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.service.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", metadata.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "account created, awaiting admin approval",
		"user": map[string]any{
			"id":           user.ID,
			"name":         user.Name,
			"email":        user.Email,
			"referralCode": user.ReferralCode,
			"status":       user.Status,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[loginRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	signed, identity, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", metadata.GetRequestID(ctx),
			"ip", metadata.GetClientIP(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		"request_id", metadata.GetRequestID(ctx),
		"user_id", identity.ID,
	)

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   signed,
		"user":    identity,
	})
}

// HandleMe handles GET /api/auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	user, err := h.service.Me(ctx, identity.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	payload := map[string]any{
		"id":             user.ID,
		"name":           user.Name,
		"email":          user.Email,
		"username":       user.Username,
		"avatarUrl":      user.AvatarURL,
		"role":           user.Role,
		"status":         user.Status,
		"referralCode":   user.ReferralCode,
		"referralPoints": user.ReferralPoints,
		"isAdmin":        user.Role == models.RoleAdmin,
		"createdAt":      user.CreatedAt,
	}

	if h.stats != nil {
		stats, err := h.stats.UserStats(ctx, user.ID)
		if err != nil {
			// Stats are decoration on the profile, not part of it.
			h.logger.WarnContext(ctx, "failed to load user stats",
				"user_id", user.ID, "error", err)
		} else {
			payload["stats"] = stats
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    payload,
	})
}

// HandleLogout handles POST /api/auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	h.service.Logout(ctx, identity.ID)

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "logged out",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// HandleForgotPassword handles POST /api/auth/forgot-password.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[forgotPasswordRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resetToken, err := h.service.ForgotPassword(ctx, req.Email, req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := map[string]any{
		"success": true,
		"message": "if the email exists, recovery instructions will be sent",
	}
	if resetToken != "" {
		// TODO: deliver by email once an outbound mail provider is configured.
		resp["resetToken"] = resetToken
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandleResetPassword handles POST /api/auth/reset-password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[resetPasswordRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "password changed",
	})
}
