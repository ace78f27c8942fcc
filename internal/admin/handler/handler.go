// Package handler wires the admin moderation endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	adminmiddleware "portalx/internal/admin/middleware"
	adminmodels "portalx/internal/admin/models"
	auditmodels "portalx/internal/audit/models"
	authmiddleware "portalx/internal/auth/middleware"
	authmodels "portalx/internal/auth/models"
	channelmodels "portalx/internal/channels/models"
	ratelimitmodels "portalx/internal/ratelimit/models"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/httputil"
	"portalx/pkg/platform/middleware/metadata"
)

// Service defines the moderation operations the handler needs.
type Service interface {
	ApproveUser(ctx context.Context, adminID, userID int64) error
	RejectUser(ctx context.Context, adminID, userID int64) error
	DeleteUser(ctx context.Context, adminID, userID int64) error
	BulkSetStatus(ctx context.Context, adminID int64, userIDs []int64, status string) (int, error)
	ListUsers(ctx context.Context, filter authmodels.ListFilter) ([]*authmodels.User, error)
	PlatformStats(ctx context.Context) (map[string]int64, error)
}

// AuditLog exposes recent audit records for the activity view.
type AuditLog interface {
	ListRecent(ctx context.Context, limit int) ([]*auditmodels.Record, error)
}

// ChannelModerator reviews channel submissions.
type ChannelModerator interface {
	List(ctx context.Context, filter channelmodels.ListFilter) ([]*channelmodels.Channel, error)
	SetStatus(ctx context.Context, id int64, status string) error
	BulkSetStatus(ctx context.Context, ids []int64, status string) (int, error)
}

// Handler serves the /api/admin endpoints.
type Handler struct {
	service  Service
	gate     *adminmiddleware.Gate
	audit    AuditLog
	channels ChannelModerator
	logger   *slog.Logger
}

type Option func(*Handler)

// WithChannelModerator enables the channel review endpoints.
func WithChannelModerator(m ChannelModerator) Option {
	return func(h *Handler) { h.channels = m }
}

func New(service Service, gate *adminmiddleware.Gate, audit AuditLog, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		gate:    gate,
		audit:   audit,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the admin endpoints. The caller wraps the router in
// RequireAdmin; per-action rate limits and permission scopes are applied
// here, per route.
func (h *Handler) Register(r chi.Router) {
	r.Get("/users", h.HandleListUsers)
	r.With(h.gate.LimitAction(ratelimitmodels.ActionApprove)).
		Post("/users/{id}/approve", h.HandleApproveUser)
	r.With(h.gate.LimitAction(ratelimitmodels.ActionReject)).
		Post("/users/{id}/reject", h.HandleRejectUser)
	r.With(h.gate.RequirePermission(adminmodels.PermManageUsers), h.gate.LimitAction(ratelimitmodels.ActionDelete)).
		Delete("/users/{id}", h.HandleDeleteUser)
	r.With(h.gate.LimitAction(ratelimitmodels.ActionBulk)).
		Post("/users/bulk-status", h.HandleBulkStatus)
	r.With(h.gate.RequirePermission(adminmodels.PermViewStats)).
		Get("/stats", h.HandleStats)
	r.Get("/logs", h.HandleLogs)

	if h.channels != nil {
		r.With(h.gate.RequirePermission(adminmodels.PermManageChannels)).
			Get("/channels", h.HandleListChannels)
		r.With(h.gate.RequirePermission(adminmodels.PermManageChannels), h.gate.LimitAction(ratelimitmodels.ActionApprove)).
			Post("/channels/{id}/approve", h.HandleApproveChannel)
		r.With(h.gate.RequirePermission(adminmodels.PermManageChannels), h.gate.LimitAction(ratelimitmodels.ActionReject)).
			Post("/channels/{id}/reject", h.HandleRejectChannel)
		r.With(h.gate.RequirePermission(adminmodels.PermManageChannels), h.gate.LimitAction(ratelimitmodels.ActionBulk)).
			Post("/channels/bulk-status", h.HandleBulkChannelStatus)
	}
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), authmodels.ListFilter{
		Status: r.URL.Query().Get("status"),
		Role:   r.URL.Query().Get("role"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":             u.ID,
			"name":           u.Name,
			"email":          u.Email,
			"username":       u.Username,
			"role":           u.Role,
			"status":         u.Status,
			"referralPoints": u.ReferralPoints,
			"createdAt":      u.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   out,
	})
}

func (h *Handler) HandleApproveUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.service.ApproveUser, "user approved")
}

func (h *Handler) HandleRejectUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.service.RejectUser, "user rejected")
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.service.DeleteUser, "user deleted")
}

func (h *Handler) userAction(w http.ResponseWriter, r *http.Request, action func(context.Context, int64, int64) error, message string) {
	ctx := r.Context()

	identity, ok := authmiddleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	if err := action(ctx, identity.ID, userID); err != nil {
		h.logger.WarnContext(ctx, "admin user action failed",
			"admin_id", identity.ID,
			"user_id", userID,
			"request_id", metadata.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

type bulkStatusRequest struct {
	UserIDs []int64 `json:"userIds"`
	Status  string  `json:"status"`
}

func (h *Handler) HandleBulkStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := authmiddleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, err := httputil.DecodeJSON[bulkStatusRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.service.BulkSetStatus(ctx, identity.ID, req.UserIDs, req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.PlatformStats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}

// HandleListChannels lists channel submissions in the review queue. The
// status filter defaults to pending.
func (h *Handler) HandleListChannels(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = channelmodels.StatusPending
	}

	channels, err := h.channels.List(r.Context(), channelmodels.ListFilter{
		Status: status,
		Sort:   "created_at",
		Order:  "asc",
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"channels": channels,
	})
}

func (h *Handler) HandleApproveChannel(w http.ResponseWriter, r *http.Request) {
	h.channelAction(w, r, channelmodels.StatusActive, "channel approved")
}

func (h *Handler) HandleRejectChannel(w http.ResponseWriter, r *http.Request) {
	h.channelAction(w, r, channelmodels.StatusRejected, "channel rejected")
}

func (h *Handler) channelAction(w http.ResponseWriter, r *http.Request, status, message string) {
	ctx := r.Context()

	channelID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid channel id"))
		return
	}

	if err := h.channels.SetStatus(ctx, channelID, status); err != nil {
		h.logger.WarnContext(ctx, "channel moderation failed",
			"channel_id", channelID,
			"request_id", metadata.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

type bulkChannelStatusRequest struct {
	ChannelIDs []int64 `json:"channelIds"`
	Status     string  `json:"status"`
}

func (h *Handler) HandleBulkChannelStatus(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[bulkChannelStatusRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.channels.BulkSetStatus(r.Context(), req.ChannelIDs, req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
	})
}

func (h *Handler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.audit.ListRecent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		entry := map[string]any{
			"id":        rec.ID,
			"action":    rec.Action,
			"ipAddress": rec.IPAddress,
			"userAgent": rec.UserAgent,
			"path":      rec.Path,
			"method":    rec.Method,
			"success":   rec.Success,
			"createdAt": rec.CreatedAt,
		}
		if rec.ActorID != nil {
			entry["userId"] = *rec.ActorID
		}
		if rec.AttemptedCode != "" {
			entry["attemptedCode"] = rec.AttemptedCode
		}
		out = append(out, entry)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"logs":    out,
	})
}
