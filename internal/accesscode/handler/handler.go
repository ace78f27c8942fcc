// Package handler exposes the access-code verification endpoint.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portalx/internal/accesscode/models"
	"portalx/internal/accesscode/service"
	"portalx/pkg/platform/httputil"
	"portalx/pkg/platform/middleware/metadata"
)

// Handler serves POST /api/auth/verify-code.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the verification endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify-code", h.HandleVerifyCode)
}

type verifyCodeRequest struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

// HandleVerifyCode exchanges a correct access code for a session token.
func (h *Handler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[verifyCodeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Type == "" {
		req.Type = models.TypeUser
	}

	session, err := h.service.VerifyCode(ctx, req.Code, req.Type,
		metadata.GetClientIP(ctx), metadata.GetUserAgent(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"sessionToken": session.Token,
		"expiresIn":    int(h.service.SessionTTL().Seconds()),
	})
}
