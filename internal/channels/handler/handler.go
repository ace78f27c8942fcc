// Package handler wires the channel directory endpoints to the channel
// service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"portalx/internal/auth/middleware"
	authmodels "portalx/internal/auth/models"
	"portalx/internal/channels/models"
	"portalx/internal/channels/service"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/httputil"
	"portalx/pkg/platform/middleware/metadata"
)

// Service defines the channel operations the handler needs.
type Service interface {
	Submit(ctx context.Context, owner authmodels.Identity, in service.SubmitInput) (*models.Channel, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Channel, error)
	Get(ctx context.Context, viewer authmodels.Identity, id int64) (*models.Channel, error)
	RecordView(ctx context.Context, id int64) error
	Delete(ctx context.Context, actor authmodels.Identity, id int64) error
	Mine(ctx context.Context, userID int64) ([]*models.Channel, error)
}

// Handler serves the /api/channels endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public directory endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Get("/{id}", h.HandleGet)
	r.Post("/{id}/metrics", h.HandleRecordView)
}

// RegisterProtected mounts the endpoints that require an authenticated
// identity. The caller applies the authentication middleware.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/", h.HandleSubmit)
	r.Get("/my", h.HandleMine)
	r.Delete("/{id}", h.HandleDelete)
}

// HandleList handles GET /api/channels. Only live channels are listed.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.ListFilter{
		Status:   models.StatusActive,
		Category: q.Get("category"),
		State:    q.Get("state"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
	}
	if v := q.Get("premium"); v != "" {
		premium := v == "true"
		filter.Premium = &premium
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	channels, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"channels": channels,
		"page":     filter.Page,
		"limit":    filter.Limit,
	})
}

// HandleGet handles GET /api/channels/{id}. An anonymous viewer resolves to
// the zero identity, which sees active channels only.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := channelID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	viewer, _ := middleware.GetIdentity(r.Context())
	channel, err := h.service.Get(r.Context(), viewer, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"channel": channel,
	})
}

// HandleRecordView handles POST /api/channels/{id}/metrics.
func (h *Handler) HandleRecordView(w http.ResponseWriter, r *http.Request) {
	id, err := channelID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RecordView(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleSubmit handles POST /api/channels.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	in, err := httputil.DecodeJSON[service.SubmitInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	channel, err := h.service.Submit(ctx, identity, in)
	if err != nil {
		h.logger.WarnContext(ctx, "channel submission failed",
			"request_id", metadata.GetRequestID(ctx),
			"user_id", identity.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "channel submitted for review",
		"channel": channel,
	})
}

// HandleMine handles GET /api/channels/my.
func (h *Handler) HandleMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	channels, err := h.service.Mine(ctx, identity.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"channels": channels,
	})
}

// HandleDelete handles DELETE /api/channels/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	id, err := channelID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, identity, id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "channel deleted",
	})
}

func channelID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid channel id")
	}
	return id, nil
}
