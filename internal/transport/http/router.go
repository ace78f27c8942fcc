// Package httptransport assembles the HTTP surface: middleware chain,
// route groups and their admission gates.
package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accesscodehandler "portalx/internal/accesscode/handler"
	accesscodemiddleware "portalx/internal/accesscode/middleware"
	adminhandler "portalx/internal/admin/handler"
	adminmiddleware "portalx/internal/admin/middleware"
	authhandler "portalx/internal/auth/handler"
	authmiddleware "portalx/internal/auth/middleware"
	channelshandler "portalx/internal/channels/handler"
	channelsservice "portalx/internal/channels/service"
	ratelimitmiddleware "portalx/internal/ratelimit/middleware"
	ratelimitmodels "portalx/internal/ratelimit/models"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/httputil"
	"portalx/pkg/platform/middleware/metadata"
)

// Deps collects the handlers and gates the router mounts.
type Deps struct {
	Auth       *authhandler.Handler
	AccessCode *accesscodehandler.Handler
	Channels   *channelshandler.Handler
	Admin      *adminhandler.Handler

	Authenticator *authmiddleware.Authenticator
	AccessGate    *accesscodemiddleware.Gate
	AdminGate     *adminmiddleware.Gate
	RateLimits    *ratelimitmiddleware.Middleware
}

// NewRouter wires the full route tree. Client metadata and the general
// rate limit cover all of /api; stricter classes and the access-code,
// authentication and admin gates are layered per group.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "method %s not allowed", r.Method))
	})

	r.Get("/api/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(d.RateLimits.RateLimit(ratelimitmodels.ClassGeneral))

		api.Route("/auth", func(auth chi.Router) {
			auth.Group(func(g chi.Router) {
				g.Use(d.RateLimits.RateLimit(ratelimitmodels.ClassAuth))

				d.AccessCode.Register(g)
				g.Post("/forgot-password", d.Auth.HandleForgotPassword)
				g.Post("/reset-password", d.Auth.HandleResetPassword)

				// Registration and login additionally sit behind the
				// shared site access code.
				g.Group(func(gated chi.Router) {
					gated.Use(d.AccessGate.VerifyUserCode)
					gated.Post("/register", d.Auth.HandleRegister)
					gated.Post("/login", d.Auth.HandleLogin)
				})
			})

			auth.Group(func(g chi.Router) {
				g.Use(d.Authenticator.RequireAuth)
				d.Auth.RegisterProtected(g)
			})
		})

		api.Route("/channels", func(ch chi.Router) {
			ch.Get("/", searchAware(d.RateLimits, d.Channels.HandleList))
			// Owners may fetch their own pending submissions, so identity is
			// resolved when present but never required.
			ch.With(d.Authenticator.OptionalAuth).Get("/{id}", d.Channels.HandleGet)
			ch.Post("/{id}/metrics", d.Channels.HandleRecordView)

			ch.Group(func(g chi.Router) {
				g.Use(d.Authenticator.RequireAuth)
				g.With(d.RateLimits.RateLimit(ratelimitmodels.ClassChannels)).
					Post("/", d.Channels.HandleSubmit)
				g.Get("/my", d.Channels.HandleMine)
				g.Delete("/{id}", d.Channels.HandleDelete)
			})
		})

		api.Route("/admin", func(ad chi.Router) {
			ad.Use(d.Authenticator.RequireAuth)
			ad.Use(d.AccessGate.VerifyAdminCode)
			ad.Use(d.AdminGate.RequireAdmin)
			d.Admin.Register(ad)
		})
	})

	return r
}

// searchAware applies the search quota only to listing requests that carry a
// search query; plain browsing stays under the general quota.
func searchAware(limits *ratelimitmiddleware.Middleware, list http.HandlerFunc) http.HandlerFunc {
	limited := limits.RateLimit(ratelimitmodels.ClassSearch)(list)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") != "" {
			limited.ServeHTTP(w, r)
			return
		}
		list.ServeHTTP(w, r)
	}
}

// ProfileStats adapts channel totals to the profile stats payload served
// on /api/auth/me.
type ProfileStats struct {
	Channels *channelsservice.Service
}

func (p ProfileStats) UserStats(ctx context.Context, userID int64) (*authhandler.UserStats, error) {
	channels, members, views, err := p.Channels.UserTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &authhandler.UserStats{
		TotalChannels: channels,
		TotalMembers:  members,
		TotalViews:    views,
	}, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
	})
}
