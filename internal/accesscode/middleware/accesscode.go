// Package middleware gates registration and login behind the shared site
// access code.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"portalx/internal/accesscode/models"
	"portalx/internal/accesscode/service"
	"portalx/pkg/platform/httputil"
	"portalx/pkg/platform/middleware/metadata"
)

const (
	sessionHeader = "X-Session-Token"
	sessionCookie = "sessionToken"

	maxPeekBody = 1 << 20 // request bodies past the gate are small JSON
)

// Gate enforces a valid access session, or a correct access code carried in
// the request body, before the wrapped handler runs.
type Gate struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Gate {
	return &Gate{service: svc, logger: logger}
}

// VerifyAccessCode admits requests that carry a valid session token in the
// X-Session-Token header or a sessionToken cookie. Without one, the request
// body is peeked for a "code" field; a correct code issues a fresh session,
// echoed back in the response header, and the request proceeds with its body
// intact.
func (g *Gate) VerifyAccessCode(accessType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := sessionToken(r); token != "" {
				if err := g.service.CheckSession(ctx, token, accessType); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			code, restore, err := peekCode(r)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			r.Body = restore

			session, err := g.service.VerifyCode(ctx, code, accessType,
				metadata.GetClientIP(ctx), metadata.GetUserAgent(ctx))
			if err != nil {
				g.logger.WarnContext(ctx, "access code rejected",
					"access_type", accessType,
					"ip", metadata.GetClientIP(ctx),
					"request_id", metadata.GetRequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}

			w.Header().Set(sessionHeader, session.Token)
			next.ServeHTTP(w, r)
		})
	}
}

// VerifyUserCode gates with the user access code.
func (g *Gate) VerifyUserCode(next http.Handler) http.Handler {
	return g.VerifyAccessCode(models.TypeUser)(next)
}

// VerifyAdminCode gates with the admin access code.
func (g *Gate) VerifyAdminCode(next http.Handler) http.Handler {
	return g.VerifyAccessCode(models.TypeAdmin)(next)
}

func sessionToken(r *http.Request) string {
	if token := r.Header.Get(sessionHeader); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// peekCode reads the code out of the JSON body without consuming it for the
// downstream handler.
func peekCode(r *http.Request) (string, io.ReadCloser, error) {
	if r.Body == nil {
		return "", http.NoBody, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
	_ = r.Body.Close()
	if err != nil {
		return "", nil, err
	}
	restore := io.NopCloser(bytes.NewReader(raw))

	var body struct {
		Code       string `json:"code"`
		AccessCode string `json:"accessCode"`
	}
	// A malformed body is not the gate's concern; pass it through and let
	// the handler produce the decode error.
	_ = json.Unmarshal(raw, &body)

	code := body.Code
	if code == "" {
		code = body.AccessCode
	}
	return code, restore, nil
}
