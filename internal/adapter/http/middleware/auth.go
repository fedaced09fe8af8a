package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
)

// --- base auth middleware ---

// Auth validates JWT, loads user and injects it into context.
// A missing header yields an anonymous user; an invalid token yields 401.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		query := r.URL.Query().Get("access_token")
		// no credentials: anonymous user, protected routes answer 401 via RequireAuth
		if header == "" && query == "" {
			r = r.WithContext(models.WithUser(ctx, models.AnonymousUser()))
			next.ServeHTTP(w, r)
			return
		}

		// websocket clients that cannot set headers pass the token in the query
		token := query
		if header != "" {
			var err error
			token, err = extractBearerToken(header)
			if err != nil {
				errorResponse(w, r, http.StatusUnauthorized, err.Error())
				return
			}
		}

		user, err := h.auth.RoleCheck(ctx, token)
		if err != nil || user == nil {
			h.log.Error(wrap.ErrorCtx(ctx, err), "failed to authenticate user", err)
			errorResponse(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(models.WithUser(ctx, user)))
	})
}

// RequireAuth rejects anonymous callers with 401.
func (h *Middleware) RequireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := models.UserFromContext(r.Context())
		if user.IsAnonymous() {
			errorResponse(w, r, http.StatusUnauthorized, types.ErrUnauthorized.Error())
			return
		}

		ctx := wrap.WithUserID(r.Context(), user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
