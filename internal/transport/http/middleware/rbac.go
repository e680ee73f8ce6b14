package middleware

import (
	"net/http"

	"leavedesk/internal/domain/permission"
	"leavedesk/internal/transport/http/api"
)

// RequireApprover gates routes on the role policy's approval capability.
func RequireApprover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		if !permission.ResolvePolicy(user.Role).CanApprove {
			api.Fail(w, http.StatusForbidden, "forbidden", "approval capability required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
