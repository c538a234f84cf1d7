package middleware

import (
	"net/http"

	perr "syncfabric/internal/platform/errors"
	pnet "syncfabric/internal/platform/net"
)

// AuthPort is the seam the auth service implements
type AuthPort interface {
	// Parse returns the authenticated user and an admin flag from the request
	Parse(r *http.Request) (userID string, admin bool, err error)
}

// Auth authenticates every request through the port and stashes the principal
// on the context. A nil port passes everything through (tests, public routes).
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			uid, admin, err := p.Parse(r)
			if err != nil {
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithUser(r.Context(), uid, admin)))
		})
	}
}

// RequireAdmin rejects requests whose principal lacks the admin role
func RequireAdmin(write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !pnet.IsAdmin(r.Context()) {
				status, body := pnet.Error(perr.Forbiddenf("admin required"), pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
