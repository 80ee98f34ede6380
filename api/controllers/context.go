package controllers

import (
	"net"
	"net/http"

	"github.com/aarvika/storefront-backend/api/middleware"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

// userIDFromRequest resolves the authenticated user's UUID from the request
// context seeded by the auth middleware.
func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
