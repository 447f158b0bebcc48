package testutil

import (
	"net/http"
	"time"

	id "registre/pkg/domain"
	"registre/pkg/requestcontext"
)

// WithUserID stamps a request with an authenticated user id, simulating what
// the auth middleware does. Invalid ids are silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithActor stamps a request with a typed user id.
func WithActor(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithTime pins the request clock so stage timestamps are deterministic.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
