package testutil

import (
	"net/http"
	"time"

	id "caretrail/pkg/domain"
	"caretrail/pkg/requestcontext"
)

// WithActor adds an actor ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If actorID is not a valid UUID, the request is returned unchanged.
func WithActor(req *http.Request, actorID string) *http.Request {
	if parsed, err := id.ParseActorID(actorID); err == nil {
		return req.WithContext(requestcontext.WithActorID(req.Context(), parsed))
	}
	return req
}

// WithRequestID adds a request ID to the request context, matching what the
// RequestID middleware would assign.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request-scoped clock, so handlers under test see
// a deterministic time.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
