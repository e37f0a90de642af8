// Package identity resolves opaque bearer credentials into verified subjects.
// Resolution happens exactly once per request, before any resource access; a
// failed resolution terminates the request.
package identity

import (
	"context"
)

// Subject is the authenticated identity making a request. Never persisted by
// this layer; profile documents are a separate concern of the users service.
type Subject struct {
	ID            string
	Email         string
	EmailVerified bool
	Roles         map[string]struct{}
}

// HasRole reports whether the subject carries the named role.
func (s Subject) HasRole(role string) bool {
	_, ok := s.Roles[role]
	return ok
}

// Verifier checks an opaque bearer credential against the upstream identity
// provider. Absent, malformed, expired, and rejected credentials are all the
// same failure kind (CodeUnauthorized); callers cannot distinguish them.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Subject, error)
}

type subjectKey struct{}

// WithSubject injects the verified subject into the request context.
func WithSubject(ctx context.Context, sub Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// FromContext retrieves the verified subject set by the auth middleware.
func FromContext(ctx context.Context) (Subject, bool) {
	sub, ok := ctx.Value(subjectKey{}).(Subject)
	return sub, ok
}
