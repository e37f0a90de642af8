// Package guard centralizes resource ownership decisions. Every handler that
// touches an owner-scoped resource goes through one of the two entry points
// here rather than comparing ids inline.
package guard

import (
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/sentinel"

	"serenyx/internal/identity"
)

// Owned is anything carrying an owner id.
type Owned interface {
	Owner() string
}

// Authorize returns a Forbidden error when subject does not own the resource.
// Use this where the caller already knows the resource exists, e.g. contest
// submission of someone else's pet.
func Authorize(subject identity.Subject, resource Owned) error {
	if subject.ID == resource.Owner() {
		return nil
	}
	return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeForbidden, "not the owner of this resource")
}

// AuthorizeMasked behaves like Authorize but reports NotFound, so callers
// cannot distinguish a foreign resource from a missing one. Owner-scoped CRUD
// uses this to avoid leaking resource existence across accounts.
func AuthorizeMasked(subject identity.Subject, resource Owned) error {
	if subject.ID == resource.Owner() {
		return nil
	}
	return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "resource not found")
}
