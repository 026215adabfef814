// Package policy holds the role and ownership predicates gating every
// operation. Roles are a flat capability set: manager and admin share review
// capabilities, admin alone deletes records and manages users, employee and
// vendor own their own submissions. All predicates are pure so authorization
// rules stay testable away from any handler.
package policy

import (
	"expensehub/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated user context an operation runs under
type Actor struct {
	ID   uuid.UUID
	Role string
	Name string
}

// IsReviewer reports whether the actor may approve, reject or pay records
func (a Actor) IsReviewer() bool {
	return a.Role == model.RoleManager || a.Role == model.RoleAdmin
}

// IsAdmin reports whether the actor holds admin capabilities
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// CanRead allows the owner plus any reviewer to see a record
func CanRead(a Actor, ownerID uuid.UUID) bool {
	return a.ID == ownerID || a.IsReviewer()
}

// CanUpdate allows only the owner to edit a record, regardless of role
func CanUpdate(a Actor, ownerID uuid.UUID) bool {
	return a.ID == ownerID
}

// CanCancel allows only the owner to cancel a record
func CanCancel(a Actor, ownerID uuid.UUID) bool {
	return a.ID == ownerID
}

// CanReview gates approve/reject transitions
func CanReview(a Actor) bool {
	return a.IsReviewer()
}

// CanMarkPaid gates the invoice pay transition
func CanMarkPaid(a Actor) bool {
	return a.IsReviewer()
}

// CanComment allows anyone with read access to append comments
func CanComment(a Actor, ownerID uuid.UUID) bool {
	return CanRead(a, ownerID)
}

// CanViewAll gates unscoped listings and global aggregates
func CanViewAll(a Actor) bool {
	return a.IsReviewer()
}

// CanDelete gates hard deletion of requests and invoices
func CanDelete(a Actor) bool {
	return a.IsAdmin()
}

// CanManageUsers gates admin edits and deactivation of user accounts
func CanManageUsers(a Actor) bool {
	return a.IsAdmin()
}
