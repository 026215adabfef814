package policy

import (
	"testing"

	"expensehub/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOwnershipPredicates(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	tests := []struct {
		name    string
		actor   Actor
		ownerID uuid.UUID
		read    bool
		update  bool
		cancel  bool
	}{
		{
			name:    "owner can read update cancel",
			actor:   Actor{ID: owner, Role: model.RoleVendor},
			ownerID: owner,
			read:    true, update: true, cancel: true,
		},
		{
			name:    "another vendor gets nothing",
			actor:   Actor{ID: other, Role: model.RoleVendor},
			ownerID: owner,
			read:    false, update: false, cancel: false,
		},
		{
			name:    "manager reads but never edits",
			actor:   Actor{ID: other, Role: model.RoleManager},
			ownerID: owner,
			read:    true, update: false, cancel: false,
		},
		{
			name:    "admin reads but never edits either",
			actor:   Actor{ID: other, Role: model.RoleAdmin},
			ownerID: owner,
			read:    true, update: false, cancel: false,
		},
		{
			name:    "employee owner of their own request",
			actor:   Actor{ID: owner, Role: model.RoleEmployee},
			ownerID: owner,
			read:    true, update: true, cancel: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.read, CanRead(tt.actor, tt.ownerID))
			assert.Equal(t, tt.update, CanUpdate(tt.actor, tt.ownerID))
			assert.Equal(t, tt.cancel, CanCancel(tt.actor, tt.ownerID))
		})
	}
}

func TestCapabilityPredicates(t *testing.T) {
	tests := []struct {
		role        string
		review      bool
		viewAll     bool
		del         bool
		manageUsers bool
	}{
		{role: model.RoleEmployee, review: false, viewAll: false, del: false, manageUsers: false},
		{role: model.RoleVendor, review: false, viewAll: false, del: false, manageUsers: false},
		{role: model.RoleManager, review: true, viewAll: true, del: false, manageUsers: false},
		{role: model.RoleAdmin, review: true, viewAll: true, del: true, manageUsers: true},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			a := Actor{ID: uuid.New(), Role: tt.role}
			assert.Equal(t, tt.review, CanReview(a))
			assert.Equal(t, tt.review, CanMarkPaid(a))
			assert.Equal(t, tt.viewAll, CanViewAll(a))
			assert.Equal(t, tt.del, CanDelete(a))
			assert.Equal(t, tt.manageUsers, CanManageUsers(a))
		})
	}
}

func TestCanCommentFollowsReadAccess(t *testing.T) {
	owner := uuid.New()

	assert.True(t, CanComment(Actor{ID: owner, Role: model.RoleEmployee}, owner))
	assert.True(t, CanComment(Actor{ID: uuid.New(), Role: model.RoleManager}, owner))
	assert.False(t, CanComment(Actor{ID: uuid.New(), Role: model.RoleEmployee}, owner))
}
