package workflow

import (
	"testing"

	"expensehub/internal/model"
	"expensehub/pkg/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		entity   Entity
		op       Op
		from     string
		wantNext string
		wantErr  bool
	}{
		{name: "approve pending request", entity: EntityRequest, op: OpApprove, from: "pending", wantNext: "approved"},
		{name: "reject pending request", entity: EntityRequest, op: OpReject, from: "pending", wantNext: "rejected"},
		{name: "cancel pending request", entity: EntityRequest, op: OpCancel, from: "pending", wantNext: "cancelled"},
		{name: "approve approved request fails", entity: EntityRequest, op: OpApprove, from: "approved", wantErr: true},
		{name: "approve rejected request fails", entity: EntityRequest, op: OpApprove, from: "rejected", wantErr: true},
		{name: "cancel approved request fails", entity: EntityRequest, op: OpCancel, from: "approved", wantErr: true},
		{name: "pay is not defined for requests", entity: EntityRequest, op: OpPay, from: "approved", wantErr: true},

		{name: "approve pending invoice", entity: EntityInvoice, op: OpApprove, from: "pending", wantNext: "approved"},
		{name: "approve draft invoice fails", entity: EntityInvoice, op: OpApprove, from: "draft", wantErr: true},
		{name: "pay approved invoice", entity: EntityInvoice, op: OpPay, from: "approved", wantNext: "paid"},
		{name: "pay pending invoice fails", entity: EntityInvoice, op: OpPay, from: "pending", wantErr: true},
		{name: "pay paid invoice fails", entity: EntityInvoice, op: OpPay, from: "paid", wantErr: true},
		{name: "cancel draft invoice", entity: EntityInvoice, op: OpCancel, from: "draft", wantNext: "cancelled"},
		{name: "cancel pending invoice", entity: EntityInvoice, op: OpCancel, from: "pending", wantNext: "cancelled"},
		{name: "cancel approved invoice fails", entity: EntityInvoice, op: OpCancel, from: "approved", wantErr: true},
		{name: "no un-approve", entity: EntityInvoice, op: OpReject, from: "approved", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Next(tt.entity, tt.op, tt.from)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantNext, next)
		})
	}
}

func TestMutable(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		status string
		want   bool
	}{
		{name: "pending request is editable", entity: EntityRequest, status: "pending", want: true},
		{name: "approved request is frozen", entity: EntityRequest, status: "approved", want: false},
		{name: "cancelled request is frozen", entity: EntityRequest, status: "cancelled", want: false},
		{name: "draft invoice is editable", entity: EntityInvoice, status: "draft", want: true},
		{name: "pending invoice is editable", entity: EntityInvoice, status: "pending", want: true},
		{name: "approved invoice is frozen", entity: EntityInvoice, status: "approved", want: false},
		{name: "paid invoice is frozen", entity: EntityInvoice, status: "paid", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mutable(tt.entity, tt.status))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(EntityRequest, model.RequestStatusCancelled))
	assert.True(t, Terminal(EntityRequest, model.RequestStatusRejected))
	assert.False(t, Terminal(EntityRequest, model.RequestStatusPending))

	assert.True(t, Terminal(EntityInvoice, model.InvoiceStatusPaid))
	assert.True(t, Terminal(EntityInvoice, model.InvoiceStatusCancelled))
	// Approved invoices can still be paid.
	assert.False(t, Terminal(EntityInvoice, model.InvoiceStatusApproved))
}

func TestInitial(t *testing.T) {
	assert.Equal(t, model.RequestStatusPending, Initial(EntityRequest))
	assert.Equal(t, model.InvoiceStatusPending, Initial(EntityInvoice))
}
