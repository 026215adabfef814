// Package workflow defines the status-transition rules shared by requests
// and invoices. Both entities move through the same shape of lifecycle;
// invoices add the draft and paid states. Every rule lives in one table so
// handlers and services never duplicate status checks.
package workflow

import (
	"expensehub/internal/model"
	"expensehub/pkg/apperrors"
)

// Entity selects which transition table applies
type Entity string

const (
	EntityRequest Entity = "request"
	EntityInvoice Entity = "invoice"
)

// Op is a status-changing operation
type Op string

const (
	OpApprove Op = "approve"
	OpReject  Op = "reject"
	OpPay     Op = "pay"
	OpCancel  Op = "cancel"
)

// transitions: entity × op × current status → next status. An absent entry
// means the operation is not allowed from that status.
var transitions = map[Entity]map[Op]map[string]string{
	EntityRequest: {
		OpApprove: {model.RequestStatusPending: model.RequestStatusApproved},
		OpReject:  {model.RequestStatusPending: model.RequestStatusRejected},
		OpCancel:  {model.RequestStatusPending: model.RequestStatusCancelled},
	},
	EntityInvoice: {
		OpApprove: {model.InvoiceStatusPending: model.InvoiceStatusApproved},
		OpReject:  {model.InvoiceStatusPending: model.InvoiceStatusRejected},
		OpPay:     {model.InvoiceStatusApproved: model.InvoiceStatusPaid},
		OpCancel: {
			model.InvoiceStatusDraft:   model.InvoiceStatusCancelled,
			model.InvoiceStatusPending: model.InvoiceStatusCancelled,
		},
	},
}

// mutable: statuses in which the owner may still edit the record
var mutable = map[Entity]map[string]bool{
	EntityRequest: {model.RequestStatusPending: true},
	EntityInvoice: {
		model.InvoiceStatusDraft:   true,
		model.InvoiceStatusPending: true,
	},
}

// Next returns the status the record moves to when op is applied from the
// given status, or a conflict error when the transition is not allowed.
func Next(entity Entity, op Op, from string) (string, error) {
	ops, ok := transitions[entity]
	if !ok {
		return "", apperrors.Conflict("unknown entity %q", entity)
	}
	table, ok := ops[op]
	if !ok {
		return "", apperrors.Conflict("operation %q is not defined for %s", op, entity)
	}
	next, ok := table[from]
	if !ok {
		return "", apperrors.Conflict("cannot %s a %s %s", op, from, entity)
	}
	return next, nil
}

// Allowed reports whether op may be applied from the given status
func Allowed(entity Entity, op Op, from string) bool {
	_, err := Next(entity, op, from)
	return err == nil
}

// Mutable reports whether the owner may still edit a record in this status
func Mutable(entity Entity, status string) bool {
	return mutable[entity][status]
}

// Cancellable reports whether the owner may cancel a record in this status.
// The cancellable set equals the mutable set for both entities.
func Cancellable(entity Entity, status string) bool {
	return Allowed(entity, OpCancel, status)
}

// Initial returns the status a freshly created record starts in
func Initial(entity Entity) string {
	if entity == EntityInvoice {
		return model.InvoiceStatusPending
	}
	return model.RequestStatusPending
}

// Terminal reports whether no further status change can ever apply
func Terminal(entity Entity, status string) bool {
	for _, table := range transitions[entity] {
		if _, ok := table[status]; ok {
			return false
		}
	}
	return true
}
