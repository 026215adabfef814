package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice status enum constants
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusPending   = "pending"
	InvoiceStatusApproved  = "approved"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusRejected  = "rejected"
	InvoiceStatusCancelled = "cancelled"
)

// PaymentMethod enum constants
const (
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCheck        = "check"
	PaymentMethodCreditCard   = "credit_card"
	PaymentMethodCash         = "cash"
	PaymentMethodOther        = "other"
)

// DefaultClientName is the billing target filled in when a vendor omits it
const DefaultClientName = "ExpenseHub Inc."

// VendorDetails is the vendor's own billing block on an invoice
type VendorDetails struct {
	CompanyName string `gorm:"type:varchar(200)" json:"company_name"`
	Address     string `gorm:"type:text" json:"address"`
	Phone       string `gorm:"type:varchar(20)" json:"phone"`
	Email       string `gorm:"type:varchar(255)" json:"email"`
	TaxID       string `gorm:"type:varchar(50)" json:"tax_id"`
}

// ClientDetails is the billed party block on an invoice
type ClientDetails struct {
	CompanyName string `gorm:"type:varchar(200)" json:"company_name"`
	Address     string `gorm:"type:text" json:"address"`
	Email       string `gorm:"type:varchar(255)" json:"email"`
}

// InvoiceItem is a single billed line. Amount is always quantity * unit price,
// recomputed server-side.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Position    int             `gorm:"not null;default:0" json:"-"` // preserves line order
}

// Invoice represents a vendor bill moving through the approval workflow.
// Subtotal, tax amount and total are derived from the items and never
// accepted as client input. The invoice number is assigned exactly once at
// create and is immutable.
type Invoice struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber    string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	Title            string          `gorm:"type:varchar(200);not null" json:"title"`
	Description      string          `gorm:"type:varchar(2000)" json:"description"`
	VendorID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor           *User           `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	VendorDetails    VendorDetails   `gorm:"embedded;embeddedPrefix:vendor_" json:"vendor_details"`
	Client           ClientDetails   `gorm:"embedded;embeddedPrefix:client_" json:"client"`
	Items            []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TaxRate          decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	Discount         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Currency         string          `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	Status           string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IssueDate        time.Time       `gorm:"not null" json:"issue_date"`
	DueDate          time.Time       `gorm:"not null;index" json:"due_date"`
	PaidDate         *time.Time      `json:"paid_date"`
	PaymentMethod    string          `gorm:"type:varchar(20);not null;default:'bank_transfer'" json:"payment_method"`
	PaymentReference string          `gorm:"type:varchar(100)" json:"payment_reference"`
	ApprovedBy       *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	Approver         *User           `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovalDate     *time.Time      `json:"approval_date"`
	RejectionReason  string          `gorm:"type:text" json:"rejection_reason"`
	Notes            string          `gorm:"type:text" json:"notes"`
	Attachments      []Attachment    `gorm:"polymorphic:Owner;polymorphicValue:invoice" json:"attachments,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Recalculate recomputes every derived financial field from the line items,
// tax rate and discount. Item amounts are overwritten with quantity * unit
// price; subtotal, tax amount and total follow. No-op without items, so a
// metadata-only update never zeroes a stored invoice.
func (inv *Invoice) Recalculate() {
	if len(inv.Items) == 0 {
		return
	}

	subtotal := decimal.Zero
	for i := range inv.Items {
		inv.Items[i].Amount = inv.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(inv.Items[i].Quantity)))
		inv.Items[i].Position = i
		subtotal = subtotal.Add(inv.Items[i].Amount)
	}

	inv.Subtotal = subtotal
	inv.TaxAmount = subtotal.Mul(inv.TaxRate).Div(decimal.NewFromInt(100))
	inv.TotalAmount = subtotal.Add(inv.TaxAmount).Sub(inv.Discount)
}

// InvoiceSequence is the per-year atomic counter backing invoice number
// assignment. Updated with an upsert-increment so at most one create can
// claim a given number.
type InvoiceSequence struct {
	Year   int   `gorm:"primaryKey" json:"year"`
	LastNo int64 `gorm:"not null;default:0" json:"last_no"`
}

// ValidPaymentMethod reports whether m is a known payment method
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodCreditCard,
		PaymentMethodCash, PaymentMethodOther:
		return true
	}
	return false
}
