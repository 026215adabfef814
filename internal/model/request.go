package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestType enum constants
const (
	RequestTypeExpense   = "expense"
	RequestTypeLeave     = "leave"
	RequestTypeEquipment = "equipment"
	RequestTypeTravel    = "travel"
	RequestTypeTraining  = "training"
	RequestTypeOther     = "other"
)

// Request status enum constants
const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusCancelled = "cancelled"
)

// Priority enum constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Request represents an employee submission (expense claim, leave, equipment,
// travel, training). Once it leaves pending it is immutable except for
// comment appends; the owner never changes.
type Request struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title           string          `gorm:"type:varchar(200);not null" json:"title"`
	Description     string          `gorm:"type:varchar(2000);not null" json:"description"`
	Type            string          `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"amount"`
	Currency        string          `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	Status          string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority        string          `gorm:"type:varchar(10);not null;default:'medium';index" json:"priority"`
	RequestedBy     uuid.UUID       `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester       *User           `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	ApprovedBy      *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	Approver        *User           `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovalDate    *time.Time      `json:"approval_date"`
	RejectionReason string          `gorm:"type:text" json:"rejection_reason"`
	StartDate       *time.Time      `json:"start_date"`
	EndDate         *time.Time      `json:"end_date"`
	Category        string          `gorm:"type:varchar(100)" json:"category"`
	ReceiptNumber   string          `gorm:"type:varchar(100)" json:"receipt_number"`
	Comments        []Comment       `gorm:"foreignKey:RequestID" json:"comments,omitempty"`
	Attachments     []Attachment    `gorm:"polymorphic:Owner;polymorphicValue:request" json:"attachments,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Comment is owned by its parent request and has no independent lifecycle
type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ValidRequestType reports whether t is a known request type
func ValidRequestType(t string) bool {
	switch t {
	case RequestTypeExpense, RequestTypeLeave, RequestTypeEquipment,
		RequestTypeTravel, RequestTypeTraining, RequestTypeOther:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
