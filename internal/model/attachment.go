package model

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is a file reference owned by a request or an invoice. It lives
// and dies with its parent record.
type Attachment struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	OwnerType  string    `gorm:"type:varchar(20);not null;index" json:"owner_type"` // request or invoice
	FileName   string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FileURL    string    `gorm:"type:text;not null" json:"file_url"`
	FileType   string    `gorm:"type:varchar(100)" json:"file_type"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}
