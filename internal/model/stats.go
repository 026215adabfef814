package model

import "github.com/shopspring/decimal"

// StatusStat is one aggregation bucket grouped by status
type StatusStat struct {
	Status      string          `gorm:"column:status" json:"status"`
	Count       int64           `gorm:"column:count" json:"count"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount" json:"total_amount"`
}

// TypeStat is one aggregation bucket grouped by request type
type TypeStat struct {
	Type        string          `gorm:"column:type" json:"type"`
	Count       int64           `gorm:"column:count" json:"count"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount" json:"total_amount"`
}

// MonthlyStat is one calendar-month aggregation bucket
type MonthlyStat struct {
	Year        int             `gorm:"column:year" json:"year"`
	Month       int             `gorm:"column:month" json:"month"`
	Count       int64           `gorm:"column:count" json:"count"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount" json:"total_amount"`
}

// RoleStat is one user-count bucket grouped by role
type RoleStat struct {
	Role  string `gorm:"column:role" json:"role"`
	Count int64  `gorm:"column:count" json:"count"`
}

// RequestStats is the aggregate report for requests
type RequestStats struct {
	TotalRequests int64        `json:"total_requests"`
	ByStatus      []StatusStat `json:"by_status"`
	ByType        []TypeStat   `json:"by_type"`
}

// InvoiceStats is the aggregate report for invoices
type InvoiceStats struct {
	TotalInvoices int64         `json:"total_invoices"`
	ByStatus      []StatusStat  `json:"by_status"`
	Monthly       []MonthlyStat `json:"monthly"`
}

// UserStats is the aggregate report for user accounts
type UserStats struct {
	TotalUsers    int64      `json:"total_users"`
	ActiveUsers   int64      `json:"active_users"`
	InactiveUsers int64      `json:"inactive_users"`
	ByRole        []RoleStat `json:"by_role"`
}
