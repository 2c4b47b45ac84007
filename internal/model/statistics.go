package model

import "github.com/shopspring/decimal"

// DashboardTotals holds the raw aggregates read for the dashboard.
type DashboardTotals struct {
	TotalClients       int64
	TotalEstimates     int64
	TotalInvoices      int64
	TotalPayments      int64
	InvoicesByStatus   map[string]int64
	TotalPaidAmount    decimal.Decimal
	TotalPendingAmount decimal.Decimal
}

// InvoiceStatusCount is one row of a count grouped by derived status.
type InvoiceStatusCount struct {
	Status string `gorm:"column:derived_status"`
	Count  int64  `gorm:"column:count"`
}
