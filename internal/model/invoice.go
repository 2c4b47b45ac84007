package model

import (
	"time"

	"invoicing/internal/gst"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus enum constants. Status is derived, never set by callers.
const (
	InvoiceStatusPending = "PENDING"
	InvoiceStatusPaid    = "PAID"
	InvoiceStatusOverdue = "OVERDUE"
)

// PaidEpsilon absorbs sub-paisa drift when comparing payments against a total.
var PaidEpsilon = decimal.RequireFromString("0.005")

// Invoice is a GST tax invoice. Either CGST+SGST or IGST is populated, never both.
type Invoice struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNo  string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	ClientID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client     *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	EstimateID *uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"estimate_id"` // provenance when converted
	Items      string          `gorm:"type:text" json:"items"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	CGST       decimal.Decimal `gorm:"column:cgst;type:decimal(15,2);not null;default:0" json:"cgst"`
	SGST       decimal.Decimal `gorm:"column:sgst;type:decimal(15,2);not null;default:0" json:"sgst"`
	IGST       decimal.Decimal `gorm:"column:igst;type:decimal(15,2);not null;default:0" json:"igst"`
	Total      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total"`
	InterState bool            `gorm:"not null;default:false" json:"inter_state"`
	Status     string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DueDate    *time.Time      `gorm:"index" json:"due_date"`
	Payments   []Payment       `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (inv *Invoice) BeforeCreate(tx *gorm.DB) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	return nil
}

// ApplyTax snapshots a GST breakdown onto the invoice.
func (inv *Invoice) ApplyTax(b gst.Breakdown, interState bool) {
	inv.Subtotal = b.Subtotal
	inv.CGST = b.CGST
	inv.SGST = b.SGST
	inv.IGST = b.IGST
	inv.Total = b.Total
	inv.InterState = interState
}

// TaxAmount is CGST + SGST + IGST.
func (inv *Invoice) TaxAmount() decimal.Decimal {
	return inv.CGST.Add(inv.SGST).Add(inv.IGST)
}

// DeriveStatus recomputes Status from the amount paid so far and reports whether it changed.
func (inv *Invoice) DeriveStatus(paid decimal.Decimal, now time.Time) bool {
	next := DeriveInvoiceStatus(inv.Total, paid, inv.DueDate, now)
	changed := next != inv.Status
	inv.Status = next
	return changed
}

// StatusAsOf is the stored status with a PENDING invoice past its due day read as OVERDUE.
func (inv *Invoice) StatusAsOf(now time.Time) string {
	if inv.Status == InvoiceStatusPending && IsPastDue(inv.DueDate, now) {
		return InvoiceStatusOverdue
	}
	return inv.Status
}

// DeriveInvoiceStatus applies, in order: fully paid -> PAID, due day passed -> OVERDUE, else PENDING.
func DeriveInvoiceStatus(total, paid decimal.Decimal, dueDate *time.Time, now time.Time) string {
	if paid.GreaterThanOrEqual(total.Sub(PaidEpsilon)) {
		return InvoiceStatusPaid
	}
	if IsPastDue(dueDate, now) {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusPending
}

// IsPastDue reports whether the due day lies strictly before the current UTC day.
func IsPastDue(dueDate *time.Time, now time.Time) bool {
	if dueDate == nil {
		return false
	}
	return DueDay(*dueDate).Before(DueDay(now))
}

// DueDay truncates t to midnight UTC of its calendar date.
func DueDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
