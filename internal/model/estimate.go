package model

import (
	"time"

	"invoicing/internal/gst"
	"invoicing/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EstimateStatus enum constants
const (
	EstimateStatusDraft     = "DRAFT"
	EstimateStatusSent      = "SENT"
	EstimateStatusApproved  = "APPROVED"
	EstimateStatusConverted = "CONVERTED"
)

// estimateTransitions lists the forward moves a caller may request.
// CONVERTED is only reachable through conversion.
var estimateTransitions = map[string][]string{
	EstimateStatusDraft: {EstimateStatusSent, EstimateStatusApproved},
	EstimateStatusSent:  {EstimateStatusApproved},
}

// Estimate is a quotation sent to a client before invoicing.
// GSTAmount and Total are derived from Subtotal at a flat rate.
type Estimate struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EstimateNo string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"estimate_no"`
	ClientID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client     *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items      string          `gorm:"type:text" json:"items"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	GSTAmount  decimal.Decimal `gorm:"column:gst_amount;type:decimal(15,2);not null;default:0" json:"gst_amount"`
	Total      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total"`
	Status     string          `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	InvoiceID  *uuid.UUID      `gorm:"type:uuid;index" json:"invoice_id"` // set once on conversion
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (e *Estimate) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// SetSubtotal stores the subtotal and re-derives GSTAmount and Total.
func (e *Estimate) SetSubtotal(subtotal decimal.Decimal) error {
	gstAmount, total, err := gst.EstimateTax(subtotal)
	if err != nil {
		return err
	}
	e.Subtotal = gst.Round(subtotal)
	e.GSTAmount = gstAmount
	e.Total = total
	return nil
}

// CanTransitionEstimate reports whether a caller may move an estimate from one status to another.
// Staying in the same non-terminal status is allowed.
func CanTransitionEstimate(from, to string) bool {
	if from == EstimateStatusConverted || to == EstimateStatusConverted {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range estimateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo applies a caller-requested status change.
func (e *Estimate) TransitionTo(status string) error {
	switch status {
	case EstimateStatusDraft, EstimateStatusSent, EstimateStatusApproved, EstimateStatusConverted:
	default:
		return apperror.InvalidInput("unknown estimate status %q", status)
	}
	if !CanTransitionEstimate(e.Status, status) {
		return apperror.InvalidState("estimate %s cannot move from %s to %s", e.EstimateNo, e.Status, status)
	}
	e.Status = status
	return nil
}

// EnsureEditable fails once the estimate has been converted.
func (e *Estimate) EnsureEditable() error {
	if e.Status == EstimateStatusConverted {
		return apperror.InvalidState("estimate %s is already converted", e.EstimateNo)
	}
	return nil
}

// MarkConverted records the invoice produced from this estimate.
func (e *Estimate) MarkConverted(invoiceID uuid.UUID) error {
	if e.Status != EstimateStatusApproved {
		return apperror.InvalidState("only approved estimates can be converted, %s is %s", e.EstimateNo, e.Status)
	}
	e.Status = EstimateStatusConverted
	e.InvoiceID = &invoiceID
	return nil
}

// ReleaseInvoice undoes MarkConverted after the invoice is deleted, leaving
// the estimate APPROVED and convertible again.
func (e *Estimate) ReleaseInvoice(invoiceID uuid.UUID) error {
	if e.Status != EstimateStatusConverted || e.InvoiceID == nil || *e.InvoiceID != invoiceID {
		return apperror.InvalidState("estimate %s is not linked to invoice %s", e.EstimateNo, invoiceID)
	}
	e.Status = EstimateStatusApproved
	e.InvoiceID = nil
	return nil
}
