package model

import "time"

// SequenceKind enum constants
const (
	SequenceKindEstimate = "ESTIMATE"
	SequenceKindInvoice  = "INVOICE"
)

// DocumentSequence is the per-kind counter behind estimate and invoice numbers.
// The row is locked for the duration of the issuing transaction.
type DocumentSequence struct {
	Kind      string    `gorm:"type:varchar(20);primaryKey" json:"kind"`
	LastValue int64     `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time `json:"updated_at"`
}
