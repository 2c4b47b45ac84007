package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMode enum constants
const (
	PaymentModeCash         = "Cash"
	PaymentModeUPI          = "UPI"
	PaymentModeBankTransfer = "Bank Transfer"
	PaymentModeCard         = "Card"
	PaymentModeCheque       = "Cheque"
)

var PaymentModes = []string{PaymentModeCash, PaymentModeUPI, PaymentModeBankTransfer, PaymentModeCard, PaymentModeCheque}

func IsValidPaymentMode(mode string) bool {
	for _, m := range PaymentModes {
		if m == mode {
			return true
		}
	}
	return false
}

// Payment is money received against one invoice. Rows are never updated, only deleted.
type Payment struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Mode           string          `gorm:"type:varchar(20);not null" json:"mode"`
	TransactionRef string          `gorm:"type:varchar(100)" json:"transaction_ref"`
	PaidAt         time.Time       `gorm:"not null;index" json:"paid_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
