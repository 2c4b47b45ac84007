package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientCategory enum constants
const (
	ClientCategoryGroup = "group"
	ClientCategoryChain = "chain"
	ClientCategoryBrand = "brand"
)

// ClientCategories lists the accepted categories in display order.
var ClientCategories = []string{ClientCategoryGroup, ClientCategoryChain, ClientCategoryBrand}

// IsValidClientCategory reports whether category is one of ClientCategories.
func IsValidClientCategory(category string) bool {
	for _, c := range ClientCategories {
		if c == category {
			return true
		}
	}
	return false
}

// Client is the customer that estimates and invoices are addressed to.
// Documents reference a client but never modify it.
type Client struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null;index" json:"name"`
	Email     string         `gorm:"type:varchar(255)" json:"email"`
	Phone     string         `gorm:"type:varchar(50)" json:"phone"`
	Address   string         `gorm:"type:text" json:"address"`
	GSTNumber string         `gorm:"column:gst_number;type:varchar(20)" json:"gst_number"` // GSTIN, optional
	Category  string         `gorm:"type:varchar(20);not null;default:'group';index" json:"category"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
