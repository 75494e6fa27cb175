package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Receipt struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID" json:"-"`
	RestaurantName string    `gorm:"not null;size:255" json:"restaurant_name"`
	TotalAmount    float64   `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Tax            float64   `gorm:"type:decimal(6,2);default:0" json:"tax"` // percent, e.g. 10 = 10%
	ServiceCharge  float64   `gorm:"type:decimal(12,2);default:0" json:"service_charge"`
	Currency       string    `gorm:"default:MYR;size:3" json:"currency"`
	Items          []Item    `gorm:"foreignKey:ReceiptID" json:"items,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Receipt) TableName() string {
	return "receipts"
}

func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Item struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptID  uuid.UUID      `gorm:"type:uuid;index" json:"receipt_id"`
	ItemName   string         `gorm:"not null;size:255" json:"item_name"`
	Quantity   int            `gorm:"not null;default:1" json:"quantity"`
	UnitPrice  float64        `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Variations pq.StringArray `gorm:"type:text[]" json:"variations,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (Item) TableName() string {
	return "items"
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TotalPrice is the pre-tax cost of the full line (unit price × quantity).
func (i *Item) TotalPrice() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Request structs

type SplitRequest struct {
	Items []SplitItemInput `json:"items" binding:"required"`
}

type SplitItemInput struct {
	ID      uuid.UUID   `json:"id" binding:"required"`
	Friends []FriendRef `json:"friends"`
}

type FriendRef struct {
	ID uuid.UUID `json:"id" binding:"required"`
}

// Response structs

type AnalyzeReceiptResponse struct {
	ReceiptID uuid.UUID        `json:"receipt_id"`
	Extracted ExtractedReceipt `json:"extracted"`
	Items     []Item           `json:"items"`
}

type ReceiptResponse struct {
	ID             uuid.UUID        `json:"id"`
	UserID         uuid.UUID        `json:"user_id"`
	RestaurantName string           `json:"restaurant_name"`
	TotalAmount    float64          `json:"total_amount"`
	Tax            float64          `json:"tax"`
	ServiceCharge  float64          `json:"service_charge"`
	Currency       string           `json:"currency"`
	Items          []Item           `json:"items"`
	Friends        []FriendResponse `json:"friends"`
	Assignments    []FriendItem     `json:"assignments"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ExtractedReceipt is the JSON shape the AI model is asked to produce.
type ExtractedReceipt struct {
	RestaurantName string          `json:"restaurant_name"`
	TotalAmount    float64         `json:"total_amount"`
	Tax            float64         `json:"tax"`
	ServiceCharge  float64         `json:"service_charge"`
	Currency       string          `json:"currency"`
	Items          []ExtractedItem `json:"items"`
}

type ExtractedItem struct {
	ItemName  string   `json:"item_name"`
	Quantity  int      `json:"quantity"`
	UnitPrice float64  `json:"unit_price"`
	Variation []string `json:"variation"`
}
