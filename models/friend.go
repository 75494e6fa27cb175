package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Friend is a contact of a user who can be assigned item shares.
// Friends are not accounts; they only exist within their owner's address book.
type Friend struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Friend) TableName() string {
	return "friends"
}

func (f *Friend) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// ReceiptFriend links a friend to a receipt they took part in.
// AmountPaid tracks settlement and is not touched by the split engine.
type ReceiptFriend struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptID  uuid.UUID `gorm:"type:uuid;index" json:"receipt_id"`
	FriendID   uuid.UUID `gorm:"type:uuid;index" json:"friend_id"`
	AmountPaid float64   `gorm:"type:decimal(12,2);default:0" json:"amount_paid"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ReceiptFriend) TableName() string {
	return "receipt_friends"
}

func (rf *ReceiptFriend) BeforeCreate(tx *gorm.DB) error {
	if rf.ID == uuid.Nil {
		rf.ID = uuid.New()
	}
	return nil
}

// FriendItem assigns a friend a share of one item. For an item split N ways
// every row carries share_percentage = 100/N and amount = unit_price*quantity/N.
// ReceiptID is denormalized from the item so receipt-scoped queries stay flat.
type FriendItem struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptID       uuid.UUID `gorm:"type:uuid;index" json:"receipt_id"`
	ItemID          uuid.UUID `gorm:"type:uuid;index" json:"item_id"`
	FriendID        uuid.UUID `gorm:"type:uuid;index" json:"friend_id"`
	SharePercentage float64   `gorm:"type:decimal(6,3);not null" json:"share_percentage"`
	Amount          float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	CreatedAt       time.Time `json:"created_at"`
}

func (FriendItem) TableName() string {
	return "friend_items"
}

func (fi *FriendItem) BeforeCreate(tx *gorm.DB) error {
	if fi.ID == uuid.Nil {
		fi.ID = uuid.New()
	}
	return nil
}

// Request structs

type CreateFriendRequest struct {
	Name     string `json:"name" binding:"required"`
	PhotoURL string `json:"photo_url"`
}

// Response structs

type FriendResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *Friend) ToResponse() FriendResponse {
	return FriendResponse{
		ID:        f.ID,
		UserID:    f.UserID,
		Name:      f.Name,
		PhotoURL:  f.PhotoURL,
		CreatedAt: f.CreatedAt,
	}
}

// SplitSummary maps each friend to what they owe for a receipt.
type SplitSummary map[uuid.UUID]*FriendSummary

type FriendSummary struct {
	FriendID      uuid.UUID   `json:"friend_id"`
	Name          string      `json:"name"`
	PhotoURL      string      `json:"photo_url,omitempty"`
	TotalAmount   float64     `json:"total_amount"`
	ServiceCharge float64     `json:"service_charge"`
	Items         []ItemShare `json:"items"`
}

type ItemShare struct {
	ItemID          uuid.UUID `json:"item_id"`
	ItemName        string    `json:"item_name"`
	Quantity        int       `json:"quantity"`
	SharePercentage float64   `json:"share_percentage"`
	Amount          float64   `json:"amount"`
	Tax             float64   `json:"tax"`
}
