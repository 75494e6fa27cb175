package services

import (
	"errors"
	"fmt"
	"receipt-split-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrFriendNotFound  = errors.New("friend not found")
)

// SplitStore is the persistence surface the split engine works against.
// Handlers use the GORM implementation; tests substitute an in-memory one.
type SplitStore interface {
	GetReceipt(receiptID uuid.UUID) (*models.Receipt, error)
	GetItems(receiptID uuid.UUID) ([]models.Item, error)
	GetAssignments(receiptID uuid.UUID) ([]models.FriendItem, error)
	GetFriendsByID(friendIDs []uuid.UUID) ([]models.Friend, error)
	DeleteAssignment(receiptID, itemID, friendID uuid.UUID) error
	DeleteItemAssignments(receiptID, itemID uuid.UUID) error
	CreateAssignments(rows []models.FriendItem) error
	Transaction(fn func(SplitStore) error) error
}

type gormSplitStore struct {
	db *gorm.DB
}

func NewGormSplitStore(db *gorm.DB) SplitStore {
	return &gormSplitStore{db: db}
}

func (s *gormSplitStore) GetReceipt(receiptID uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := s.db.First(&receipt, "id = ?", receiptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, receiptID)
		}
		return nil, err
	}
	return &receipt, nil
}

func (s *gormSplitStore) GetItems(receiptID uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	err := s.db.Where("receipt_id = ?", receiptID).Find(&items).Error
	return items, err
}

func (s *gormSplitStore) GetAssignments(receiptID uuid.UUID) ([]models.FriendItem, error) {
	var rows []models.FriendItem
	err := s.db.Where("receipt_id = ?", receiptID).Find(&rows).Error
	return rows, err
}

func (s *gormSplitStore) GetFriendsByID(friendIDs []uuid.UUID) ([]models.Friend, error) {
	if len(friendIDs) == 0 {
		return nil, nil
	}
	var friends []models.Friend
	err := s.db.Where("id IN ?", friendIDs).Find(&friends).Error
	return friends, err
}

func (s *gormSplitStore) DeleteAssignment(receiptID, itemID, friendID uuid.UUID) error {
	return s.db.
		Where("receipt_id = ? AND item_id = ? AND friend_id = ?", receiptID, itemID, friendID).
		Delete(&models.FriendItem{}).Error
}

func (s *gormSplitStore) DeleteItemAssignments(receiptID, itemID uuid.UUID) error {
	return s.db.
		Where("receipt_id = ? AND item_id = ?", receiptID, itemID).
		Delete(&models.FriendItem{}).Error
}

func (s *gormSplitStore) CreateAssignments(rows []models.FriendItem) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.Create(&rows).Error
}

func (s *gormSplitStore) Transaction(fn func(SplitStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormSplitStore{db: tx})
	})
}
