package services

import (
	"fmt"
	"receipt-split-backend/models"
	"receipt-split-backend/utils"

	"github.com/google/uuid"
)

// SplitEngine assigns receipt items to friends and computes what each friend
// owes, including their slice of tax and service charge.
type SplitEngine struct {
	store SplitStore
}

func NewSplitEngine(store SplitStore) *SplitEngine {
	return &SplitEngine{store: store}
}

// Split brings the receipt's persisted assignments in line with the proposed
// item-to-friends mapping and returns the per-friend summary. The whole
// reconcile → recompute → aggregate sequence runs in one transaction so
// concurrent split requests for a receipt cannot interleave partial writes.
func (e *SplitEngine) Split(receiptID uuid.UUID, proposed []models.SplitItemInput) (models.SplitSummary, error) {
	var summary models.SplitSummary

	err := e.store.Transaction(func(tx SplitStore) error {
		receipt, err := tx.GetReceipt(receiptID)
		if err != nil {
			return err
		}

		// Snapshot before any deletion: share recomputation must compare the
		// proposed membership against what was persisted when the request
		// arrived, or a pure removal would leave the survivors' shares stale.
		current, err := tx.GetAssignments(receiptID)
		if err != nil {
			return err
		}

		if err := reconcileAssignments(tx, receiptID, current, proposed); err != nil {
			return err
		}
		if err := computeShares(tx, receiptID, current, proposed); err != nil {
			return err
		}

		summary, err = summarize(tx, receipt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// Summarize aggregates the receipt's persisted assignments without changing them.
func (e *SplitEngine) Summarize(receiptID uuid.UUID) (models.SplitSummary, error) {
	receipt, err := e.store.GetReceipt(receiptID)
	if err != nil {
		return nil, err
	}
	return summarize(e.store, receipt)
}

type assignmentPair struct {
	itemID   uuid.UUID
	friendID uuid.UUID
}

// reconcileAssignments deletes every persisted (item, friend) pair that the
// proposed mapping no longer contains. Additions are left to computeShares.
func reconcileAssignments(store SplitStore, receiptID uuid.UUID, current []models.FriendItem, proposed []models.SplitItemInput) error {
	proposedPairs := make(map[assignmentPair]bool)
	for _, input := range proposed {
		for _, friend := range input.Friends {
			proposedPairs[assignmentPair{input.ID, friend.ID}] = true
		}
	}

	for _, row := range current {
		if proposedPairs[assignmentPair{row.ItemID, row.FriendID}] {
			continue
		}
		if err := store.DeleteAssignment(receiptID, row.ItemID, row.FriendID); err != nil {
			return err
		}
	}
	return nil
}

// computeShares writes assignment rows for every proposed item so that an
// item split N ways carries share_percentage = 100/N and amount = total/N on
// each row. When an item's membership changes the full row set is rewritten,
// never just the delta; shares stay uniform at the new N. current is the
// assignment snapshot taken before reconciliation ran.
func computeShares(store SplitStore, receiptID uuid.UUID, current []models.FriendItem, proposed []models.SplitItemInput) error {
	items, err := store.GetItems(receiptID)
	if err != nil {
		return err
	}
	itemsByID := make(map[uuid.UUID]models.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	assigned := make(map[uuid.UUID]map[uuid.UUID]bool) // item id -> set of friend ids
	for _, row := range current {
		if assigned[row.ItemID] == nil {
			assigned[row.ItemID] = make(map[uuid.UUID]bool)
		}
		assigned[row.ItemID][row.FriendID] = true
	}

	for _, input := range mergeItemInputs(proposed) {
		friendIDs := dedupeFriendIDs(input.Friends)
		if len(friendIDs) == 0 {
			continue
		}

		item, ok := itemsByID[input.ID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrItemNotFound, input.ID)
		}

		// Unchanged membership means the persisted rows already carry the
		// right shares; repeated split calls must not duplicate them.
		if sameMembers(assigned[input.ID], friendIDs) {
			continue
		}

		if len(assigned[input.ID]) > 0 {
			if err := store.DeleteItemAssignments(receiptID, input.ID); err != nil {
				return err
			}
		}

		n := float64(len(friendIDs))
		share := 100 / n
		amount := item.TotalPrice() / n

		rows := make([]models.FriendItem, 0, len(friendIDs))
		for _, friendID := range friendIDs {
			rows = append(rows, models.FriendItem{
				ReceiptID:       receiptID,
				ItemID:          input.ID,
				FriendID:        friendID,
				SharePercentage: share,
				Amount:          amount,
			})
		}
		if err := store.CreateAssignments(rows); err != nil {
			return err
		}
	}
	return nil
}

// summarize folds assignment rows into one entry per friend: item share
// plus that share's tax, plus an equal slice of the receipt's service charge.
func summarize(store SplitStore, receipt *models.Receipt) (models.SplitSummary, error) {
	rows, err := store.GetAssignments(receipt.ID)
	if err != nil {
		return nil, err
	}

	summary := make(models.SplitSummary)
	if len(rows) == 0 {
		return summary, nil
	}

	distinct := make(map[uuid.UUID]bool)
	for _, row := range rows {
		distinct[row.FriendID] = true
	}
	numFriends := len(distinct)
	if numFriends == 0 {
		return summary, nil
	}
	serviceChargePerFriend := receipt.ServiceCharge / float64(numFriends)

	items, err := store.GetItems(receipt.ID)
	if err != nil {
		return nil, err
	}
	itemsByID := make(map[uuid.UUID]models.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	friendIDs := make([]uuid.UUID, 0, numFriends)
	for id := range distinct {
		friendIDs = append(friendIDs, id)
	}
	friends, err := store.GetFriendsByID(friendIDs)
	if err != nil {
		return nil, err
	}
	friendsByID := make(map[uuid.UUID]models.Friend, len(friends))
	for _, friend := range friends {
		friendsByID[friend.ID] = friend
	}

	for _, row := range rows {
		item, ok := itemsByID[row.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, row.ItemID)
		}

		entry := summary[row.FriendID]
		if entry == nil {
			friend, ok := friendsByID[row.FriendID]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrFriendNotFound, row.FriendID)
			}
			entry = &models.FriendSummary{
				FriendID: row.FriendID,
				Name:     friend.Name,
				PhotoURL: friend.PhotoURL,
			}
			summary[row.FriendID] = entry
		}

		basePrice := item.TotalPrice()
		itemTax := basePrice * (row.SharePercentage / 100) * (receipt.Tax / 100)

		// Service charge accrues once per assignment row, so a friend on K
		// items carries K slices of it.
		entry.TotalAmount += row.Amount + itemTax + serviceChargePerFriend
		entry.ServiceCharge += serviceChargePerFriend

		entry.Items = append(entry.Items, models.ItemShare{
			ItemID:          row.ItemID,
			ItemName:        item.ItemName,
			Quantity:        item.Quantity,
			SharePercentage: row.SharePercentage,
			Amount:          utils.RoundToTwo(row.Amount),
			Tax:             utils.RoundToTwo(itemTax),
		})
	}

	for _, entry := range summary {
		entry.TotalAmount = utils.RoundToTwo(entry.TotalAmount)
		entry.ServiceCharge = utils.RoundToTwo(entry.ServiceCharge)
	}
	return summary, nil
}

// mergeItemInputs collapses repeated item entries into one entry per item
// holding the union of the proposed friends, so a request that lists the
// same item twice cannot produce more than one row per (item, friend).
func mergeItemInputs(proposed []models.SplitItemInput) []models.SplitItemInput {
	merged := make([]models.SplitItemInput, 0, len(proposed))
	index := make(map[uuid.UUID]int, len(proposed))
	for _, input := range proposed {
		if i, ok := index[input.ID]; ok {
			merged[i].Friends = append(merged[i].Friends, input.Friends...)
			continue
		}
		index[input.ID] = len(merged)
		merged = append(merged, models.SplitItemInput{
			ID:      input.ID,
			Friends: append([]models.FriendRef(nil), input.Friends...),
		})
	}
	return merged
}

func dedupeFriendIDs(refs []models.FriendRef) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(refs))
	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		if seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		ids = append(ids, ref.ID)
	}
	return ids
}

func sameMembers(existing map[uuid.UUID]bool, friendIDs []uuid.UUID) bool {
	if len(existing) != len(friendIDs) {
		return false
	}
	for _, id := range friendIDs {
		if !existing[id] {
			return false
		}
	}
	return true
}
