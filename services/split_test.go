package services

import (
	"errors"
	"fmt"
	"math"
	"receipt-split-backend/models"
	"testing"

	"github.com/google/uuid"
)

// fakeSplitStore keeps everything in memory so the engine can be exercised
// without a database.
type fakeSplitStore struct {
	receipts map[uuid.UUID]models.Receipt
	items    map[uuid.UUID][]models.Item
	friends  map[uuid.UUID]models.Friend
	rows     []models.FriendItem
}

func newFakeStore() *fakeSplitStore {
	return &fakeSplitStore{
		receipts: make(map[uuid.UUID]models.Receipt),
		items:    make(map[uuid.UUID][]models.Item),
		friends:  make(map[uuid.UUID]models.Friend),
	}
}

func (s *fakeSplitStore) addReceipt(tax, serviceCharge float64) uuid.UUID {
	id := uuid.New()
	s.receipts[id] = models.Receipt{ID: id, RestaurantName: "Test Kitchen", Tax: tax, ServiceCharge: serviceCharge, Currency: "MYR"}
	return id
}

func (s *fakeSplitStore) addItem(receiptID uuid.UUID, name string, quantity int, unitPrice float64) uuid.UUID {
	id := uuid.New()
	s.items[receiptID] = append(s.items[receiptID], models.Item{
		ID: id, ReceiptID: receiptID, ItemName: name, Quantity: quantity, UnitPrice: unitPrice,
	})
	return id
}

func (s *fakeSplitStore) addFriend(name string) uuid.UUID {
	id := uuid.New()
	s.friends[id] = models.Friend{ID: id, Name: name}
	return id
}

func (s *fakeSplitStore) GetReceipt(receiptID uuid.UUID) (*models.Receipt, error) {
	receipt, ok := s.receipts[receiptID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, receiptID)
	}
	return &receipt, nil
}

func (s *fakeSplitStore) GetItems(receiptID uuid.UUID) ([]models.Item, error) {
	return s.items[receiptID], nil
}

func (s *fakeSplitStore) GetAssignments(receiptID uuid.UUID) ([]models.FriendItem, error) {
	var out []models.FriendItem
	for _, row := range s.rows {
		if row.ReceiptID == receiptID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *fakeSplitStore) GetFriendsByID(friendIDs []uuid.UUID) ([]models.Friend, error) {
	var out []models.Friend
	for _, id := range friendIDs {
		if friend, ok := s.friends[id]; ok {
			out = append(out, friend)
		}
	}
	return out, nil
}

func (s *fakeSplitStore) DeleteAssignment(receiptID, itemID, friendID uuid.UUID) error {
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.ReceiptID == receiptID && row.ItemID == itemID && row.FriendID == friendID {
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return nil
}

func (s *fakeSplitStore) DeleteItemAssignments(receiptID, itemID uuid.UUID) error {
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.ReceiptID == receiptID && row.ItemID == itemID {
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return nil
}

func (s *fakeSplitStore) CreateAssignments(rows []models.FriendItem) error {
	for _, row := range rows {
		row.ID = uuid.New()
		s.rows = append(s.rows, row)
	}
	return nil
}

func (s *fakeSplitStore) Transaction(fn func(SplitStore) error) error {
	return fn(s)
}

func assignTo(itemID uuid.UUID, friendIDs ...uuid.UUID) models.SplitItemInput {
	input := models.SplitItemInput{ID: itemID}
	for _, id := range friendIDs {
		input.Friends = append(input.Friends, models.FriendRef{ID: id})
	}
	return input
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestSplitEvenShares(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 0)
	itemID := store.addItem(receiptID, "Nasi Lemak", 2, 10.00)
	alice := store.addFriend("Alice")
	bob := store.addFriend("Bob")

	engine := NewSplitEngine(store)
	summary, err := engine.Split(receiptID, []models.SplitItemInput{assignTo(itemID, alice, bob)})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(store.rows) != 2 {
		t.Fatalf("assignment rows = %d, want 2", len(store.rows))
	}

	var sum float64
	for _, row := range store.rows {
		if !almostEqual(row.SharePercentage, 50) {
			t.Errorf("share_percentage = %v, want 50", row.SharePercentage)
		}
		if !almostEqual(row.Amount, 10.00) {
			t.Errorf("amount = %v, want 10.00", row.Amount)
		}
		sum += row.Amount
	}
	if !almostEqual(sum, 20.00) {
		t.Errorf("sum of amounts = %v, want 20.00 (unit_price * quantity)", sum)
	}

	for _, friendID := range []uuid.UUID{alice, bob} {
		entry := summary[friendID]
		if entry == nil {
			t.Fatalf("missing summary entry for %s", friendID)
		}
		if !almostEqual(entry.TotalAmount, 10.00) {
			t.Errorf("%s total = %v, want 10.00", entry.Name, entry.TotalAmount)
		}
	}
}

func TestSplitTaxAllocation(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(10, 0) // 10% tax
	itemID := store.addItem(receiptID, "Pizza", 2, 10.00)
	alice := store.addFriend("Alice")
	bob := store.addFriend("Bob")

	engine := NewSplitEngine(store)
	summary, err := engine.Split(receiptID, []models.SplitItemInput{assignTo(itemID, alice, bob)})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	// base 20.00 split 50/50, tax per person = 20 * 0.5 * 0.10 = 1.00
	for _, friendID := range []uuid.UUID{alice, bob} {
		entry := summary[friendID]
		if len(entry.Items) != 1 {
			t.Fatalf("%s item breakdown length = %d, want 1", entry.Name, len(entry.Items))
		}
		if !almostEqual(entry.Items[0].Tax, 1.00) {
			t.Errorf("%s item tax = %v, want 1.00", entry.Name, entry.Items[0].Tax)
		}
		if !almostEqual(entry.TotalAmount, 11.00) {
			t.Errorf("%s total = %v, want 11.00", entry.Name, entry.TotalAmount)
		}
	}
}

func TestSplitServiceCharge(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 10)
	item1 := store.addItem(receiptID, "Burger", 1, 15.00)
	item2 := store.addItem(receiptID, "Fries", 1, 5.00)
	alice := store.addFriend("Alice")
	bob := store.addFriend("Bob")

	engine := NewSplitEngine(store)
	summary, err := engine.Split(receiptID, []models.SplitItemInput{
		assignTo(item1, alice),
		assignTo(item2, bob),
	})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	// service_charge_per_participant = 10 / 2 = 5, each friend has one row
	if !almostEqual(summary[alice].ServiceCharge, 5.00) {
		t.Errorf("Alice service charge = %v, want 5.00", summary[alice].ServiceCharge)
	}
	if !almostEqual(summary[alice].TotalAmount, 20.00) {
		t.Errorf("Alice total = %v, want 20.00 (15 + 5)", summary[alice].TotalAmount)
	}
	if !almostEqual(summary[bob].TotalAmount, 10.00) {
		t.Errorf("Bob total = %v, want 10.00 (5 + 5)", summary[bob].TotalAmount)
	}
}

func TestServiceChargeAccruesPerRow(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 10)
	item1 := store.addItem(receiptID, "Satay", 1, 8.00)
	item2 := store.addItem(receiptID, "Teh Tarik", 1, 3.00)
	alice := store.addFriend("Alice")
	bob := store.addFriend("Bob")

	engine := NewSplitEngine(store)
	summary, err := engine.Split(receiptID, []models.SplitItemInput{
		assignTo(item1, alice),
		assignTo(item2, alice, bob),
	})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	// Alice appears on two rows, so she carries two 5.00 slices of the
	// service charge; Bob carries one.
	if !almostEqual(summary[alice].ServiceCharge, 10.00) {
		t.Errorf("Alice service charge = %v, want 10.00", summary[alice].ServiceCharge)
	}
	if !almostEqual(summary[bob].ServiceCharge, 5.00) {
		t.Errorf("Bob service charge = %v, want 5.00", summary[bob].ServiceCharge)
	}
}

func TestReconcileRemovesOnlyDroppedPair(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 0)
	itemID := store.addItem(receiptID, "Laksa", 1, 12.00)
	alice := store.addFriend("Alice")
	bob := store.addFriend("Bob")

	engine := NewSplitEngine(store)
	if _, err := engine.Split(receiptID, []models.SplitItemInput{assignTo(itemID, alice, bob)}); err != nil {
		t.Fatalf("initial Split() error = %v", err)
	}

	if _, err := engine.Split(receiptID, []models.SplitItemInput{assignTo(itemID, alice)}); err != nil {
		t.Fatalf("second Split() error = %v", err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("assignment rows = %d, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.FriendID != alice {
		t.Errorf("surviving row belongs to %s, want Alice", row.FriendID)
	}
	// Alice is now the sole participant, so her row must be recomputed
	if !almostEqual(row.SharePercentage, 100) {
		t.Errorf("share_percentage = %v, want 100", row.SharePercentage)
	}
	if !almostEqual(row.Amount, 12.00) {
		t.Errorf("amount = %v, want 12.00", row.Amount)
	}
}

func TestSplitIdempotent(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(5, 0)
	itemID := store.addItem(receiptID, "Roti Canai", 3, 2.00)
	alice := store.addFriend("Alice")
	bob := store.addFriend("Bob")

	proposed := []models.SplitItemInput{assignTo(itemID, alice, bob)}
	engine := NewSplitEngine(store)

	if _, err := engine.Split(receiptID, proposed); err != nil {
		t.Fatalf("first Split() error = %v", err)
	}
	firstIDs := make(map[uuid.UUID]bool)
	for _, row := range store.rows {
		firstIDs[row.ID] = true
	}

	if _, err := engine.Split(receiptID, proposed); err != nil {
		t.Fatalf("second Split() error = %v", err)
	}

	if len(store.rows) != 2 {
		t.Fatalf("assignment rows after repeat = %d, want 2", len(store.rows))
	}
	for _, row := range store.rows {
		if !firstIDs[row.ID] {
			t.Errorf("row %s was rewritten on an identical split", row.ID)
		}
	}
}

func TestMembershipGrowthRecomputesShares(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 0)
	itemID := store.addItem(receiptID, "Hotpot", 1, 30.00)
	alice := store.addFriend("Alice")
	bob := store.addFriend("Bob")
	carol := store.addFriend("Carol")

	engine := NewSplitEngine(store)
	if _, err := engine.Split(receiptID, []models.SplitItemInput{assignTo(itemID, alice)}); err != nil {
		t.Fatalf("initial Split() error = %v", err)
	}

	if _, err := engine.Split(receiptID, []models.SplitItemInput{assignTo(itemID, alice, bob, carol)}); err != nil {
		t.Fatalf("grow Split() error = %v", err)
	}

	if len(store.rows) != 3 {
		t.Fatalf("assignment rows = %d, want 3", len(store.rows))
	}
	for _, row := range store.rows {
		if !almostEqual(row.SharePercentage, 100.0/3) {
			t.Errorf("share_percentage = %v, want %v", row.SharePercentage, 100.0/3)
		}
		if !almostEqual(row.Amount, 10.00) {
			t.Errorf("amount = %v, want 10.00", row.Amount)
		}
	}
}

func TestSplitSkipsEmptyParticipantList(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 0)
	itemID := store.addItem(receiptID, "Water", 1, 1.00)

	engine := NewSplitEngine(store)
	summary, err := engine.Split(receiptID, []models.SplitItemInput{assignTo(itemID)})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(store.rows) != 0 {
		t.Errorf("assignment rows = %d, want 0", len(store.rows))
	}
	if len(summary) != 0 {
		t.Errorf("summary entries = %d, want 0", len(summary))
	}
}

func TestSplitDedupesRepeatedFriend(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 0)
	itemID := store.addItem(receiptID, "Cendol", 1, 6.00)
	alice := store.addFriend("Alice")

	engine := NewSplitEngine(store)
	if _, err := engine.Split(receiptID, []models.SplitItemInput{assignTo(itemID, alice, alice)}); err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("assignment rows = %d, want 1", len(store.rows))
	}
	if !almostEqual(store.rows[0].SharePercentage, 100) {
		t.Errorf("share_percentage = %v, want 100", store.rows[0].SharePercentage)
	}
}

func TestSplitMergesRepeatedItemEntries(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 0)
	itemID := store.addItem(receiptID, "Satay", 1, 12.00)
	alice := store.addFriend("Alice")
	bob := store.addFriend("Bob")

	engine := NewSplitEngine(store)

	// The same item listed twice must not produce a second row for Alice.
	if _, err := engine.Split(receiptID, []models.SplitItemInput{
		assignTo(itemID, alice),
		assignTo(itemID, alice),
	}); err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("assignment rows = %d, want 1", len(store.rows))
	}
	if !almostEqual(store.rows[0].SharePercentage, 100) {
		t.Errorf("share_percentage = %v, want 100", store.rows[0].SharePercentage)
	}

	// Entries for the same item contribute the union of their friends.
	if _, err := engine.Split(receiptID, []models.SplitItemInput{
		assignTo(itemID, alice),
		assignTo(itemID, bob),
	}); err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("assignment rows = %d, want 2", len(store.rows))
	}
	for _, row := range store.rows {
		if !almostEqual(row.SharePercentage, 50) {
			t.Errorf("share_percentage = %v, want 50", row.SharePercentage)
		}
	}
}

func TestSplitLeavesOtherReceiptsUntouched(t *testing.T) {
	store := newFakeStore()
	receipt1 := store.addReceipt(0, 0)
	receipt2 := store.addReceipt(0, 0)
	item1 := store.addItem(receipt1, "Laksa", 1, 11.00)
	item2 := store.addItem(receipt2, "Laksa", 1, 9.00)
	alice := store.addFriend("Alice")

	engine := NewSplitEngine(store)
	if _, err := engine.Split(receipt1, []models.SplitItemInput{assignTo(item1, alice)}); err != nil {
		t.Fatalf("Split(receipt1) error = %v", err)
	}
	if _, err := engine.Split(receipt2, []models.SplitItemInput{assignTo(item2, alice)}); err != nil {
		t.Fatalf("Split(receipt2) error = %v", err)
	}

	// Dropping Alice from receipt1 must not touch her row on receipt2.
	if _, err := engine.Split(receipt1, nil); err != nil {
		t.Fatalf("Split(receipt1) error = %v", err)
	}

	remaining, err := store.GetAssignments(receipt1)
	if err != nil {
		t.Fatalf("GetAssignments(receipt1) error = %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("receipt1 rows = %d, want 0", len(remaining))
	}

	kept, err := store.GetAssignments(receipt2)
	if err != nil {
		t.Fatalf("GetAssignments(receipt2) error = %v", err)
	}
	if len(kept) != 1 {
		t.Fatalf("receipt2 rows = %d, want 1", len(kept))
	}
	if kept[0].ItemID != item2 || kept[0].FriendID != alice {
		t.Errorf("receipt2 row = (%s, %s), want (%s, %s)", kept[0].ItemID, kept[0].FriendID, item2, alice)
	}
}

func TestSplitErrors(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 0)
	store.addItem(receiptID, "Kaya Toast", 1, 4.00)
	alice := store.addFriend("Alice")

	engine := NewSplitEngine(store)

	tests := []struct {
		name      string
		receiptID uuid.UUID
		proposed  []models.SplitItemInput
		wantErr   error
	}{
		{
			name:      "unknown receipt",
			receiptID: uuid.New(),
			proposed:  nil,
			wantErr:   ErrReceiptNotFound,
		},
		{
			name:      "unknown item",
			receiptID: receiptID,
			proposed:  []models.SplitItemInput{assignTo(uuid.New(), alice)},
			wantErr:   ErrItemNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Split(tt.receiptID, tt.proposed)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Split() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSummarizeEmptyReceipt(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(10, 10)

	engine := NewSplitEngine(store)
	summary, err := engine.Summarize(receiptID)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(summary) != 0 {
		t.Errorf("summary entries = %d, want 0", len(summary))
	}
}

func TestSummarizeMissingFriendFails(t *testing.T) {
	store := newFakeStore()
	receiptID := store.addReceipt(0, 0)
	itemID := store.addItem(receiptID, "Kopi", 1, 2.50)

	// Row pointing at a friend the store no longer has
	store.rows = append(store.rows, models.FriendItem{
		ID: uuid.New(), ReceiptID: receiptID, ItemID: itemID, FriendID: uuid.New(),
		SharePercentage: 100, Amount: 2.50,
	})

	engine := NewSplitEngine(store)
	if _, err := engine.Summarize(receiptID); !errors.Is(err, ErrFriendNotFound) {
		t.Errorf("Summarize() error = %v, want ErrFriendNotFound", err)
	}
}
