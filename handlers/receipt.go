package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"receipt-split-backend/database"
	"receipt-split-backend/models"
	"receipt-split-backend/services"
	"receipt-split-backend/utils"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const summaryCacheTTL = time.Hour

// POST /api/analyze_receipt/
func AnalyzeReceipt(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	if raw := c.PostForm("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequest(c, "Invalid user ID")
			return
		}
		userID = parsed
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "Receipt image is required")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		utils.BadRequest(c, "Uploaded file must be an image")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.InternalError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		utils.InternalError(c, "Failed to read uploaded file")
		return
	}

	var friendIDs []uuid.UUID
	for _, raw := range c.PostFormArray("friend_ids") {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequest(c, "Invalid friend ID: "+raw)
			return
		}
		friendIDs = append(friendIDs, id)
	}

	// Friends must belong to the receipt owner
	if len(friendIDs) > 0 {
		var count int64
		database.DB.Model(&models.Friend{}).
			Where("id IN ? AND user_id = ?", friendIDs, userID).
			Count(&count)
		if int(count) != len(friendIDs) {
			utils.NotFound(c, "Friend not found")
			return
		}
	}

	extractor, err := services.GetExtractor()
	if err != nil {
		utils.InternalError(c, "Receipt analysis unavailable: "+err.Error())
		return
	}

	extracted, err := extractor.ExtractReceipt(imageData, contentType)
	if err != nil {
		utils.InternalError(c, "Analysis failed: "+err.Error())
		return
	}

	receipt := models.Receipt{
		UserID:         userID,
		RestaurantName: extracted.RestaurantName,
		TotalAmount:    extracted.TotalAmount,
		Tax:            extracted.Tax,
		ServiceCharge:  extracted.ServiceCharge,
		Currency:       extracted.Currency,
	}

	var items []models.Item
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&receipt).Error; err != nil {
			return err
		}

		for _, ex := range extracted.Items {
			items = append(items, models.Item{
				ReceiptID:  receipt.ID,
				ItemName:   ex.ItemName,
				Quantity:   ex.Quantity,
				UnitPrice:  ex.UnitPrice,
				Variations: pq.StringArray(ex.Variation),
			})
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		for _, friendID := range friendIDs {
			link := models.ReceiptFriend{ReceiptID: receipt.ID, FriendID: friendID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.InternalError(c, "Failed to save receipt: "+err.Error())
		return
	}

	// Log activity
	database.DB.Create(&models.Activity{
		UserID:      userID,
		Type:        "receipt_analyzed",
		ReferenceID: receipt.ID,
		Description: fmt.Sprintf("Analyzed receipt from \"%s\" (%s %.2f)", receipt.RestaurantName, receipt.Currency, receipt.TotalAmount),
	})

	// Notify owner asynchronously
	var owner models.User
	if err := database.DB.First(&owner, "id = ?", userID).Error; err == nil {
		go services.GetNotificationService().NotifyReceiptAnalyzed(owner, receipt, len(items))
	}

	utils.SuccessResponse(c, http.StatusCreated, "Receipt analyzed", models.AnalyzeReceiptResponse{
		ReceiptID: receipt.ID,
		Extracted: *extracted,
		Items:     items,
	})
}

// POST /api/receipts/:id/items/split
func SplitItems(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req models.SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	engine := services.NewSplitEngine(services.NewGormSplitStore(database.DB))
	summary, err := engine.Split(receiptID, req.Items)
	if err != nil {
		respondSplitError(c, err)
		return
	}

	cacheSummary(receiptID, summary)

	// Log activity + notify owner
	var receipt models.Receipt
	if err := database.DB.First(&receipt, "id = ?", receiptID).Error; err == nil {
		database.DB.Create(&models.Activity{
			UserID:      userID,
			Type:        "split_computed",
			ReferenceID: receiptID,
			Description: fmt.Sprintf("Split \"%s\" between %d people", receipt.RestaurantName, len(summary)),
		})

		var owner models.User
		if err := database.DB.First(&owner, "id = ?", receipt.UserID).Error; err == nil {
			go services.GetNotificationService().NotifySplitComputed(owner, receipt, summary)
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Split computed", summary)
}

// GET /api/receipts/?user_id=
func GetReceipts(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequest(c, "Invalid user ID")
			return
		}
		userID = parsed
	}

	var receipts []models.Receipt
	database.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&receipts)

	var responses []models.ReceiptResponse
	for _, r := range receipts {
		responses = append(responses, buildReceiptResponse(r))
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/receipts/:id/summary
func GetReceiptSummary(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid receipt ID")
		return
	}

	if cached, ok := getCachedSummary(receiptID); ok {
		utils.SuccessResponse(c, http.StatusOK, "", cached)
		return
	}

	engine := services.NewSplitEngine(services.NewGormSplitStore(database.DB))
	summary, err := engine.Summarize(receiptID)
	if err != nil {
		respondSplitError(c, err)
		return
	}

	cacheSummary(receiptID, summary)
	utils.SuccessResponse(c, http.StatusOK, "", summary)
}

// Build receipt response with nested items, friends and assignments
func buildReceiptResponse(receipt models.Receipt) models.ReceiptResponse {
	var items []models.Item
	database.DB.Where("receipt_id = ?", receipt.ID).Find(&items)

	var links []models.ReceiptFriend
	database.DB.Where("receipt_id = ?", receipt.ID).Find(&links)

	var friendResponses []models.FriendResponse
	if len(links) > 0 {
		friendIDs := make([]uuid.UUID, 0, len(links))
		for _, link := range links {
			friendIDs = append(friendIDs, link.FriendID)
		}

		var friends []models.Friend
		database.DB.Where("id IN ?", friendIDs).Find(&friends)
		for _, f := range friends {
			friendResponses = append(friendResponses, f.ToResponse())
		}
	}

	var assignments []models.FriendItem
	database.DB.Where("receipt_id = ?", receipt.ID).Find(&assignments)

	return models.ReceiptResponse{
		ID:             receipt.ID,
		UserID:         receipt.UserID,
		RestaurantName: receipt.RestaurantName,
		TotalAmount:    receipt.TotalAmount,
		Tax:            receipt.Tax,
		ServiceCharge:  receipt.ServiceCharge,
		Currency:       receipt.Currency,
		Items:          items,
		Friends:        friendResponses,
		Assignments:    assignments,
		CreatedAt:      receipt.CreatedAt,
	}
}

func respondSplitError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrReceiptNotFound) ||
		errors.Is(err, services.ErrItemNotFound) ||
		errors.Is(err, services.ErrFriendNotFound) {
		utils.NotFound(c, err.Error())
		return
	}
	utils.InternalError(c, "Split failed: "+err.Error())
}

// Summary cache (best-effort, skipped when Redis is down)

func summaryCacheKey(receiptID uuid.UUID) string {
	return "receipt_summary:" + receiptID.String()
}

func cacheSummary(receiptID uuid.UUID, summary models.SplitSummary) {
	if database.Redis == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	database.Redis.Set(context.Background(), summaryCacheKey(receiptID), payload, summaryCacheTTL)
}

func invalidateSummaryCaches(receiptIDs []uuid.UUID) {
	if database.Redis == nil || len(receiptIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(receiptIDs))
	for _, id := range receiptIDs {
		keys = append(keys, summaryCacheKey(id))
	}
	database.Redis.Del(context.Background(), keys...)
}

// distinctReceiptIDs returns the receipts touched by a set of assignment
// rows, each receipt once.
func distinctReceiptIDs(rows []models.FriendItem) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if seen[row.ReceiptID] {
			continue
		}
		seen[row.ReceiptID] = true
		ids = append(ids, row.ReceiptID)
	}
	return ids
}

func getCachedSummary(receiptID uuid.UUID) (models.SplitSummary, bool) {
	if database.Redis == nil {
		return nil, false
	}
	payload, err := database.Redis.Get(context.Background(), summaryCacheKey(receiptID)).Bytes()
	if err != nil {
		return nil, false
	}
	var summary models.SplitSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false
	}
	return summary, true
}
