package handlers

import (
	"net/http"
	"receipt-split-backend/database"
	"receipt-split-backend/models"
	"receipt-split-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// POST /api/friends
func CreateFriend(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	friend := models.Friend{
		UserID:   userID,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
	}

	if err := database.DB.Create(&friend).Error; err != nil {
		utils.InternalError(c, "Failed to create friend")
		return
	}

	database.DB.Create(&models.Activity{
		UserID:      userID,
		Type:        "friend_added",
		ReferenceID: friend.ID,
		Description: friend.Name + " added as a friend",
	})

	utils.SuccessResponse(c, http.StatusCreated, "Friend added", friend.ToResponse())
}

// GET /api/friends?user_id=
func GetFriends(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequest(c, "Invalid user ID")
			return
		}
		userID = parsed
	}

	var friends []models.Friend
	database.DB.Where("user_id = ?", userID).Order("name ASC").Find(&friends)

	var responses []models.FriendResponse
	for _, f := range friends {
		responses = append(responses, f.ToResponse())
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// DELETE /api/friends/:id
func DeleteFriend(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	friendID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid friend ID")
		return
	}

	var friend models.Friend
	if err := database.DB.Where("id = ? AND user_id = ?", friendID, userID).First(&friend).Error; err != nil {
		utils.NotFound(c, "Friend not found")
		return
	}

	// Cached summaries for these receipts go stale once the rows are gone
	var assignments []models.FriendItem
	database.DB.Where("friend_id = ?", friendID).Find(&assignments)

	// Remove the friend together with their assignment and receipt links
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("friend_id = ?", friendID).Delete(&models.FriendItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("friend_id = ?", friendID).Delete(&models.ReceiptFriend{}).Error; err != nil {
			return err
		}
		return tx.Delete(&friend).Error
	})
	if err != nil {
		utils.InternalError(c, "Failed to delete friend")
		return
	}

	invalidateSummaryCaches(distinctReceiptIDs(assignments))

	database.DB.Create(&models.Activity{
		UserID:      userID,
		Type:        "friend_removed",
		Description: friend.Name + " removed from friends",
	})

	utils.SuccessResponse(c, http.StatusOK, "Friend deleted", nil)
}
