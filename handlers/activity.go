package handlers

import (
	"net/http"
	"receipt-split-backend/database"
	"receipt-split-backend/models"
	"receipt-split-backend/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/activity — activity feed for current user
func GetActivity(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	var activities []models.Activity
	database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&activities)

	utils.SuccessResponse(c, http.StatusOK, "", activities)
}
