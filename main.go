package main

import (
	"log"
	"receipt-split-backend/config"
	"receipt-split-backend/database"
	"receipt-split-backend/handlers"
	"receipt-split-backend/middleware"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.Load()

	// Connect to database
	database.Connect()

	// Connect to Redis (optional, won't crash if unavailable)
	database.ConnectRedis()

	// Setup router
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": config.AppConfig.AppName,
		})
	})

	// ==========================================
	// AUTH ROUTES (public)
	// ==========================================
	auth := r.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	// ==========================================
	// API ROUTES (authenticated)
	// ==========================================
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		// User
		api.GET("/users/me", handlers.GetProfile)
		api.PUT("/users/me", handlers.UpdateProfile)
		api.PUT("/users/me/fcm-token", handlers.UpdateFCMToken)

		// Friends
		api.POST("/friends", handlers.CreateFriend)
		api.GET("/friends", handlers.GetFriends)
		api.DELETE("/friends/:id", handlers.DeleteFriend)

		// Receipts
		api.POST("/analyze_receipt/", handlers.AnalyzeReceipt)
		api.GET("/receipts/", handlers.GetReceipts)
		api.POST("/receipts/:id/items/split", handlers.SplitItems)
		api.GET("/receipts/:id/summary", handlers.GetReceiptSummary)

		// Activity
		api.GET("/activity", handlers.GetActivity)
	}

	// Start server
	port := config.AppConfig.Port
	log.Printf("🚀 %s server starting on port %s", config.AppConfig.AppName, port)

	addr := "0.0.0.0:" + port
	log.Printf("🚀 Listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
