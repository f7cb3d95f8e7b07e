package api

import (
	"coin_wallet/internal/domain" // Importing domain models
	"coin_wallet/internal/utils"  // Utility functions
	"context"                     // Context for Redis operations
	"net/http"                    // HTTP status codes
	"strconv"                     // String conversion
	"strings"                     // String manipulation
	"time"                        // Time durations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// pageParams reads and bounds the page/page_size query parameters
func pageParams(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		// If valid, set page number
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		// If valid, set page size
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID       uint           `json:"id"`       // User ID
	Username string         `json:"username"` // Username
	Role     string         `json:"role"`     // User role
	Wallet   domain.Wallet  `json:"wallet"`   // Associated wallet
	Profile  domain.Profile `json:"profile"`  // Referral identity and game points
}

// ListUsersHandler returns all users with their wallet and referral state
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		// Try to get cached response
		var cached struct {
			Users      []UserAdminResponse `json:"users"`       // List of users
			Page       int                 `json:"page"`        // Current page
			PageSize   int                 `json:"page_size"`   // Page size
			Total      int64               `json:"total"`       // Total number of users
			TotalPages int                 `json:"total_pages"` // Total pages
		}
		if rdb != nil {
			// If cached data found, return it
			found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
			if err == nil && found {
				c.JSON(http.StatusOK, gin.H{
					"users":       cached.Users,      // List of users
					"page":        cached.Page,       // Current page
					"page_size":   cached.PageSize,   // Page size
					"total":       cached.Total,      // Total number of users
					"total_pages": cached.TotalPages, // Total pages
					"cached":      true,              // Indicate response is from cache
				})
				return
			}
		}
		page, pageSize := pageParams(c) // Pagination parameters
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total user count
		// Fetch total user count
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"}) // Return on error
			return
		}
		var users []domain.User // Slice to hold users
		// Preload Wallet and Profile relations, apply offset and limit for pagination
		if err := db.Preload("Wallet").Preload("Profile").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		// Prepare response data
		resp := make([]UserAdminResponse, len(users))
		// Map users to response format
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:       u.ID,       // User ID
				Username: u.Username, // Username
				Role:     u.Role,     // User role
				Wallet:   u.Wallet,   // Associated wallet
				Profile:  u.Profile,  // Referral identity
			}
		}
		// Prepare final response data
		respData := gin.H{
			"users":       resp,       // List of users
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of users
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Indicate response is not from cache
		}
		if rdb != nil {
			// Cache the response for future requests
			_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		}
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// ListPendingReferralsHandler returns the referral-click audit trail, with
// optional filtering by redemption state or referrer profile
func ListPendingReferralsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c)                // Pagination parameters
		offset := (page - 1) * pageSize                // Calculate offset for pagination
		query := db.Model(&domain.PendingReferral{})   // Start building the query
		if redeemed := c.Query("redeemed"); redeemed != "" {
			// Filter by redemption state
			if redeemed == "true" {
				query = query.Where("redeemed_at IS NOT NULL")
			} else {
				query = query.Where("redeemed_at IS NULL")
			}
		}
		if referrer := c.Query("referrer_profile_id"); referrer != "" {
			query = query.Where("referrer_profile_id = ?", referrer) // Filter by referrer
		}
		var total int64 // Total click count
		// Get total count of clicks matching the filters
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count referrals"})
			return
		}
		var clicks []domain.PendingReferral // Slice to hold click records
		// Fetch paginated clicks, newest first
		if err := query.Order("clicked_at desc").Offset(offset).Limit(pageSize).Find(&clicks).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch referrals"})
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		c.JSON(http.StatusOK, gin.H{
			"referrals":   clicks,     // List of click records
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of clicks
			"total_pages": totalPages, // Total pages
		})
	}
}

// ListTransactionsHandler returns the coin ledger, with optional filtering
// by wallet, type, or date
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		// Build cache key from all query params
		var keyParts []string // Parts of the cache key
		// Append each query parameter to the key parts
		for _, k := range []string{"wallet_id", "type", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, "")) // Append key-value pair
		}
		// Join key parts to form the final cache key
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":")
		var cached struct {
			Transactions []domain.CoinTransaction `json:"transactions"` // List of transactions
			Page         int                      `json:"page"`         // Current page
			PageSize     int                      `json:"page_size"`    // Page size
			Total        int64                    `json:"total"`        // Total number of transactions
			TotalPages   int                      `json:"total_pages"`  // Total pages
		}
		if rdb != nil {
			// If cached data found, return it
			found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
			if err == nil && found {
				c.JSON(http.StatusOK, gin.H{
					"transactions": cached.Transactions, // List of transactions
					"page":         cached.Page,         // Current page
					"page_size":    cached.PageSize,     // Page size
					"total":        cached.Total,        // Total number of transactions
					"total_pages":  cached.TotalPages,   // Total pages
					"cached":       true,                // Indicate response is from cache
				})
				return
			}
		}
		page, pageSize := pageParams(c)              // Pagination parameters
		offset := (page - 1) * pageSize              // Calculate offset for pagination
		query := db.Model(&domain.CoinTransaction{}) // Start building the query
		if walletID := c.Query("wallet_id"); walletID != "" {
			query = query.Where("wallet_id = ?", walletID) // Filter by wallet ID
		}
		if txType := c.Query("type"); txType != "" {
			query = query.Where("type = ?", txType) // Filter by transaction type
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("created_at >= ?", from) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("created_at <= ?", to) // Filter by end date
		}
		var total int64 // Total transaction count
		// Get total count of transactions matching the filters
		if err := query.Count(&total).Error; err != nil {
			// If error occurs, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var txs []domain.CoinTransaction // Slice to hold transactions
		// Fetch paginated transactions with filters applied
		if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&txs).Error; err != nil {
			// If error occurs, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		respData := gin.H{
			"transactions": txs,        // List of transactions
			"page":         page,       // Current page
			"page_size":    pageSize,   // Page size
			"total":        total,      // Total number of transactions
			"total_pages":  totalPages, // Total pages
			"cached":       false,      // Indicate response is not from cache
		}
		if rdb != nil {
			// Cache the response for future requests
			_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		}
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// GrantPointsRequest represents a game-point grant
type GrantPointsRequest struct {
	Points int64 `json:"points" binding:"required"` // Points to grant, must be positive
}

// GrantPointsHandler credits game points to a user's profile. Game scoring
// itself lives upstream; this is the operational entry point for its output.
func GrantPointsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, err := strconv.Atoi(c.Param("id")) // Target user ID from the path
		if err != nil || targetID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		var req GrantPointsRequest // Bind JSON request to struct
		// Validate request shape and amount
		if err := c.ShouldBindJSON(&req); err != nil || req.Points <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid points amount"})
			return
		}
		// Relative update so concurrent grants never lose increments
		res := db.Model(&domain.Profile{}).
			Where("user_id = ?", targetID).
			Update("total_game_points", gorm.Expr("total_game_points + ?", req.Points))
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant points"})
			return
		}
		// No row matched: the user has no profile
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		// Log the grant
		logrus.WithFields(logrus.Fields{
			"user_id": targetID,   // Target user
			"points":  req.Points, // Points granted
		}).Info("Game points granted")
		c.JSON(http.StatusOK, gin.H{"message": "Points granted successfully"})
	}
}
