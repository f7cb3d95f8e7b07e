package api

import (
	"coin_wallet/internal/config" // Application configuration
	"coin_wallet/internal/domain" // Importing domain models
	"coin_wallet/internal/utils"  // Utility functions
	"context"                     // Context for Redis operations
	"errors"                      // Error inspection
	"net/http"                    // HTTP status codes
	"strconv"                     // String conversion
	"time"                        // Time durations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// walletCacheKey builds the Redis key for a user's cached wallet read
func walletCacheKey(userID uint) string {
	return "wallet:user:" + strconv.Itoa(int(userID))
}

// invalidateWalletCache drops the cached wallet read for a user, if a Redis
// client was injected into the request context
func invalidateWalletCache(c *gin.Context, userID uint) {
	if v, ok := c.Get("redisClient"); ok {
		if rdb, ok := v.(*redis.Client); ok && rdb != nil {
			_ = utils.DeleteCache(context.Background(), rdb, walletCacheKey(userID))
		}
	}
}

// getOrCreateWallet returns the user's wallet, creating it with zero balances
// on first access. Safe to call concurrently: the unique index on user_id
// rejects the duplicate insert and the loser re-reads the winner's row.
func getOrCreateWallet(db *gorm.DB, userID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := db.Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil // Wallet already exists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err // Unexpected storage error
	}
	wallet = domain.Wallet{UserID: userID} // Create with zero balances
	if createErr := db.Create(&wallet).Error; createErr != nil {
		// Lost the creation race; the unique index guarantees a single row
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			return nil, createErr
		}
	}
	return &wallet, nil
}

// creditCoins adds amount to total_coins via a relative update and records
// the mutation in the audit ledger
func creditCoins(tx *gorm.DB, walletID uint, amount int64, txType string) error {
	if amount <= 0 {
		return ErrInvalidAmount // Reject non-positive amounts before touching storage
	}
	// Relative update; never read-modify-write on a stale in-memory value
	if err := tx.Model(&domain.Wallet{}).Where("id = ?", walletID).
		Update("total_coins", gorm.Expr("total_coins + ?", amount)).Error; err != nil {
		return err
	}
	// Record the mutation in the ledger
	return tx.Create(&domain.CoinTransaction{WalletID: walletID, Amount: amount, Type: txType}).Error
}

// spendCoins moves amount from the available balance to used_coins. The
// update is conditioned on the available balance in the same statement, so
// concurrent spends can never drive the balance negative.
func spendCoins(tx *gorm.DB, walletID uint, amount int64, txType string) error {
	if amount <= 0 {
		return ErrInvalidAmount // Reject non-positive amounts before touching storage
	}
	res := tx.Model(&domain.Wallet{}).
		Where("id = ? AND total_coins - used_coins >= ?", walletID, amount).
		Update("used_coins", gorm.Expr("used_coins + ?", amount))
	if res.Error != nil {
		return res.Error // Unexpected storage error
	}
	// No row matched: the balance check failed, nothing was mutated
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	// Record the mutation in the ledger
	return tx.Create(&domain.CoinTransaction{WalletID: walletID, Amount: amount, Type: txType}).Error
}

// WalletResponse is the wallet read contract
type WalletResponse struct {
	TotalCoins     int64 `json:"total_coins"`     // Lifetime coins earned
	UsedCoins      int64 `json:"used_coins"`      // Lifetime coins spent
	AvailableCoins int64 `json:"available_coins"` // total - used, never negative
}

// GetWalletHandler returns wallet balances for the authenticated user,
// creating the wallet lazily on first access
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		ctx := context.Background() // Context for Redis operations
		var resp WalletResponse
		// Try the cache first
		if rdb != nil {
			found, err := utils.GetCache(ctx, rdb, walletCacheKey(uid), &resp)
			if err == nil && found {
				c.JSON(http.StatusOK, gin.H{"wallet": resp, "cached": true})
				return
			}
		}
		// Not cached: read (or lazily create) the wallet
		wallet, err := getOrCreateWallet(db, uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
			return
		}
		resp = WalletResponse{
			TotalCoins:     wallet.TotalCoins,       // Lifetime coins earned
			UsedCoins:      wallet.UsedCoins,        // Lifetime coins spent
			AvailableCoins: wallet.AvailableCoins(), // Spendable balance
		}
		// Cache the wallet read for 60 seconds
		if rdb != nil {
			_ = utils.SetCache(ctx, rdb, walletCacheKey(uid), resp, 60*time.Second)
		}
		c.JSON(http.StatusOK, gin.H{"wallet": resp, "cached": false})
	}
}

// AdjustRequest represents a wallet adjust request
type AdjustRequest struct {
	Coins int64  `json:"coins" binding:"required"`                          // Coin amount, must be positive
	Type  string `json:"type" binding:"required,oneof=increment decrement"` // Adjustment direction
}

// AdjustWalletHandler increments or decrements the authenticated user's
// wallet. Decrements that exceed the available balance fail with no mutation.
func AdjustWalletHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		var req AdjustRequest // Bind JSON request to struct
		// Validate request shape and amount before touching storage
		if err := c.ShouldBindJSON(&req); err != nil || req.Coins <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		// Ensure the wallet exists before mutating it
		wallet, err := getOrCreateWallet(db, uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
			return
		}
		// Apply the mutation atomically
		err = db.Transaction(func(tx *gorm.DB) error {
			if req.Type == "increment" {
				return creditCoins(tx, wallet.ID, req.Coins, "adjust_increment")
			}
			return spendCoins(tx, wallet.ID, req.Coins, "adjust_decrement")
		})
		// Insufficient balance is a clean rejection, not a server fault
		if errors.Is(err, ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
			return
		}
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": uid,         // User ID
				"amount":  req.Coins,   // Adjustment amount
				"type":    req.Type,    // Adjustment direction
				"error":   err.Error(), // Error message
			}).Error("Wallet adjust failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Wallet adjust failed"})
			return
		}
		// Log successful adjustment
		logrus.WithFields(logrus.Fields{
			"user_id": uid,       // User ID
			"amount":  req.Coins, // Adjustment amount
			"type":    req.Type,  // Adjustment direction
		}).Info("Wallet adjusted")
		invalidateWalletCache(c, uid) // Invalidate cached wallet read
		// Return the matching success message
		if req.Type == "increment" {
			c.JSON(http.StatusOK, gin.H{"message": "Coins added successfully"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Coins deducted successfully"})
	}
}

// RedeemRequest represents a point-redemption request
type RedeemRequest struct {
	Coins int64 `json:"coins" binding:"required"` // Coins to mint from game points
}

// RedeemHandler converts unspent game points into wallet coins at the
// configured exchange rate, atomically under profile and wallet row locks
func RedeemHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		var req RedeemRequest // Bind JSON request to struct
		// Validate request shape and amount before touching storage
		if err := c.ShouldBindJSON(&req); err != nil || req.Coins <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		pointsRequired := req.Coins * cfg.CoinValue // Points consumed by this redemption
		// Ensure the wallet exists before locking, to avoid a lock-then-create race
		if _, err := getOrCreateWallet(db, uid); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
			return
		}
		var profile domain.Profile
		var wallet domain.Wallet
		// Atomic redemption: lock both rows, check, then apply relative updates
		err := db.Transaction(func(tx *gorm.DB) error {
			// Lock the profile row
			if err := utils.ForUpdate(tx).Where("user_id = ?", uid).First(&profile).Error; err != nil {
				return err
			}
			// Lock the wallet row
			if err := utils.ForUpdate(tx).Where("user_id = ?", uid).First(&wallet).Error; err != nil {
				return err
			}
			// Check available points under the lock
			if profile.AvailableGamePoints() < pointsRequired {
				return ErrInsufficientPoints // Abort with no mutation
			}
			// Consume the points via a relative update
			if err := tx.Model(&domain.Profile{}).Where("id = ?", profile.ID).
				Update("used_game_points", gorm.Expr("used_game_points + ?", pointsRequired)).Error; err != nil {
				return err
			}
			// Mint the coins and record the ledger entry
			if err := creditCoins(tx, wallet.ID, req.Coins, "redeem"); err != nil {
				return err
			}
			// Refresh both rows for the response
			if err := tx.First(&profile, profile.ID).Error; err != nil {
				return err
			}
			return tx.First(&wallet, wallet.ID).Error
		})
		// Insufficient points is a clean rejection, not a server fault
		if errors.Is(err, ErrInsufficientPoints) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient game points"})
			return
		}
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": uid,         // User ID
				"coins":   req.Coins,   // Requested coins
				"error":   err.Error(), // Error message
			}).Error("Redemption failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Redemption failed"})
			return
		}
		// Log successful redemption
		logrus.WithFields(logrus.Fields{
			"user_id":         uid,            // User ID
			"coins_awarded":   req.Coins,      // Coins minted
			"points_consumed": pointsRequired, // Points spent
		}).Info("Points redeemed")
		invalidateWalletCache(c, uid) // Invalidate cached wallet read
		// Return the refreshed balances
		c.JSON(http.StatusOK, gin.H{
			"coins_awarded":         req.Coins,                     // Coins minted
			"available_game_points": profile.AvailableGamePoints(), // Points still redeemable
			"available_coins":       wallet.AvailableCoins(),       // Spendable coin balance
		})
	}
}
