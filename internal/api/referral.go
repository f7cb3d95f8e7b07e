package api

import (
	"coin_wallet/internal/config" // Application configuration
	"coin_wallet/internal/domain" // Importing domain models
	"coin_wallet/internal/utils"  // Utility functions
	"errors"                      // Error inspection
	"net/http"                    // HTTP status codes
	"strings"                     // String manipulation
	"time"                        // Timestamps

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ClickRequest represents an anonymous referral-link click
type ClickRequest struct {
	ReferralCode string `json:"referral_code" binding:"required"` // Code embedded in the clicked link
}

// TrackClickHandler records an anonymous pre-signup referral-link click
// keyed by the caller's IP. Bogus codes are rejected here so they are never
// stored; a duplicate unredeemed (referrer, IP) pair is not re-created.
func TrackClickHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ClickRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing referral code"})
			return
		}
		// Normalize the code: trimmed, uppercase
		code := strings.ToUpper(strings.TrimSpace(req.ReferralCode))
		var referrer domain.Profile
		// The code must belong to a real profile before a click is stored
		if err := db.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid referral code"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to track click"})
			return
		}
		// Resolve the client IP (forwarded-for aware behind trusted proxies)
		clientIP := c.ClientIP()
		if clientIP == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not determine client IP"})
			return
		}
		// Avoid duplicate unredeemed entries for the same referrer and IP
		var existing domain.PendingReferral
		err := db.Where("referrer_profile_id = ? AND ip_address = ? AND redeemed_at IS NULL",
			referrer.ID, clientIP).First(&existing).Error
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "tracked": false, "already_exists": true})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to track click"})
			return
		}
		// Store the click with a direct link to the referrer profile,
		// so redemption never needs a code round-trip
		pending := domain.PendingReferral{
			ReferralCode:      code,        // Code as clicked
			ReferrerProfileID: referrer.ID, // Direct ownership reference
			IPAddress:         clientIP,    // Source IP
		}
		if err := db.Create(&pending).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"referral_code": code,        // Clicked code
				"ip_address":    clientIP,    // Source IP
				"error":         err.Error(), // Error message
			}).Error("Failed to record referral click")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to track click"})
			return
		}
		// Log the recorded click
		logrus.WithFields(logrus.Fields{
			"referral_code":       code,        // Clicked code
			"referrer_profile_id": referrer.ID, // Referrer profile
			"ip_address":          clientIP,    // Source IP
		}).Info("Referral click recorded")
		c.JSON(http.StatusOK, gin.H{"success": true, "tracked": true})
	}
}

// ReferralRequest carries the optional explicit referral code
type ReferralRequest struct {
	ReferralCode string `json:"referral_code"` // Optional; the implicit IP path takes priority
}

// referralProcessedMsg is the uniform benign response for all non-error
// attribution outcomes (done, skipped, duplicate, self-referral)
const referralProcessedMsg = "Referral processed successfully"

// ProcessReferralHandler resolves the referrer for a newly onboarded user
// and credits both parties under one atomic transaction. Called once after
// signup; re-invocation after a committed attribution is a no-op.
//
// Resolution order: the most recent unredeemed click from the caller's IP
// wins; an explicit referral code in the body is only a fallback. Business
// outcomes (no referrer, unknown code, self-referral, already attributed)
// are absorbed into success-shaped responses so referral codes cannot be
// probed through status codes.
func ProcessReferralHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		var req ReferralRequest
		_ = c.ShouldBindJSON(&req) // Body is optional; ignore binding errors

		var profile domain.Profile // The acting user's own profile
		if err := db.Where("user_id = ?", uid).First(&profile).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Referral processing failed"})
			return
		}
		// Already attributed: nothing to do, report success
		if profile.ReferredByID != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": uid,              // Acting user
				"outcome": "skipped",        // Attribution outcome
				"reason":  "already_linked", // Why it was skipped
			}).Info("Referral attribution skipped")
			c.JSON(http.StatusOK, gin.H{"message": referralProcessedMsg})
			return
		}

		clientIP := c.ClientIP() // Resolved client IP (forwarded-for aware)
		var pending *domain.PendingReferral
		var referrer *domain.Profile
		attributedVia := ""

		// Implicit path: newest unredeemed click from this IP. The referrer
		// comes straight from the stored profile reference.
		if clientIP != "" {
			var p domain.PendingReferral
			err := db.Preload("ReferrerProfile").
				Where("ip_address = ? AND redeemed_at IS NULL", clientIP).
				Order("clicked_at DESC, id DESC").
				First(&p).Error
			if err == nil {
				pending = &p
				referrer = &p.ReferrerProfile
				attributedVia = "ip"
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Referral processing failed"})
				return
			}
		}
		// Explicit fallback: referral code from the body, normalized
		if referrer == nil {
			code := strings.ToUpper(strings.TrimSpace(req.ReferralCode))
			if code != "" {
				var owner domain.Profile
				err := db.Where("referral_code = ?", code).First(&owner).Error
				if err == nil {
					referrer = &owner
					attributedVia = "code"
				} else if errors.Is(err, gorm.ErrRecordNotFound) {
					// A supplied-but-wrong code gets a distinguishable hint,
					// still success-shaped
					logrus.WithFields(logrus.Fields{
						"user_id":       uid,            // Acting user
						"referral_code": code,           // Unknown code
						"outcome":       "skipped",      // Attribution outcome
						"reason":        "unknown_code", // Why it was skipped
					}).Info("Referral attribution skipped")
					c.JSON(http.StatusOK, gin.H{"message": "Referral code not found"})
					return
				} else {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Referral processing failed"})
					return
				}
			}
		}
		// No candidate referrer by either path: done
		if referrer == nil {
			logrus.WithFields(logrus.Fields{
				"user_id": uid,           // Acting user
				"outcome": "skipped",     // Attribution outcome
				"reason":  "no_referrer", // Why it was skipped
			}).Info("Referral attribution skipped")
			c.JSON(http.StatusOK, gin.H{"message": referralProcessedMsg})
			return
		}
		// Self-referral guard: never an error, to avoid leaking the logic
		if referrer.ID == profile.ID {
			logrus.WithFields(logrus.Fields{
				"user_id": uid,             // Acting user
				"outcome": "skipped",       // Attribution outcome
				"reason":  "self_referral", // Why it was skipped
			}).Info("Referral attribution skipped")
			c.JSON(http.StatusOK, gin.H{"message": referralProcessedMsg})
			return
		}

		rewarded := false // Whether the referrer was actually credited
		// One atomic transaction: lock referrer profile, then own profile,
		// then the pending click. Lock order is fixed to rule out deadlocks.
		err := db.Transaction(func(tx *gorm.DB) error {
			var referrerLocked domain.Profile
			// Exclusive lock on the referrer's profile row
			if err := utils.ForUpdate(tx).First(&referrerLocked, referrer.ID).Error; err != nil {
				return err
			}
			// Compare-and-increment: the limit check and the increment run in
			// the same statement, so two concurrent attributions can never
			// both push the count past the ceiling
			res := tx.Model(&domain.Profile{}).
				Where("id = ? AND total_referrals < ?", referrer.ID, cfg.ReferralsLimit).
				Update("total_referrals", gorm.Expr("total_referrals + 1"))
			if res.Error != nil {
				return res.Error
			}
			// The bonus is only granted when the conditional increment landed
			if res.RowsAffected == 1 && cfg.CodeOwnerBonus > 0 {
				refWallet, err := getOrCreateWallet(tx, referrerLocked.UserID)
				if err != nil {
					return err
				}
				if err := creditCoins(tx, refWallet.ID, cfg.CodeOwnerBonus, "referral_bonus"); err != nil {
					return err
				}
				rewarded = true
			}
			// Exclusive lock on the acting user's own profile row
			var ownLocked domain.Profile
			if err := utils.ForUpdate(tx).First(&ownLocked, profile.ID).Error; err != nil {
				return err
			}
			// Linkage happens regardless of the bonus, but only once:
			// conditioned on referred_by_id still being unset
			linked := tx.Model(&domain.Profile{}).
				Where("id = ? AND referred_by_id IS NULL", profile.ID).
				Update("referred_by_id", referrer.ID)
			if linked.Error != nil {
				return linked.Error
			}
			// A concurrent request attributed this user first; undo everything
			if linked.RowsAffected == 0 {
				return errAlreadyAttributed
			}
			// Implicit path: mark the click redeemed in the same transaction
			if pending != nil {
				now := time.Now()
				if err := tx.Model(&domain.PendingReferral{}).
					Where("id = ?", pending.ID).
					Updates(map[string]any{"redeemed_at": &now, "redeemed_by_id": uid}).Error; err != nil {
					return err
				}
			}
			return nil
		})
		// The race loser reports the same benign response as the guard
		if errors.Is(err, errAlreadyAttributed) {
			logrus.WithFields(logrus.Fields{
				"user_id": uid,               // Acting user
				"outcome": "skipped",         // Attribution outcome
				"reason":  "concurrent_link", // Why it was skipped
			}).Info("Referral attribution skipped")
			c.JSON(http.StatusOK, gin.H{"message": referralProcessedMsg})
			return
		}
		if err != nil {
			// Log the error with context; the transaction rolled back in full
			logrus.WithFields(logrus.Fields{
				"user_id":     uid,           // Acting user
				"referrer_id": referrer.ID,   // Candidate referrer profile
				"via":         attributedVia, // Path taken
				"error":       err.Error(),   // Error message
			}).Error("Referral attribution failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Referral processing failed"})
			return
		}
		// Join bonus for the new user: best-effort, outside the attribution
		// transaction, and only when the referrer was actually credited
		if rewarded && cfg.NewUserBonus > 0 {
			if ownWallet, err := getOrCreateWallet(db, uid); err == nil {
				if err := creditCoins(db, ownWallet.ID, cfg.NewUserBonus, "join_bonus"); err != nil {
					logrus.WithFields(logrus.Fields{
						"user_id": uid,         // Acting user
						"error":   err.Error(), // Error message
					}).Warn("Join bonus credit failed")
				}
			}
			invalidateWalletCache(c, uid) // New user's balance changed (or may have)
		}
		if rewarded {
			invalidateWalletCache(c, referrer.UserID) // Referrer's balance changed
		}
		// Log the attribution outcome and path for the audit trail
		logrus.WithFields(logrus.Fields{
			"user_id":        uid,           // Acting user
			"referrer_id":    referrer.ID,   // Referrer profile
			"attributed_via": attributedVia, // "ip" or "code"
			"rewarded":       rewarded,      // Whether bonuses were paid
			"outcome":        "attributed",  // Attribution outcome
		}).Info("Referral attributed")
		c.JSON(http.StatusOK, gin.H{
			"message":        referralProcessedMsg, // Uniform success message
			"attributed_via": attributedVia,        // Path taken: "ip" or "code"
		})
	}
}

// GetProfileHandler returns the authenticated user's referral identity and
// game-point balances
func GetProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var profile domain.Profile
		// Load the profile with its referrer link
		if err := db.Preload("ReferredBy").Where("user_id = ?", userID).First(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		resp := gin.H{
			"referral_code":         profile.ReferralCode,          // Own shareable code
			"total_referrals":       profile.TotalReferrals,        // Rewarded referrals so far
			"total_game_points":     profile.TotalGamePoints,       // Lifetime game points
			"used_game_points":      profile.UsedGamePoints,        // Points already redeemed
			"available_game_points": profile.AvailableGamePoints(), // Points still redeemable
		}
		// Expose the referrer's code when the user was referred
		if profile.ReferredBy != nil {
			resp["referred_by"] = profile.ReferredBy.ReferralCode
		}
		c.JSON(http.StatusOK, resp)
	}
}
