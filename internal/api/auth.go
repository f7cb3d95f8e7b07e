package api

import (
	"coin_wallet/internal/domain" // Importing domain models
	"coin_wallet/internal/utils"  // Utility functions
	"errors"                      // Error values
	"net/http"                    // HTTP status codes
	"regexp"                      // Regular expressions
	"strings"                     // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Request and Response structs
type RegisterRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Request struct for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// isValidUsername checks if the username contains only alphabetic characters
func isValidUsername(username string) bool {
	matched, _ := regexp.MatchString(`^[A-Za-z]+$`, username) // Regex to match alphabetic characters only
	return matched                                            // Return whether it matched
}

// isValidPassword checks if the password length is between 8 and 15 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 15 // Return true if length is valid
}

// createProfileWithCode provisions the user's profile with a freshly
// generated referral code, retrying generation on the rare code collision
// (uniqueness is enforced by the database index)
func createProfileWithCode(tx *gorm.DB, userID uint) (*domain.Profile, error) {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateReferralCode() // Generate a candidate code
		if err != nil {
			return nil, err
		}
		profile := domain.Profile{UserID: userID, ReferralCode: code}
		if err := tx.Create(&profile).Error; err == nil {
			return &profile, nil // Code was unique, profile created
		} else {
			lastErr = err // Retry with a fresh code
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("could not generate a unique referral code")
}

// RegisterHandler creates a user together with its profile (referral code)
// and zero-balance wallet in one transaction
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Validate username and password
		if !isValidUsername(req.Username) {
			// If username is invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be alphabetic only"})
			return
		}
		// Validate password length
		if !isValidPassword(req.Password) {
			// If password is invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-15 characters"})
			return
		}
		// Hash the password and create the user
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Create user with lowercase username to ensure uniqueness
		user := domain.User{Username: strings.ToLower(req.Username), Password: string(hash)}
		var profile *domain.Profile
		// User, profile and wallet are provisioned together or not at all
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			// Profile carries the user's referral identity
			p, err := createProfileWithCode(tx, user.ID)
			if err != nil {
				return err
			}
			profile = p
			// Wallet starts with zero balances
			return tx.Create(&domain.Wallet{UserID: user.ID}).Error
		})
		if err != nil {
			// Creation fails most commonly on a duplicate username
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
			return
		}
		// Return success response with the user's shareable referral code
		c.JSON(http.StatusCreated, gin.H{
			"message":       "User registered successfully",
			"referral_code": profile.ReferralCode,
		})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("username = ?", strings.ToLower(req.Username)).First(&user).Error; err != nil {
			// If user not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
