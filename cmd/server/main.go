package main

import (
	"coin_wallet/internal/api"        // Custom package for API handlers
	"coin_wallet/internal/config"     // Custom package for configuration
	"coin_wallet/internal/middleware" // Custom package for middleware
	"context"                         // context package is needed for Redis operations
	"log"                             // log package is needed for logging

	// For loading .env files
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin so ClientIP honors forwarded-for headers
	// only from the fronting proxy
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Anonymous referral click tracking (pre-signup, keyed by IP)
	r.POST("/referral/click", api.TrackClickHandler(db))

	// Authenticated routes (protected by JWT)
	authGroup := r.Group("/")
	// Protect routes with JWT middleware and inject Redis client into context
	authGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	})
	authGroup.GET("/wallet", api.GetWalletHandler(db, redisClient)) // Wallet read endpoint
	authGroup.POST("/wallet/adjust", api.AdjustWalletHandler(db))   // Wallet adjust endpoint
	authGroup.POST("/wallet/redeem", api.RedeemHandler(db, cfg))    // Point redemption endpoint
	authGroup.POST("/referral", api.ProcessReferralHandler(db, cfg)) // Attribution resolver endpoint
	authGroup.GET("/profile", api.GetProfileHandler(db))            // Profile/referral summary endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))               // List users endpoint
	adminGroup.GET("/referrals", api.ListPendingReferralsHandler(db))             // Referral click audit trail
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient)) // Coin ledger endpoint
	adminGroup.POST("/users/:id/points", api.GrantPointsHandler(db))              // Game point grant endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
