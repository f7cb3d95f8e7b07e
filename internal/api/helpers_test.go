package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"

	"coin_wallet/internal/config"
	"coin_wallet/internal/domain"
	"coin_wallet/internal/middleware"
	"coin_wallet/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret"

// h is shorthand for JSON request bodies
type h = map[string]any

// testConfig returns the reward configuration used across the suite
func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      testJWTSecret,
		CodeOwnerBonus: 100,
		NewUserBonus:   50,
		ReferralsLimit: 7,
		CoinValue:      100,
	}
}

// setupTestDB opens an in-memory SQLite database pinned to a single
// connection so every query sees the same database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.Wallet{},
		&domain.Profile{},
		&domain.PendingReferral{},
		&domain.CoinTransaction{},
	))
	return db
}

// setupRouter wires the full route table the way cmd/server does
func setupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/user", RegisterHandler(db))
	r.GET("/user", LoginHandler(db, cfg.JWTSecret))
	r.POST("/referral/click", TrackClickHandler(db))

	authGroup := r.Group("/")
	authGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	authGroup.GET("/wallet", GetWalletHandler(db, nil))
	authGroup.POST("/wallet/adjust", AdjustWalletHandler(db))
	authGroup.POST("/wallet/redeem", RedeemHandler(db, cfg))
	authGroup.POST("/referral", ProcessReferralHandler(db, cfg))
	authGroup.GET("/profile", GetProfileHandler(db))

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", ListUsersHandler(db, nil))
	adminGroup.GET("/referrals", ListPendingReferralsHandler(db))
	adminGroup.GET("/transactions", ListTransactionsHandler(db, nil))
	adminGroup.POST("/users/:id/points", GrantPointsHandler(db))
	return r
}

// createTestUser inserts a user with its profile and zero-balance wallet
func createTestUser(t *testing.T, db *gorm.DB, username, code string) domain.User {
	t.Helper()
	user := domain.User{Username: username, Password: "irrelevant"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&domain.Profile{UserID: user.ID, ReferralCode: code}).Error)
	require.NoError(t, db.Create(&domain.Wallet{UserID: user.ID}).Error)
	return user
}

// createTestAdmin inserts an admin user with profile and wallet
func createTestAdmin(t *testing.T, db *gorm.DB, username, code string) domain.User {
	t.Helper()
	user := createTestUser(t, db, username, code)
	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", user.ID).Update("role", "admin").Error)
	return user
}

// bearerToken issues a valid JWT for the given user
func bearerToken(t *testing.T, userID uint) string {
	t.Helper()
	token, err := utils.GenerateJWT(userID, testJWTSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

// doJSON performs a request against the router. userID 0 means anonymous;
// remoteAddr overrides the simulated peer address when non-empty.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, userID uint, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", bearerToken(t, userID))
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// itoa formats a record ID for use in URL paths
func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

// jsonBody encodes a request body for hand-built httptest requests
func jsonBody(t *testing.T, body any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	return &buf
}

// decodeBody unmarshals a JSON response body into a generic map
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

// loadWallet fetches a user's wallet row
func loadWallet(t *testing.T, db *gorm.DB, userID uint) domain.Wallet {
	t.Helper()
	var w domain.Wallet
	require.NoError(t, db.Where("user_id = ?", userID).First(&w).Error)
	return w
}

// loadProfile fetches a user's profile row
func loadProfile(t *testing.T, db *gorm.DB, userID uint) domain.Profile {
	t.Helper()
	var p domain.Profile
	require.NoError(t, db.Where("user_id = ?", userID).First(&p).Error)
	return p
}

// seedWallet sets a user's wallet balances directly
func seedWallet(t *testing.T, db *gorm.DB, userID uint, total, used int64) {
	t.Helper()
	require.NoError(t, db.Model(&domain.Wallet{}).Where("user_id = ?", userID).
		Updates(map[string]any{"total_coins": total, "used_coins": used}).Error)
}

// seedGamePoints sets a user's game-point accumulators directly, standing in
// for the upstream game-scoring pipeline
func seedGamePoints(t *testing.T, db *gorm.DB, userID uint, total, used int64) {
	t.Helper()
	require.NoError(t, db.Model(&domain.Profile{}).Where("user_id = ?", userID).
		Updates(map[string]any{"total_game_points": total, "used_game_points": used}).Error)
}

// seedReferralCount sets a referrer's rewarded-referral counter directly
func seedReferralCount(t *testing.T, db *gorm.DB, userID uint, count int) {
	t.Helper()
	require.NoError(t, db.Model(&domain.Profile{}).Where("user_id = ?", userID).
		Update("total_referrals", count).Error)
}
